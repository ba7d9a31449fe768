package registry

import (
	"errors"
	"sync"
	"time"

	"chainarb/internal/models"
)

// Ошибки реестра
var (
	ErrConflict      = errors.New("non-terminal trade already exists for fingerprint")
	ErrTradeNotFound = errors.New("trade not found")
	ErrNotTerminal   = errors.New("trade is not in a terminal state")
)

// Количество шардов. Степень двойки для быстрого остатка.
const numShards = 32

// FNV-1a константы для быстрого хеширования без аллокаций
const (
	fnvOffset32 = 2166136261
	fnvPrime32  = 16777619
)

// fnvHash вычисляет FNV-1a хеш строки
func fnvHash(s string) uint32 {
	h := uint32(fnvOffset32)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime32
	}
	return h
}

// shard хранит возможности и активные сделки для своего
// подмножества фингерпринтов. Независимые фингерпринты не
// конкурируют за один мьютекс.
type shard struct {
	mu            sync.RWMutex
	opportunities map[string]*models.Opportunity // fingerprint -> возможность
	active        map[string]*models.Trade       // fingerprint -> нетерминальная сделка
}

// Registry — единственная разделяемая изменяемая структура процесса.
// Возможности создаёт сканер, сделки мутирует только координатор,
// читатели (API, WS) получают глубокие копии.
type Registry struct {
	shards [numShards]*shard

	historyMu    sync.RWMutex
	history      []*models.Trade // терминальные сделки, новые в конце
	historyLimit int
}

// New создает реестр с ограничением размера истории в памяти
func New(historyLimit int) *Registry {
	if historyLimit <= 0 {
		historyLimit = 1000
	}
	r := &Registry{historyLimit: historyLimit}
	for i := range r.shards {
		r.shards[i] = &shard{
			opportunities: make(map[string]*models.Opportunity),
			active:        make(map[string]*models.Trade),
		}
	}
	return r
}

func (r *Registry) shardFor(fingerprint string) *shard {
	return r.shards[fnvHash(fingerprint)%numShards]
}

// ============================================================
// Возможности
// ============================================================

// PutOpportunity регистрирует возможность, замещая предыдущую
// с тем же фингерпринтом (более свежие цены выигрывают)
func (r *Registry) PutOpportunity(o *models.Opportunity) {
	fp := o.Fingerprint()
	s := r.shardFor(fp)
	s.mu.Lock()
	s.opportunities[fp] = o
	s.mu.Unlock()
}

// TakeOpportunity изымает возможность для исполнения.
// Возможность потребляется ровно один раз: повторный вызов
// для того же фингерпринта вернёт nil до следующего скана.
func (r *Registry) TakeOpportunity(fingerprint string) *models.Opportunity {
	s := r.shardFor(fingerprint)
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.opportunities[fingerprint]
	if !ok {
		return nil
	}
	delete(s.opportunities, fingerprint)
	return o
}

// ListOpportunities возвращает копии неустаревших возможностей
func (r *Registry) ListOpportunities(now time.Time, window time.Duration) []*models.Opportunity {
	var out []*models.Opportunity
	for _, s := range r.shards {
		s.mu.RLock()
		for _, o := range s.opportunities {
			if !o.IsStale(now, window) {
				out = append(out, o.Clone())
			}
		}
		s.mu.RUnlock()
	}
	return out
}

// PruneStale удаляет устаревшие возможности и возвращает их количество.
// Устаревшие ценовые данные никогда не исполняются.
func (r *Registry) PruneStale(now time.Time, window time.Duration) int {
	pruned := 0
	for _, s := range r.shards {
		s.mu.Lock()
		for fp, o := range s.opportunities {
			if o.IsStale(now, window) {
				delete(s.opportunities, fp)
				pruned++
			}
		}
		s.mu.Unlock()
	}
	return pruned
}

// ============================================================
// Сделки
// ============================================================

// BeginTrade атомарно регистрирует новую сделку.
// Вторая нетерминальная сделка для одного фингерпринта
// отклоняется с ErrConflict — здесь точка принуждения
// правила "не более одного исполнения на фингерпринт".
func (r *Registry) BeginTrade(t *models.Trade) error {
	s := r.shardFor(t.Fingerprint)
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.active[t.Fingerprint]; ok && !existing.IsTerminal() {
		return ErrConflict
	}
	s.active[t.Fingerprint] = t
	return nil
}

// UpdateTrade применяет мутацию к активной сделке под локом шарда.
// Вызывается только координатором исполнения.
func (r *Registry) UpdateTrade(fingerprint string, fn func(*models.Trade)) error {
	s := r.shardFor(fingerprint)
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.active[fingerprint]
	if !ok {
		return ErrTradeNotFound
	}
	fn(t)
	return nil
}

// GetTrade возвращает копию сделки: сначала среди активных,
// затем в истории
func (r *Registry) GetTrade(id string) (*models.Trade, error) {
	for _, s := range r.shards {
		s.mu.RLock()
		for _, t := range s.active {
			if t.ID == id {
				cp := t.Clone()
				s.mu.RUnlock()
				return cp, nil
			}
		}
		s.mu.RUnlock()
	}

	r.historyMu.RLock()
	defer r.historyMu.RUnlock()
	for _, t := range r.history {
		if t.ID == id {
			return t.Clone(), nil
		}
	}
	return nil, ErrTradeNotFound
}

// GetActiveByFingerprint возвращает копию активной сделки или nil
func (r *Registry) GetActiveByFingerprint(fingerprint string) *models.Trade {
	s := r.shardFor(fingerprint)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.active[fingerprint]; ok {
		return t.Clone()
	}
	return nil
}

// ListActive возвращает копии всех нетерминальных сделок
func (r *Registry) ListActive() []*models.Trade {
	var out []*models.Trade
	for _, s := range r.shards {
		s.mu.RLock()
		for _, t := range s.active {
			out = append(out, t.Clone())
		}
		s.mu.RUnlock()
	}
	return out
}

// ListHistory возвращает копии терминальных сделок, новые первыми
func (r *Registry) ListHistory() []*models.Trade {
	r.historyMu.RLock()
	defer r.historyMu.RUnlock()
	out := make([]*models.Trade, 0, len(r.history))
	for i := len(r.history) - 1; i >= 0; i-- {
		out = append(out, r.history[i].Clone())
	}
	return out
}

// MoveToHistory переносит терминальную сделку из активных в историю.
// После переноса сделка неизменяема.
func (r *Registry) MoveToHistory(fingerprint string) error {
	s := r.shardFor(fingerprint)
	s.mu.Lock()
	t, ok := s.active[fingerprint]
	if !ok {
		s.mu.Unlock()
		return ErrTradeNotFound
	}
	if !t.IsTerminal() {
		s.mu.Unlock()
		return ErrNotTerminal
	}
	delete(s.active, fingerprint)
	s.mu.Unlock()

	r.historyMu.Lock()
	r.history = append(r.history, t)
	if len(r.history) > r.historyLimit {
		// Кольцо: старые записи вытесняются
		r.history = r.history[len(r.history)-r.historyLimit:]
	}
	r.historyMu.Unlock()
	return nil
}

// CountActive возвращает количество нетерминальных сделок
func (r *Registry) CountActive() int {
	count := 0
	for _, s := range r.shards {
		s.mu.RLock()
		count += len(s.active)
		s.mu.RUnlock()
	}
	return count
}
