package venue

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chainarb/internal/models"
)

// StreamConfig - конфигурация переподключения потока котировок
type StreamConfig struct {
	InitialDelay   time.Duration // начальная задержка перед переподключением
	MaxDelay       time.Duration // потолок exponential backoff
	MaxRetries     int           // 0 = бесконечно
	ConnectTimeout time.Duration
	PingInterval   time.Duration
	PongTimeout    time.Duration
}

// DefaultStreamConfig возвращает конфигурацию по умолчанию: 2s, 4s, 8s, 16s
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		InitialDelay:   2 * time.Second,
		MaxDelay:       16 * time.Second,
		MaxRetries:     10,
		ConnectTimeout: 10 * time.Second,
		PingInterval:   30 * time.Second,
		PongTimeout:    10 * time.Second,
	}
}

// Состояния потока
const (
	streamDisconnected int32 = iota
	streamConnecting
	streamConnected
	streamReconnecting
	streamClosed
)

// quoteMessage - тиковое сообщение шлюза
type quoteMessage struct {
	Base   string  `json:"base"`
	Quote  string  `json:"quote"`
	Price  float64 `json:"price"`
	GasUSD float64 `json:"gas_usd"`
}

// QuoteStream держит WebSocket подписку на тики площадки и
// автоматически переподключается с exponential backoff.
// Поток — вспомогательный источник: сканер опирается на
// синхронные котировки, тики лишь греют кэш.
type QuoteStream struct {
	venueName string
	chainName string
	wsURL     string
	config    StreamConfig

	conn   *websocket.Conn
	connMu sync.RWMutex

	state      int32 // atomic
	retryCount int32 // atomic

	closeChan chan struct{}
	closeOnce sync.Once

	onQuote func(*Quote)
	log     *zap.Logger
}

// NewQuoteStream создает поток котировок площадки.
// onQuote вызывается на каждом тике.
func NewQuoteStream(venueName, chainName, wsURL string, config StreamConfig, onQuote func(*Quote), log *zap.Logger) *QuoteStream {
	return &QuoteStream{
		venueName: venueName,
		chainName: chainName,
		wsURL:     wsURL,
		config:    config,
		closeChan: make(chan struct{}),
		onQuote:   onQuote,
		log:       log,
	}
}

// Start подключается; при неудаче уходит в фоновый цикл
// переподключения вместо возврата ошибки
func (s *QuoteStream) Start() {
	if err := s.Connect(); err != nil {
		s.log.Warn("quote stream: initial connect failed",
			zap.String("venue", s.venueName), zap.Error(err))
		go s.reconnectLoop()
	}
}

// Connect устанавливает соединение и запускает насосы чтения и ping
func (s *QuoteStream) Connect() error {
	atomic.StoreInt32(&s.state, streamConnecting)

	dialer := websocket.Dialer{HandshakeTimeout: s.config.ConnectTimeout}
	conn, _, err := dialer.Dial(s.wsURL, nil)
	if err != nil {
		atomic.StoreInt32(&s.state, streamDisconnected)
		return err
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.config.PingInterval + s.config.PongTimeout))
	})

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()

	atomic.StoreInt32(&s.state, streamConnected)
	atomic.StoreInt32(&s.retryCount, 0)

	s.log.Info("quote stream connected",
		zap.String("venue", s.venueName), zap.String("chain", s.chainName))

	go s.readPump()
	go s.pingPump()
	return nil
}

// readPump читает тики до разрыва соединения
func (s *QuoteStream) readPump() {
	for {
		select {
		case <-s.closeChan:
			return
		default:
		}

		s.connMu.RLock()
		conn := s.conn
		s.connMu.RUnlock()
		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			s.handleDisconnect(err)
			return
		}

		var tick quoteMessage
		if err := json.Unmarshal(message, &tick); err != nil {
			s.log.Debug("quote stream: malformed tick",
				zap.String("venue", s.venueName), zap.Error(err))
			continue
		}
		if tick.Price <= 0 {
			continue
		}

		s.onQuote(&Quote{
			Chain:       s.chainName,
			Venue:       s.venueName,
			Pair:        models.TokenPair{Base: tick.Base, Quote: tick.Quote},
			Price:       tick.Price,
			GasUSD:      tick.GasUSD,
			RetrievedAt: time.Now(),
		})
	}
}

// pingPump поддерживает соединение живым
func (s *QuoteStream) pingPump() {
	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.closeChan:
			return
		case <-ticker.C:
			s.connMu.RLock()
			conn := s.conn
			s.connMu.RUnlock()
			if conn == nil || atomic.LoadInt32(&s.state) != streamConnected {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(s.config.PongTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.handleDisconnect(err)
				return
			}
		}
	}
}

// handleDisconnect закрывает соединение и запускает переподключение
func (s *QuoteStream) handleDisconnect(err error) {
	select {
	case <-s.closeChan:
		return
	default:
	}

	state := atomic.LoadInt32(&s.state)
	if state == streamReconnecting || state == streamClosed {
		return
	}
	atomic.StoreInt32(&s.state, streamReconnecting)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()

	s.log.Warn("quote stream disconnected",
		zap.String("venue", s.venueName), zap.Error(err))

	go s.reconnectLoop()
}

// reconnectLoop переподключается с exponential backoff
func (s *QuoteStream) reconnectLoop() {
	delay := s.config.InitialDelay

	for {
		select {
		case <-s.closeChan:
			return
		default:
		}

		retry := atomic.AddInt32(&s.retryCount, 1)
		if s.config.MaxRetries > 0 && int(retry) > s.config.MaxRetries {
			s.log.Error("quote stream: max reconnect attempts reached",
				zap.String("venue", s.venueName), zap.Int("attempts", s.config.MaxRetries))
			atomic.StoreInt32(&s.state, streamDisconnected)
			return
		}

		timer := time.NewTimer(delay)
		select {
		case <-s.closeChan:
			timer.Stop()
			return
		case <-timer.C:
		}

		if err := s.Connect(); err == nil {
			return
		}

		delay *= 2
		if delay > s.config.MaxDelay {
			delay = s.config.MaxDelay
		}
	}
}

// Connected сообщает, активно ли соединение
func (s *QuoteStream) Connected() bool {
	return atomic.LoadInt32(&s.state) == streamConnected
}

// Close останавливает поток
func (s *QuoteStream) Close() {
	s.closeOnce.Do(func() {
		atomic.StoreInt32(&s.state, streamClosed)
		close(s.closeChan)
		s.connMu.Lock()
		if s.conn != nil {
			s.conn.Close()
			s.conn = nil
		}
		s.connMu.Unlock()
	})
}
