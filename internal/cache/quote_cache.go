// Package cache хранит последние котировки в Redis.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"chainarb/internal/models"
	"chainarb/internal/venue"
)

// TTL записи: котировка живёт несколько окон устаревания,
// кэш нужен дашборду и прогреву, не исполнению
const quoteTTL = 30 * time.Second

// QuoteCache — кэш последних котировок. Лучшая попытка: ошибки Redis
// не влияют на сканирование. Nil-приёмник безопасен (кэш выключен).
type QuoteCache struct {
	client *redis.Client
}

// New создает кэш котировок
func New(client *redis.Client) *QuoteCache {
	return &QuoteCache{client: client}
}

// key: quote:{chain}:{venue}:{BASE-QUOTE}
func quoteKey(chain, venueName string, pair models.TokenPair) string {
	return fmt.Sprintf("quote:%s:%s:%s-%s", chain, venueName, pair.Base, pair.Quote)
}

// Put сохраняет котировку
func (c *QuoteCache) Put(ctx context.Context, q *venue.Quote) error {
	if c == nil || c.client == nil {
		return nil
	}
	key := quoteKey(q.Chain, q.Venue, q.Pair)
	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"price": q.Price,
		"gas":   q.GasUSD,
		"ts":    q.RetrievedAt.UnixMilli(),
	})
	pipe.Expire(ctx, key, quoteTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Get возвращает котировку или nil, если записи нет
func (c *QuoteCache) Get(ctx context.Context, chain, venueName string, pair models.TokenPair) (*venue.Quote, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	fields, err := c.client.HGetAll(ctx, quoteKey(chain, venueName, pair)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return parseQuote(chain, venueName, pair, fields)
}

// GetMany возвращает котировки нескольких площадок одним pipeline
func (c *QuoteCache) GetMany(ctx context.Context, chain string, venues []string, pair models.TokenPair) (map[string]*venue.Quote, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}

	pipe := c.client.Pipeline()
	cmds := make(map[string]*redis.MapStringStringCmd, len(venues))
	for _, v := range venues {
		cmds[v] = pipe.HGetAll(ctx, quoteKey(chain, v, pair))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	out := make(map[string]*venue.Quote, len(venues))
	for v, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil || len(fields) == 0 {
			continue
		}
		q, err := parseQuote(chain, v, pair, fields)
		if err != nil {
			continue
		}
		out[v] = q
	}
	return out, nil
}

func parseQuote(chain, venueName string, pair models.TokenPair, fields map[string]string) (*venue.Quote, error) {
	price, err := strconv.ParseFloat(fields["price"], 64)
	if err != nil {
		return nil, fmt.Errorf("parse price: %w", err)
	}
	gas, _ := strconv.ParseFloat(fields["gas"], 64)
	tsMilli, err := strconv.ParseInt(fields["ts"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse ts: %w", err)
	}
	return &venue.Quote{
		Chain:       chain,
		Venue:       venueName,
		Pair:        pair,
		Price:       price,
		GasUSD:      gas,
		RetrievedAt: time.UnixMilli(tsMilli),
	}, nil
}
