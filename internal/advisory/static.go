package advisory

import (
	"context"
	"time"
)

// StaticClient возвращает фиксированную оценку. Используется в
// симуляции и когда внешний сервис не сконфигурирован.
type StaticClient struct {
	score     float64
	narrative string
}

// NewStaticClient создает клиента с фиксированной оценкой
func NewStaticClient(score float64, narrative string) *StaticClient {
	return &StaticClient{score: score, narrative: narrative}
}

func (c *StaticClient) Assess(_ context.Context, _ Summary) (*Assessment, error) {
	return &Assessment{
		Score:     c.score,
		Narrative: c.narrative,
		CreatedAt: time.Now(),
	}, nil
}
