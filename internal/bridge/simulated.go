package bridge

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// SimulatedBridge — детерминированный мост для режима симуляции
type SimulatedBridge struct {
	feePct  float64
	latency time.Duration
	seq     atomic.Int64
}

// NewSimulatedBridge создает мост с фиксированной комиссией
func NewSimulatedBridge(feePct float64, latency time.Duration) *SimulatedBridge {
	if feePct <= 0 {
		feePct = 0.5
	}
	return &SimulatedBridge{feePct: feePct, latency: latency}
}

func (b *SimulatedBridge) Transfer(ctx context.Context, from, to, token string, amount float64) (*Receipt, error) {
	if b.latency > 0 {
		timer := time.NewTimer(b.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, &Error{
				From: from, To: to, Code: "timeout",
				Message: ctx.Err().Error(), Transient: true, Original: ctx.Err(),
			}
		case <-timer.C:
		}
	}

	received := amount * (1 - b.feePct/100)
	return &Receipt{
		ReceivedAmount: received,
		ReferenceID: fmt.Sprintf("simbridge-%s-%s-%d-%s",
			from, to, b.seq.Add(1), uuid.Must(uuid.NewRandom()).String()[:8]),
		CompletedAt: time.Now(),
	}, nil
}

func (b *SimulatedBridge) FeePct(_, _ string) (float64, error) {
	return b.feePct, nil
}

func (b *SimulatedBridge) Close() error { return nil }
