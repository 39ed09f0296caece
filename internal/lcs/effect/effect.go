// Package effect implements C5: fade and wave, time-sliced sequences of
// dim commands serialized through an Agent's single-flight send queue.
package effect

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lumenbus/lcs-gateway/internal/lcs/command"
	"github.com/lumenbus/lcs-gateway/internal/lcs/response"
	"github.com/lumenbus/lcs-gateway/internal/metrics"
)

// Sender is the one wire primitive effects drive; *agent.Client satisfies it.
type Sender interface {
	Send(frameBytes []byte) (*response.Typed, error)
}

const (
	fadeSteps           = 20 // 21 samples, i = 0..20
	defaultWaveInterval = 500 * time.Millisecond
)

// Fade linearly interpolates brightness over exactly 21 samples, awaiting
// each ack before scheduling the next step.
func Fade(ctx context.Context, s Sender, master, cu byte, lampNo, start, end int, durationSec float64) error {
	stepDelay := time.Duration(durationSec * 1000 / fadeSteps * float64(time.Millisecond))

	for i := 0; i <= fadeSteps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		brightness := int(math.Round(float64(start) + float64(end-start)*float64(i)/fadeSteps))
		frameBytes, err := command.DimLamp(master, cu, lampNo, brightness)
		if err != nil {
			return err
		}
		if _, err := s.Send(frameBytes); err != nil {
			return fmt.Errorf("fade step %d: %w", i, err)
		}
		if i < fadeSteps {
			if !sleepOrDone(ctx, stepDelay) {
				return ctx.Err()
			}
		}
	}
	return nil
}

// Wave dims each lamp in list order, sleeping intervalMs between commands.
// The delay sits between commands; the last lamp has no trailing sleep.
func Wave(ctx context.Context, s Sender, master, cu byte, lamps []int, brightness int, interval time.Duration) error {
	if interval <= 0 {
		interval = defaultWaveInterval
	}
	for i, lampNo := range lamps {
		if err := ctx.Err(); err != nil {
			return err
		}
		frameBytes, err := command.DimLamp(master, cu, lampNo, brightness)
		if err != nil {
			return err
		}
		if _, err := s.Send(frameBytes); err != nil {
			return fmt.Errorf("wave lamp %d: %w", lampNo, err)
		}
		if i < len(lamps)-1 {
			if !sleepOrDone(ctx, interval) {
				return ctx.Err()
			}
		}
	}
	return nil
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Kind names an effect for metrics/API purposes.
type Kind string

const (
	KindFade Kind = "fade"
	KindWave Kind = "wave"
)

type running struct {
	cancel context.CancelFunc
}

// Engine tracks in-flight effects per (agentID, kind) so a second request
// against the same target cancels the first, and exposes the EffectActive gauge.
type Engine struct {
	logger  *zap.Logger
	metrics *metrics.AppMetrics

	mu      sync.Mutex
	current map[string]*running
}

// NewEngine constructs an Engine.
func NewEngine(logger *zap.Logger, m *metrics.AppMetrics) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger, metrics: m, current: make(map[string]*running)}
}

func key(agentID string, kind Kind) string { return agentID + ":" + string(kind) }

// Start launches fn in the background under a cancellable context, tracking
// it by (agentID, kind) and reporting completion via onDone(err). Starting a
// second effect of the same kind against the same agent cancels the first.
func (e *Engine) Start(agentID string, kind Kind, fn func(ctx context.Context) error, onDone func(error)) {
	e.mu.Lock()
	if prev, ok := e.current[key(agentID, kind)]; ok {
		prev.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &running{cancel: cancel}
	e.current[key(agentID, kind)] = r
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.EffectActive.WithLabelValues(agentID, string(kind)).Set(1)
	}

	go func() {
		err := fn(ctx)

		// A successor started for the same target owns the entry and the
		// gauge now; only clear them if this effect was not superseded.
		e.mu.Lock()
		cur, ok := e.current[key(agentID, kind)]
		if ok && cur == r {
			delete(e.current, key(agentID, kind))
		}
		superseded := ok && cur != r
		e.mu.Unlock()

		if e.metrics != nil && !superseded {
			e.metrics.EffectActive.WithLabelValues(agentID, string(kind)).Set(0)
		}
		if err != nil && err != context.Canceled {
			e.logger.Warn("effect failed", zap.String("agent_id", agentID), zap.String("kind", string(kind)), zap.Error(err))
		}
		if onDone != nil {
			onDone(err)
		}
	}()
}

// Cancel stops the running effect of kind for agentID, if any.
func (e *Engine) Cancel(agentID string, kind Kind) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r, ok := e.current[key(agentID, kind)]; ok {
		r.cancel()
		delete(e.current, key(agentID, kind))
	}
}
