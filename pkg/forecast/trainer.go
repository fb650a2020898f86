package forecast

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/wattwise/wattwise/pkg/log"
	"github.com/wattwise/wattwise/pkg/types"
)

// TrainResult is the outcome of a single fit.
type TrainResult struct {
	Samples  int           `json:"samples"`
	Trained  bool          `json:"trained"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// Future is a pending TrainResult.
type Future struct {
	done   chan struct{}
	result TrainResult
}

// Done is closed once the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the fit finishes or ctx is done. Canceling ctx does not
// cancel the fit.
func (f *Future) Wait(ctx context.Context) (TrainResult, error) {
	select {
	case <-ctx.Done():
		return TrainResult{}, ctx.Err()
	case <-f.done:
		return f.result, f.result.Err
	}
}

// Trainer fits a Model on a background goroutine so that request handlers
// never fit inline. Only one fit runs at a time.
type Trainer struct {
	model    *Model
	sem      chan struct{}
	observer func(TrainResult)
}

// NewTrainer creates a Trainer for model. observer, if non-nil, is called with
// every result.
func NewTrainer(model *Model, observer func(TrainResult)) *Trainer {
	return &Trainer{
		model:    model,
		sem:      make(chan struct{}, 1),
		observer: observer,
	}
}

// Fit starts fitting the model to a snapshot of readings and returns
// immediately. Later changes to readings do not affect the fit.
func (t *Trainer) Fit(ctx context.Context, readings []types.Reading) *Future {
	snapshot := slices.Clone(readings)
	f := &Future{done: make(chan struct{})}
	logger := log.Ctx(ctx)
	// the fit outlives the caller if it stops waiting
	ctx = context.WithoutCancel(ctx)

	go func() {
		defer close(f.done)

		t.sem <- struct{}{}
		defer func() { <-t.sem }()

		start := time.Now()
		err := t.model.Train(ctx, snapshot)
		f.result = TrainResult{
			Samples:  len(snapshot),
			Trained:  err == nil,
			Duration: time.Since(start),
			Err:      err,
		}
		if err != nil {
			logger.WarnContext(ctx, "failed to train forecast model", slog.Int("samples", len(snapshot)), slog.Any("error", err))
		} else {
			logger.InfoContext(ctx, "trained forecast model", slog.Int("samples", len(snapshot)), slog.Duration("duration", f.result.Duration))
		}
		if t.observer != nil {
			t.observer(f.result)
		}
	}()

	return f
}
