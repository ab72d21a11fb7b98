package api

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// BatchRequest is one call in a batch: an endpoint function with its
// arguments bound. Label names the call in logs and skip messages.
type BatchRequest struct {
	Label string
	Call  func(ctx context.Context) *Envelope
}

type batchConfig struct {
	halt     func(*Envelope) bool
	progress func(done, total int, label string)
}

// BatchOption configures Batch.
type BatchOption func(*batchConfig)

// HaltOnFailure stops the batch after the first envelope for which pred
// returns true. A nil pred halts on any failing envelope.
func HaltOnFailure(pred func(*Envelope) bool) BatchOption {
	if pred == nil {
		pred = func(e *Envelope) bool { return !e.IsOK() }
	}
	return func(c *batchConfig) { c.halt = pred }
}

// WithProgress calls fn before each request starts.
func WithProgress(fn func(done, total int, label string)) BatchOption {
	return func(c *batchConfig) { c.progress = fn }
}

// Batch runs reqs one at a time in order and returns exactly one envelope
// per request, in the same order. Failures do not stop the batch unless
// HaltOnFailure is given; halted requests get a skipped envelope.
func (d *Dispatcher) Batch(ctx context.Context, reqs []BatchRequest, opts ...BatchOption) []*Envelope {
	var cfg batchConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	results := make([]*Envelope, len(reqs))
	haltedBy := ""
	halted := false
	for i, br := range reqs {
		if halted {
			results[i] = skippedEnvelope(haltedBy)
			continue
		}
		if cfg.progress != nil {
			cfg.progress(i, len(reqs), br.Label)
		}

		env := runBatchRequest(ctx, br)
		results[i] = env

		if cfg.halt != nil && cfg.halt(env) {
			halted = true
			haltedBy = br.Label
			if haltedBy == "" {
				haltedBy = fmt.Sprintf("request %d", i+1)
			}
			d.logger.Warn("batch.halted",
				zap.String("label", haltedBy),
				zap.Int("status", env.StatusCode),
				zap.Int("skipped", len(reqs)-i-1),
			)
		}
	}
	return results
}

func runBatchRequest(ctx context.Context, br BatchRequest) *Envelope {
	if br.Call == nil {
		return exceptionEnvelope("", "", fmt.Errorf("batch request %q has no call", br.Label), 0)
	}
	env := br.Call(ctx)
	if env == nil {
		return exceptionEnvelope("", "", fmt.Errorf("batch request %q returned no result", br.Label), 0)
	}
	return env
}

func skippedEnvelope(label string) *Envelope {
	msg := "skipped: batch halted after " + label + " failed"
	return &Envelope{
		OK:         false,
		StatusCode: StatusNotSent,
		Output:     msg,
		Error:      msg,
	}
}
