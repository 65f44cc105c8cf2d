package prediction

import (
	"context"
	"sync/atomic"
)

// Predictor is satisfied by *Client.
type Predictor interface {
	Predict(ctx context.Context, in Request) (Response, error)
}

// Submitter validates a form and forwards it to a Predictor, allowing at most
// one request in flight.
type Submitter struct {
	predictor Predictor
	pending   atomic.Bool
}

// NewSubmitter wraps p.
func NewSubmitter(p Predictor) *Submitter {
	return &Submitter{predictor: p}
}

// Submit parses f and, when valid, sends it. Invalid input never reaches the
// predictor. A second call while one is outstanding fails with
// ErrRequestPending.
func (s *Submitter) Submit(ctx context.Context, f Form) (Response, error) {
	req, err := f.Parse()
	if err != nil {
		return Response{}, err
	}
	if !s.pending.CompareAndSwap(false, true) {
		return Response{}, ErrRequestPending
	}
	defer s.pending.Store(false)
	return s.predictor.Predict(ctx, req)
}

// Pending reports whether a request is in flight.
func (s *Submitter) Pending() bool { return s.pending.Load() }
