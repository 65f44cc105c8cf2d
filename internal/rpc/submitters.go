package rpc

import (
	"context"
	"sync"
	"sync/atomic"

	"google.golang.org/grpc/stats"

	"github.com/rwandaorbitguard/orbit-guard/internal/prediction"
)

type connIDKey struct{}

// submitters keeps one prediction.Submitter per client connection, so a
// pending prediction only rejects calls from the same connection. It tags
// connections as a stats.Handler and forgets a submitter when its
// connection ends.
type submitters struct {
	predictor prediction.Predictor
	next      atomic.Uint64

	mu     sync.Mutex
	byConn map[uint64]*prediction.Submitter
}

func newSubmitters(p prediction.Predictor) *submitters {
	return &submitters{predictor: p, byConn: make(map[uint64]*prediction.Submitter)}
}

// get returns the submitter of the connection ctx belongs to. Calls made
// without a tagged connection share id 0.
func (s *submitters) get(ctx context.Context) *prediction.Submitter {
	id, _ := ctx.Value(connIDKey{}).(uint64)
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.byConn[id]
	if !ok {
		sub = prediction.NewSubmitter(s.predictor)
		s.byConn[id] = sub
	}
	return sub
}

func (s *submitters) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byConn)
}

func (s *submitters) TagConn(ctx context.Context, _ *stats.ConnTagInfo) context.Context {
	return context.WithValue(ctx, connIDKey{}, s.next.Add(1))
}

func (s *submitters) HandleConn(ctx context.Context, st stats.ConnStats) {
	if _, ok := st.(*stats.ConnEnd); !ok {
		return
	}
	if id, ok := ctx.Value(connIDKey{}).(uint64); ok {
		s.mu.Lock()
		delete(s.byConn, id)
		s.mu.Unlock()
	}
}

func (s *submitters) TagRPC(ctx context.Context, _ *stats.RPCTagInfo) context.Context {
	return ctx
}

func (s *submitters) HandleRPC(context.Context, stats.RPCStats) {}
