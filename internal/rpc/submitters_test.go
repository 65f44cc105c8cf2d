package rpc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/stats"
)

func TestSubmittersForgetEndedConnections(t *testing.T) {
	s := newSubmitters(nil)
	a := s.TagConn(context.Background(), &stats.ConnTagInfo{})
	b := s.TagConn(context.Background(), &stats.ConnTagInfo{})

	assert.NotSame(t, s.get(a), s.get(b))
	assert.Same(t, s.get(a), s.get(a))
	assert.Equal(t, 2, s.len())

	s.HandleConn(a, &stats.ConnBegin{})
	assert.Equal(t, 2, s.len())
	s.HandleConn(a, &stats.ConnEnd{})
	assert.Equal(t, 1, s.len())

	untagged := s.get(context.Background())
	assert.Same(t, untagged, s.get(context.Background()))
}
