package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_EmptyAddrDisables(t *testing.T) {
	c := New("", "", 0)
	assert.Nil(t, c)
	assert.False(t, c.Enabled())

	ctx := context.Background()
	assert.NoError(t, c.Ping(ctx))
	assert.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	assert.False(t, c.Exists(ctx, "k"))
	assert.NoError(t, c.Close())
}

func TestSet_NonPositiveTTLIsNoop(t *testing.T) {
	// Points at a port nothing listens on; a zero TTL must return before dialing.
	c := New("127.0.0.1:1", "", 0)
	assert.True(t, c.Enabled())
	assert.NoError(t, c.Set(context.Background(), "k", []byte("v"), 0))
	_ = c.Close()
}
