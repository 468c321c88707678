package httpapi

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIPLimiter_PerAddressBuckets(t *testing.T) {
	l := newIPLimiter(0.001, 1)

	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.2"))
}

func TestIPLimiter_CleanupResetsLargeMaps(t *testing.T) {
	l := newIPLimiter(1, 1)
	for i := 0; i <= maxTrackedIPs; i++ {
		l.get(fmt.Sprintf("ip-%d", i))
	}

	l.cleanup()
	assert.Empty(t, l.limiters)
}

func TestIPLimiter_StartCleanupStops(t *testing.T) {
	l := newIPLimiter(1, 1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		l.startCleanup(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup worker did not stop")
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.10:5555"
	assert.Equal(t, "192.0.2.10", clientIP(r))

	r.RemoteAddr = "192.0.2.11"
	assert.Equal(t, "192.0.2.11", clientIP(r))
}
