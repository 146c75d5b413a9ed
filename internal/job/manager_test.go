package job

import (
	"context"
	"sync"
	"testing"
	"time"

	"dex-sentinel/internal/domain"
	"dex-sentinel/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type blockingRunner struct {
	mu      sync.Mutex
	started []domain.TokenKey
}

func (r *blockingRunner) Run(ctx context.Context, target domain.TrackedToken) {
	r.mu.Lock()
	r.started = append(r.started, target.Key())
	r.mu.Unlock()
	<-ctx.Done()
}

func (r *blockingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.started)
}

func TestManagerRefusesDuplicates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &blockingRunner{}
	m := metrics.New()
	mgr := NewManager(ctx, runner, zap.NewNop(), m)

	require.NoError(t, mgr.Track(domain.TrackedToken{ChainID: "solana", TokenAddress: "B"}))
	require.NoError(t, mgr.Track(domain.TrackedToken{ChainID: "ethereum", TokenAddress: "A"}))
	assert.ErrorIs(t, mgr.Track(domain.TrackedToken{ChainID: "solana", TokenAddress: " B "}), ErrAlreadyTracked)
	assert.ErrorIs(t, mgr.Track(domain.TrackedToken{ChainID: "solana"}), ErrInvalidTarget)

	tracked := mgr.Tracked()
	require.Len(t, tracked, 2)
	assert.Equal(t, "ethereum", tracked[0].ChainID)
	assert.Equal(t, "solana", tracked[1].ChainID)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TrackedTokens))

	require.Eventually(t, func() bool { return runner.count() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	done := make(chan struct{})
	go func() {
		mgr.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loops did not stop after cancel")
	}
}

func TestManagerTrackAll(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mgr := NewManager(ctx, &blockingRunner{}, nil, nil)

	n := mgr.TrackAll([]domain.TrackedToken{
		{ChainID: "solana", TokenAddress: "A"},
		{ChainID: "solana", TokenAddress: "A"},
		{ChainID: "", TokenAddress: "B"},
		{ChainID: "base", TokenAddress: "C"},
	})
	assert.Equal(t, 2, n)
	assert.Len(t, mgr.Tracked(), 2)
}
