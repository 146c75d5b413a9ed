package job

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"dex-sentinel/internal/domain"
	"dex-sentinel/internal/metrics"

	"go.uber.org/zap"
)

var (
	ErrAlreadyTracked = errors.New("token is already tracked")
	ErrInvalidTarget  = errors.New("chain id and token address are required")
)

// Runner is a per-token loop; TokenMonitor satisfies it.
type Runner interface {
	Run(ctx context.Context, target domain.TrackedToken)
}

// Manager runs one goroutine per tracked token and refuses duplicates.
type Manager struct {
	ctx     context.Context
	runner  Runner
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	targets map[domain.TokenKey]domain.TrackedToken
	wg      sync.WaitGroup
}

// NewManager binds every future loop to ctx; cancelling it stops them all.
func NewManager(ctx context.Context, runner Runner, logger *zap.Logger, m *metrics.Metrics) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		ctx:     ctx,
		runner:  runner,
		logger:  logger,
		metrics: m,
		targets: make(map[domain.TokenKey]domain.TrackedToken),
	}
}

func (m *Manager) Track(target domain.TrackedToken) error {
	target.ChainID = strings.TrimSpace(target.ChainID)
	target.TokenAddress = strings.TrimSpace(target.TokenAddress)
	if target.ChainID == "" || target.TokenAddress == "" {
		return ErrInvalidTarget
	}
	key := target.Key()

	m.mu.Lock()
	if _, ok := m.targets[key]; ok {
		m.mu.Unlock()
		return ErrAlreadyTracked
	}
	m.targets[key] = target
	count := len(m.targets)
	m.mu.Unlock()

	m.metrics.SetTracked(count)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.runner.Run(m.ctx, target)
	}()
	m.logger.Info("tracking token", zap.String("token_key", key.String()))
	return nil
}

// TrackAll tracks each target, logging and skipping the ones that fail.
func (m *Manager) TrackAll(targets []domain.TrackedToken) int {
	started := 0
	for _, t := range targets {
		if err := m.Track(t); err != nil {
			m.logger.Warn("skipping tracked token", zap.String("token_key", t.Key().String()), zap.Error(err))
			continue
		}
		started++
	}
	return started
}

// Tracked lists targets sorted by key.
func (m *Manager) Tracked() []domain.TrackedToken {
	m.mu.Lock()
	out := make([]domain.TrackedToken, 0, len(m.targets))
	for _, t := range m.targets {
		out = append(out, t)
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Wait blocks until every loop has returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}
