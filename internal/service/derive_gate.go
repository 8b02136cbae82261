package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/GoPolymarket/polycreds/internal/config"
	"github.com/GoPolymarket/polycreds/internal/model"
	"github.com/GoPolymarket/polycreds/internal/pkg/apperrors"
	"github.com/GoPolymarket/polycreds/internal/pkg/metrics"
)

// Gate rejection reasons, also used as AppError.Reason and metric labels.
const (
	GateBlocked     = "BLOCKED"
	GateRateLimited = "RATE_LIMITED"
	GateCooldown    = "COOLDOWN"
)

type DeriveGateOptions struct {
	MaxAttempts int
	Window      time.Duration
	Cooldown    time.Duration
	Block       time.Duration
}

func DefaultDeriveGateOptions() DeriveGateOptions {
	return DeriveGateOptions{
		MaxAttempts: 2,
		Window:      60 * time.Second,
		Cooldown:    10 * time.Second,
		Block:       30 * time.Minute,
	}
}

// DeriveGateOptionsFromConfig falls back to the defaults for unset values.
func DeriveGateOptionsFromConfig(cfg config.DeriveGateConfig) DeriveGateOptions {
	opts := DefaultDeriveGateOptions()
	if cfg.MaxAttemptsPerWindow > 0 {
		opts.MaxAttempts = cfg.MaxAttemptsPerWindow
	}
	if cfg.WindowSeconds > 0 {
		opts.Window = time.Duration(cfg.WindowSeconds) * time.Second
	}
	if cfg.CooldownSeconds > 0 {
		opts.Cooldown = time.Duration(cfg.CooldownSeconds) * time.Second
	}
	if cfg.BlockMinutes > 0 {
		opts.Block = time.Duration(cfg.BlockMinutes) * time.Minute
	}
	return opts
}

// DeriveGate 保护 create/derive API key 调用: 窗口限流 + 冷却 + 永久拒绝后的长时间封禁
type DeriveGate struct {
	mu    sync.Mutex
	opts  DeriveGateOptions
	state model.DeriveGateState
	now   func() time.Time
}

func NewDeriveGate(opts DeriveGateOptions) *DeriveGate {
	return &DeriveGate{opts: opts, now: time.Now}
}

// Acquire checks the gate and, when it is open, records the attempt in the same
// critical section. A recorded attempt counts even if the exchange call fails.
func (g *DeriveGate) Acquire() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	st := &g.state

	if now.Before(st.BlockedUntil) {
		wait := st.BlockedUntil.Sub(now)
		return g.reject(GateBlocked, wait, fmt.Sprintf(
			"credential derivation blocked after the exchange refused key creation; retry in %ds", apperrors.CeilSeconds(wait)))
	}

	if st.WindowStart.IsZero() || now.Sub(st.WindowStart) > g.opts.Window {
		st.WindowStart = now
		st.AttemptsInWindow = 0
	}

	if st.AttemptsInWindow >= g.opts.MaxAttempts {
		wait := st.WindowStart.Add(g.opts.Window).Sub(now)
		if wait <= 0 {
			wait = time.Second
		}
		return g.reject(GateRateLimited, wait, fmt.Sprintf(
			"credential derivation rate limited (%d per %s); retry in %ds", g.opts.MaxAttempts, g.opts.Window, apperrors.CeilSeconds(wait)))
	}

	if !st.LastAttempt.IsZero() {
		if since := now.Sub(st.LastAttempt); since < g.opts.Cooldown {
			wait := g.opts.Cooldown - since
			return g.reject(GateCooldown, wait, fmt.Sprintf(
				"credential derivation cooling down; retry in %ds", apperrors.CeilSeconds(wait)))
		}
	}

	st.AttemptsInWindow++
	st.LastAttempt = now
	return nil
}

// Block applies the long block after a definitive refusal and returns its end.
func (g *DeriveGate) Block() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state.BlockedUntil = g.now().Add(g.opts.Block)
	return g.state.BlockedUntil
}

func (g *DeriveGate) Snapshot() model.DeriveGateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *DeriveGate) reject(reason string, wait time.Duration, msg string) error {
	metrics.GateRejects.WithLabelValues(reason).Inc()
	return apperrors.NewGateRejected(reason, msg, wait)
}
