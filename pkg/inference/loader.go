package inference

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultLoadTimeout bounds a single shared model load.
const DefaultLoadTimeout = 2 * time.Minute

// Loader lazily loads a Provider's models once and shares the handle.
// Concurrent callers during a load wait for the same attempt. A failed load
// is not cached, so the next call retries.
//
// The shared load is detached from the caller that started it: a caller
// whose context ends stops waiting, but the load keeps running for the
// others until it finishes or LoadTimeout passes.
type Loader struct {
	provider Provider
	logger   *zap.Logger

	// LoadTimeout bounds each load attempt. Zero means DefaultLoadTimeout.
	LoadTimeout time.Duration

	group  singleflight.Group
	mu     sync.RWMutex
	handle Handle
}

// NewLoader creates a loader for p. A nil logger disables logging.
func NewLoader(p Provider, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{provider: p, logger: logger}
}

// Provider returns the underlying provider.
func (l *Loader) Provider() Provider {
	return l.provider
}

// Handle returns the loaded model handle, loading it on first use.
func (l *Loader) Handle(ctx context.Context) (Handle, error) {
	if h := l.cached(); h != nil {
		return h, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := l.group.DoChan("models", func() (any, error) {
		if h := l.cached(); h != nil {
			return h, nil
		}
		timeout := l.LoadTimeout
		if timeout <= 0 {
			timeout = DefaultLoadTimeout
		}
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		h, err := l.provider.Load(loadCtx)
		if err != nil {
			return nil, err
		}
		if h == nil {
			return nil, fmt.Errorf("%w: provider returned no handle", ErrModelsUnavailable)
		}
		l.mu.Lock()
		l.handle = h
		l.mu.Unlock()
		l.logger.Info("models loaded", zap.String("version", h.Version()))
		return h, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			l.logger.Warn("model load failed", zap.Error(res.Err), zap.Bool("shared", res.Shared))
			return nil, res.Err
		}
		return res.Val.(Handle), nil
	}
}

// Loaded reports whether a handle is cached.
func (l *Loader) Loaded() bool {
	return l.cached() != nil
}

// Reset drops the cached handle so the next call reloads.
func (l *Loader) Reset() {
	l.mu.Lock()
	l.handle = nil
	l.mu.Unlock()
}

func (l *Loader) cached() Handle {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.handle
}
