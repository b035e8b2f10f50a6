package cart

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/cartsync/internal/notifications"
	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
	"github.com/angelmondragon/cartsync/pkg/logger"
)

// Sessions hands out the cart mirror owned by a user.
type Sessions interface {
	ForUser(ctx context.Context, userID string) (*Manager, error)
}

// RegistryParams carries the collaborators shared by every mirror.
type RegistryParams struct {
	Service   CartService
	Notifier  notifications.Notifier
	Snapshots SnapshotStore
	Metrics   operationMetrics
	Logger    *logger.Logger
	Now       func() time.Time
}

// Registry owns one Manager per user, created lazily and seeded from the snapshot store.
type Registry struct {
	mu       sync.Mutex
	managers map[string]*Manager
	params   RegistryParams
}

func NewRegistry(params RegistryParams) (*Registry, error) {
	if params.Service == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cart service required")
	}
	return &Registry{
		managers: map[string]*Manager{},
		params:   params,
	}, nil
}

// ForUser returns the user's mirror, creating and restoring it on first use.
func (r *Registry) ForUser(ctx context.Context, userID string) (*Manager, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	r.mu.Lock()
	manager, ok := r.managers[userID]
	if !ok {
		var err error
		manager, err = NewManager(ManagerParams{
			UserID:    userID,
			Service:   r.params.Service,
			Notifier:  r.params.Notifier,
			Snapshots: r.params.Snapshots,
			Metrics:   r.params.Metrics,
			Logger:    r.params.Logger,
			Now:       r.params.Now,
		})
		if err != nil {
			r.mu.Unlock()
			return nil, err
		}
		r.managers[userID] = manager
	}
	manager.touch()
	r.mu.Unlock()

	manager.restore(ctx)
	return manager, nil
}

// Len returns the number of mirrors held.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.managers)
}

// Evict drops mirrors with nothing in flight and no activity within idleTTL.
// Their state stays in the snapshot store and is restored on the next ForUser.
func (r *Registry) Evict(idleTTL time.Duration) int {
	if idleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-idleTTL)

	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for userID, manager := range r.managers {
		if manager.idleSince(cutoff) {
			delete(r.managers, userID)
			evicted++
		}
	}
	return evicted
}

// RunEviction calls Evict every interval until ctx is done.
func (r *Registry) RunEviction(ctx context.Context, interval, idleTTL time.Duration) {
	if interval <= 0 || idleTTL <= 0 {
		return
	}
	logg := r.params.Logger
	if logg == nil {
		logg = logger.Nop()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Evict(idleTTL); n > 0 {
				logg.Debug(logg.WithField(ctx, "evicted", n), "idle cart sessions evicted")
			}
		}
	}
}

func (r *Registry) now() time.Time {
	if r.params.Now != nil {
		return r.params.Now()
	}
	return time.Now()
}
