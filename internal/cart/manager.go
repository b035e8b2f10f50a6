package cart

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/cartsync/internal/notifications"
	"github.com/angelmondragon/cartsync/pkg/enums"
	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
	"github.com/angelmondragon/cartsync/pkg/logger"
	"github.com/angelmondragon/cartsync/pkg/types"
	"github.com/google/uuid"
)

// ManagerParams wires a cart mirror. Only Service is required.
type ManagerParams struct {
	UserID    string
	Service   CartService
	Notifier  notifications.Notifier
	Snapshots SnapshotStore
	Metrics   operationMetrics
	Logger    *logger.Logger
	Now       func() time.Time
}

// Manager mirrors one user's server-held cart. Service calls run outside the
// lock; their results are folded in under it, so concurrent operations apply
// in the order their responses arrive.
type Manager struct {
	mu         sync.Mutex
	items      []types.CartItem
	cartLoaded bool
	inflight   int
	version    uint64
	lastActive time.Time

	// saveMu orders snapshot writes; savedVersion is the newest version handed
	// to the store.
	saveMu       sync.Mutex
	savedVersion uint64

	userID    string
	service   CartService
	notifier  notifications.Notifier
	snapshots SnapshotStore
	metrics   operationMetrics
	logg      *logger.Logger
	now       func() time.Time

	hydrate sync.Once
}

func NewManager(params ManagerParams) (*Manager, error) {
	if params.Service == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cart service required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	var metrics operationMetrics = noopMetrics{}
	if params.Metrics != nil {
		metrics = params.Metrics
	}
	return &Manager{
		items:      []types.CartItem{},
		lastActive: now(),
		userID:     strings.TrimSpace(params.UserID),
		service:    params.Service,
		notifier:   params.Notifier,
		snapshots:  params.Snapshots,
		metrics:    metrics,
		logg:       logg,
		now:        now,
	}, nil
}

// UserID returns the owner this mirror was created for.
func (m *Manager) UserID() string {
	return m.userID
}

// Items returns a copy of the held items in reconciliation order.
func (m *Manager) Items() []types.CartItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneItems(m.items)
}

// Status is loading while any operation is outstanding.
func (m *Manager) Status() enums.SyncStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusLocked()
}

// CartLoaded reports whether a fetch has completed, successfully or not.
func (m *Manager) CartLoaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cartLoaded
}

// State returns a consistent copy of items, status and the loaded flag.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{
		Status:     m.statusLocked(),
		Items:      cloneItems(m.items),
		CartLoaded: m.cartLoaded,
	}
}

// AddItem creates item on the service and appends the stored copy.
func (m *Manager) AddItem(ctx context.Context, item types.CartItem) (types.CartItem, error) {
	op := m.begin(ctx, OpAddToCart)
	created, err := m.service.AddToCart(op.ctx, item)
	if err != nil {
		m.end(op, err, nil)
		return types.CartItem{}, err
	}

	snap := m.end(op, nil, func() {
		m.items = append(m.items, created.Clone())
	})
	m.persist(op, snap)
	m.notify(op, notifications.Notification{
		Level:   enums.NotificationLevelSuccess,
		Message: notifications.MessageItemAdded,
		ItemID:  created.ID(),
	})
	return created.Clone(), nil
}

// FetchItemsForUser replaces the held items with the service's list. A failed
// fetch still marks the cart loaded and keeps the previous items.
func (m *Manager) FetchItemsForUser(ctx context.Context, userID string) ([]types.CartItem, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		userID = m.userID
	}
	if m.userID != "" && userID != m.userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cart belongs to another user")
	}

	op := m.begin(ctx, OpFetchItemsByUser)
	fetched, err := m.service.FetchItemsByUser(op.ctx, userID)
	if err != nil {
		snap := m.end(op, err, func() {
			m.cartLoaded = true
		})
		m.persist(op, snap)
		return nil, err
	}

	snap := m.end(op, nil, func() {
		m.items = cloneItems(fetched)
		m.cartLoaded = true
	})
	m.persist(op, snap)
	return cloneItems(fetched), nil
}

// UpdateItem patches an item and replaces the first held item whose id matches
// the response. An unknown id leaves the held items untouched.
func (m *Manager) UpdateItem(ctx context.Context, update types.CartItem) (types.CartItem, error) {
	if !update.HasID() {
		return types.CartItem{}, pkgerrors.New(pkgerrors.CodeValidation, "cart item id is required")
	}

	op := m.begin(ctx, OpUpdateCart)
	updated, err := m.service.UpdateCart(op.ctx, update)
	if err != nil {
		m.end(op, err, nil)
		return types.CartItem{}, err
	}

	targetID := updated.ID()
	if targetID == "" {
		targetID = update.ID()
		updated = updated.WithID(targetID)
	}

	matched := false
	snap := m.end(op, nil, func() {
		if idx := indexOf(m.items, targetID); idx >= 0 {
			m.items[idx] = updated.Clone()
			matched = true
		}
	})
	if !matched {
		m.unmatched(op, targetID)
		return updated.Clone(), nil
	}
	m.persist(op, snap)
	return updated.Clone(), nil
}

// DeleteItem removes itemID on the service and drops the first held item whose
// id matches the response echo, or itemID when the echo carries none.
func (m *Manager) DeleteItem(ctx context.Context, itemID string) (types.CartItem, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return types.CartItem{}, pkgerrors.New(pkgerrors.CodeValidation, "cart item id is required")
	}

	op := m.begin(ctx, OpDeleteItemFromCart)
	deleted, err := m.service.DeleteItemFromCart(op.ctx, itemID)
	if err != nil {
		m.end(op, err, nil)
		return types.CartItem{}, err
	}

	targetID := deleted.ID()
	if targetID == "" {
		targetID = itemID
	}

	matched := false
	snap := m.end(op, nil, func() {
		if idx := indexOf(m.items, targetID); idx >= 0 {
			m.items = append(m.items[:idx:idx], m.items[idx+1:]...)
			matched = true
		}
	})
	if !matched {
		m.unmatched(op, targetID)
		return deleted.Clone(), nil
	}
	m.persist(op, snap)
	return deleted.Clone(), nil
}

// ResetCart clears the service-side cart and empties the held items.
func (m *Manager) ResetCart(ctx context.Context) error {
	op := m.begin(ctx, OpResetCart)
	if err := m.service.ResetCart(op.ctx); err != nil {
		m.end(op, err, nil)
		return err
	}
	snap := m.end(op, nil, func() {
		m.items = []types.CartItem{}
	})
	m.persist(op, snap)
	return nil
}

type operation struct {
	ctx     context.Context
	name    string
	id      string
	started time.Time
	version uint64
}

func (m *Manager) begin(ctx context.Context, name string) *operation {
	op := &operation{name: name, id: uuid.NewString(), started: m.now()}
	op.ctx = m.logg.WithOperation(ctx, name, op.id)
	if m.userID != "" {
		op.ctx = m.logg.WithUserID(op.ctx, m.userID)
	}

	m.mu.Lock()
	m.inflight++
	m.lastActive = op.started
	m.mu.Unlock()
	m.metrics.Begin()

	m.logg.Debug(op.ctx, "cart operation started")
	return op
}

// end folds apply into state, closes the operation and returns the resulting snapshot.
func (m *Manager) end(op *operation, err error, apply func()) Snapshot {
	m.mu.Lock()
	if apply != nil {
		apply()
	}
	m.inflight--
	m.version++
	op.version = m.version
	m.lastActive = m.now()
	snap := Snapshot{
		Items:      cloneItems(m.items),
		CartLoaded: m.cartLoaded,
		UpdatedAt:  m.now().UTC(),
	}
	m.mu.Unlock()

	elapsed := m.now().Sub(op.started)
	m.metrics.Finish(op.name, elapsed, err)

	ctx := m.logg.WithField(op.ctx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		if dump := pkgerrors.Dump(err); dump.UpstreamStatus != 0 {
			ctx = m.logg.WithField(ctx, "upstream_status", dump.UpstreamStatus)
		}
		m.logg.Error(ctx, "cart operation failed", err)
		return snap
	}
	m.logg.Info(ctx, "cart operation completed")
	return snap
}

func (m *Manager) unmatched(op *operation, itemID string) {
	m.metrics.IncUnmatched(op.name)
	m.logg.Warn(m.logg.WithField(op.ctx, "item_id", itemID), "cart response referenced an item not held locally")
}

func (m *Manager) persist(op *operation, snap Snapshot) {
	if m.snapshots == nil || m.userID == "" {
		return
	}

	m.saveMu.Lock()
	defer m.saveMu.Unlock()
	if op.version <= m.savedVersion {
		m.logg.Debug(op.ctx, "cart snapshot superseded, skipping save")
		return
	}
	m.savedVersion = op.version
	if err := m.snapshots.Save(op.ctx, m.userID, snap); err != nil {
		m.logg.Warn(m.logg.WithField(op.ctx, "error", err.Error()), "cart snapshot save failed")
	}
}

func (m *Manager) notify(op *operation, note notifications.Notification) {
	if m.notifier == nil {
		return
	}
	note.UserID = m.userID
	note.Operation = op.name
	note.OperationID = op.id
	note.CreatedAt = m.now().UTC()
	if err := m.notifier.Notify(op.ctx, note); err != nil {
		m.logg.Warn(m.logg.WithField(op.ctx, "error", err.Error()), "cart notification failed")
	}
}

// restore seeds state from a stored snapshot, once, before the mirror is handed out.
func (m *Manager) restore(ctx context.Context) {
	m.hydrate.Do(func() {
		if m.snapshots == nil || m.userID == "" {
			return
		}
		snap, ok, err := m.snapshots.Load(ctx, m.userID)
		if err != nil {
			m.logg.Warn(m.logg.WithField(m.logg.WithUserID(ctx, m.userID), "error", err.Error()), "cart snapshot load failed")
			return
		}
		if !ok {
			return
		}
		m.mu.Lock()
		m.items = cloneItems(snap.Items)
		m.cartLoaded = snap.CartLoaded
		m.mu.Unlock()
	})
}

func (m *Manager) touch() {
	m.mu.Lock()
	m.lastActive = m.now()
	m.mu.Unlock()
}

// idleSince reports whether no operation is outstanding and none has run since cutoff.
func (m *Manager) idleSince(cutoff time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inflight == 0 && m.lastActive.Before(cutoff)
}

func (m *Manager) statusLocked() enums.SyncStatus {
	if m.inflight > 0 {
		return enums.SyncStatusLoading
	}
	return enums.SyncStatusIdle
}

type noopMetrics struct{}

func (noopMetrics) Begin()                              {}
func (noopMetrics) Finish(string, time.Duration, error) {}
func (noopMetrics) IncUnmatched(string)                 {}
