// Package sync owns the synchronization cycle between the local store and the
// remote catalog: push the mutation queue, pull and merge remote changes,
// reconcile drift, advance the checkpoint.
//
// One Manager instance per process. A cycle is single-flight: concurrent Sync
// calls coalesce into the running cycle instead of queueing behind it.
package sync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shelfmark/shelfmark/internal/domain"
	domainerrors "github.com/shelfmark/shelfmark/internal/errors"
	"github.com/shelfmark/shelfmark/internal/remote"
	"github.com/shelfmark/shelfmark/internal/store"
	"github.com/shelfmark/shelfmark/internal/validation"
)

const defaultLookback = 24 * time.Hour

// Manager drives sync cycles. All triggers - the background ticker,
// connectivity restoration, explicit API calls - funnel into Sync.
type Manager struct {
	store     *store.Store
	client    *remote.Client
	validator *validation.Validator
	logger    *slog.Logger
	subs      *subscribers

	userID        string
	lookback      time.Duration
	interval      time.Duration
	probeInterval time.Duration

	mu      sync.Mutex
	syncing bool

	triggers chan string
}

// Options configures a Manager.
type Options struct {
	// UserID scopes settings and snapshots. Single-user install, but the
	// remote is multi-tenant.
	UserID string
	// Lookback is the changes window used when no checkpoint exists.
	Lookback time.Duration
	// Interval between background sync attempts; 0 disables the ticker.
	Interval time.Duration
	// ProbeInterval paces the connectivity watcher: a cheap status probe
	// that fires a sync as soon as the remote comes back instead of waiting
	// out the full interval. 0 disables the watcher.
	ProbeInterval time.Duration
}

// NewManager creates a sync manager.
func NewManager(s *store.Store, client *remote.Client, v *validation.Validator, logger *slog.Logger, opts Options) *Manager {
	lookback := opts.Lookback
	if lookback <= 0 {
		lookback = defaultLookback
	}

	return &Manager{
		store:         s,
		client:        client,
		validator:     v,
		logger:        logger,
		subs:          newSubscribers(),
		userID:        opts.UserID,
		lookback:      lookback,
		interval:      opts.Interval,
		probeInterval: opts.ProbeInterval,
		triggers:      make(chan string, 4),
	}
}

// Configured reports whether a remote endpoint is set up. Unconfigured means
// local-only mode: the queue accumulates and nothing syncs.
func (m *Manager) Configured() bool {
	return m.client.Configured()
}

// State returns the manager's current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.syncing {
		return StateSyncing
	}
	return StateIdle
}

// Subscribe registers for state-change events. The returned id releases the
// subscription via Unsubscribe.
func (m *Manager) Subscribe() (int, <-chan Event) {
	return m.subs.subscribe()
}

// Unsubscribe releases a subscription and closes its channel.
func (m *Manager) Unsubscribe(id int) {
	m.subs.unsubscribe(id)
}

// Trigger requests a sync cycle without blocking. Used by the connectivity
// watcher and wake hooks; dropped when a trigger is already queued.
func (m *Manager) Trigger(reason string) {
	select {
	case m.triggers <- reason:
	default:
	}
}

// Run services the background ticker and trigger channel until ctx ends.
func (m *Manager) Run(ctx context.Context) {
	if m.probeInterval > 0 && m.client.Configured() {
		go m.watchConnectivity(ctx)
	}

	var tick <-chan time.Time
	if m.interval > 0 {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		var reason string
		select {
		case <-ctx.Done():
			m.subs.closeAll()
			return
		case reason = <-m.triggers:
		case <-tick:
			reason = "interval"
		}

		if _, err := m.Sync(ctx); err != nil {
			// Offline is the normal state of a laptop; anything else is
			// worth a warning.
			if domainerrors.Is(err, domainerrors.ErrOffline) {
				m.logger.Debug("sync skipped, offline", "trigger", reason)
			} else {
				m.logger.Warn("background sync failed", "trigger", reason, "error", err)
			}
		}
	}
}

// watchConnectivity probes the remote and fires a sync on the offline-to-
// online transition, so a laptop coming back from a cafe drains its queue
// right away instead of waiting out the interval. Probe failures are silent;
// the manager already logs offline cycles.
func (m *Manager) watchConnectivity(ctx context.Context) {
	ticker := time.NewTicker(m.probeInterval)
	defer ticker.Stop()

	wasOffline := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		_, err := m.client.Status(ctx)
		online := err == nil
		if online && wasOffline {
			m.Trigger("online")
		}
		wasOffline = !online
	}
}

// Sync runs one full cycle: probe, push, pull, reconcile, checkpoint.
// A second call while a cycle is in flight returns immediately with
// Result.Coalesced set and no error.
//
// ErrOffline is an expected outcome, not a fault: the queue keeps
// accumulating and a later trigger drains it.
func (m *Manager) Sync(ctx context.Context) (*Result, error) {
	m.mu.Lock()
	if m.syncing {
		m.mu.Unlock()
		return &Result{Coalesced: true}, nil
	}
	m.syncing = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.syncing = false
		m.mu.Unlock()
	}()

	result := &Result{StartedAt: time.Now()}
	m.subs.notify(Event{State: StateSyncing})

	err := m.runCycle(ctx, result)
	result.FinishedAt = time.Now()

	m.subs.notify(Event{State: StateIdle, Result: result, Err: err})
	if err != nil {
		return nil, err
	}

	m.logger.Info("sync cycle complete",
		"pushed", result.Pushed,
		"push_failed", result.PushFailed,
		"applied", result.Applied,
		"merged", result.Merged,
		"conflicts", result.Conflicts,
		"deleted", result.Deleted,
		"reconciled", result.Reconciled,
		"duration", result.FinishedAt.Sub(result.StartedAt),
	)
	return result, nil
}

func (m *Manager) runCycle(ctx context.Context, result *Result) error {
	// Connectivity probe. Failing fast here keeps offline cheap: no partial
	// push attempts, no spurious failure counts on queue entries.
	if _, err := m.client.Status(ctx); err != nil {
		if domainerrors.Is(err, domainerrors.ErrOffline) {
			return err
		}
		return domainerrors.Remote("sync endpoint unavailable").WithCause(err)
	}

	if err := m.push(ctx, result); err != nil {
		return err
	}

	// The pull boundary is taken before the request so changes landing
	// remotely mid-pull are covered by the next cycle.
	pullBoundary := time.Now()
	since, err := m.pullSince(ctx)
	if err != nil {
		return err
	}
	if err := m.pull(ctx, since, result); err != nil {
		return err
	}

	if err := m.reconcile(ctx, result); err != nil {
		return err
	}

	pending, err := m.store.PendingCount(ctx)
	if err != nil {
		return err
	}
	if err := m.store.SetCheckpoint(ctx, &domain.SyncCheckpoint{
		LastSyncTime: pullBoundary,
		PendingCount: pending,
	}); err != nil {
		return err
	}

	purged, err := m.store.PurgeSynced(ctx)
	if err != nil {
		return err
	}
	if purged > 0 {
		m.logger.Debug("purged acknowledged queue entries", "count", purged)
	}
	return nil
}

// push drains the mutation queue as one batch. Per-operation failures mark
// only their own entry; one bad operation never blocks its siblings.
func (m *Manager) push(ctx context.Context, result *Result) error {
	pending, err := m.store.Pending(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	pushResult, err := m.client.PushOperations(ctx, pending)
	if err != nil {
		// The whole batch call failed; every entry stays pending with the
		// failure recorded.
		ids := make([]string, len(pending))
		for i, op := range pending {
			ids[i] = op.ID
		}
		if markErr := m.store.MarkFailed(ctx, ids, err.Error()); markErr != nil {
			return markErr
		}
		return err
	}

	var synced, failed []string
	var failReason string
	for _, op := range pushResult.Results {
		if op.Accepted() {
			synced = append(synced, op.ID)
		} else {
			failed = append(failed, op.ID)
			failReason = op.Error
			m.logger.Warn("operation rejected by remote",
				"mutation_id", op.ID,
				"entity", op.Entity,
				"entity_id", op.EntityID,
				"error", op.Error,
			)
		}
	}

	if err := m.store.MarkSynced(ctx, synced); err != nil {
		return err
	}
	if err := m.store.MarkFailed(ctx, failed, failReason); err != nil {
		return err
	}

	result.Pushed = len(synced)
	result.PushFailed = len(failed)
	return nil
}

// pullSince resolves the changes window: checkpoint when present, otherwise
// the configured lookback.
func (m *Manager) pullSince(ctx context.Context) (time.Time, error) {
	cp, err := m.store.GetCheckpoint(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if cp != nil {
		return cp.LastSyncTime, nil
	}
	return time.Now().Add(-m.lookback), nil
}

// pull fetches remote changes since the boundary and applies them.
func (m *Manager) pull(ctx context.Context, since time.Time, result *Result) error {
	cs, err := m.client.Changes(ctx, since)
	if err != nil {
		return err
	}
	if cs.Empty() {
		return nil
	}

	// Entities with a still-pending local mutation go through the merge
	// engine instead of being overwritten.
	pendingSet, err := m.pendingEntitySet(ctx)
	if err != nil {
		return err
	}

	return m.applyChangeSet(ctx, cs, pendingSet, result)
}

// pendingEntitySet indexes unsynced mutations by entity kind and ID.
func (m *Manager) pendingEntitySet(ctx context.Context) (map[string]bool, error) {
	pending, err := m.store.Pending(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(pending))
	for _, op := range pending {
		set[string(op.Entity)+":"+op.EntityID] = true
	}
	return set, nil
}

// reconcile checks the remote's post-push status and uploads a full snapshot
// when the remote still reports pending operations or conflicts.
func (m *Manager) reconcile(ctx context.Context, result *Result) error {
	status, err := m.client.Status(ctx)
	if err != nil {
		return err
	}
	if !status.Drifted() {
		return nil
	}

	m.logger.Warn("remote reports drift after push, uploading full snapshot",
		"pending_operations", status.PendingOperations,
		"conflicts", status.Conflicts,
	)

	snapshot, err := m.store.ExportSnapshot(ctx, m.userID)
	if err != nil {
		return err
	}
	if _, err := m.client.FullSync(ctx, snapshot); err != nil {
		return err
	}
	result.Reconciled = true
	return nil
}

// ForceResync is the destructive recovery path: drop the local catalog and
// rebuild it from the remote's authoritative state. Pending local mutations
// are discarded with everything else. Manual invocation only.
func (m *Manager) ForceResync(ctx context.Context) (*Result, error) {
	m.mu.Lock()
	if m.syncing {
		m.mu.Unlock()
		return nil, domainerrors.ErrSyncInFlight
	}
	m.syncing = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.syncing = false
		m.mu.Unlock()
	}()

	result := &Result{StartedAt: time.Now()}
	m.subs.notify(Event{State: StateSyncing})

	err := m.runForceResync(ctx, result)
	result.FinishedAt = time.Now()
	m.subs.notify(Event{State: StateIdle, Result: result, Err: err})
	if err != nil {
		return nil, err
	}

	m.logger.Warn("force resync complete", "applied", result.Applied)
	return result, nil
}

func (m *Manager) runForceResync(ctx context.Context, result *Result) error {
	// Fetch the authoritative state before touching local data, so an
	// offline force-resync is a no-op instead of a wipe.
	cs, err := m.client.Changes(ctx, time.Time{})
	if err != nil {
		return err
	}

	if err := m.store.DropUserData(ctx); err != nil {
		return err
	}

	snap := &domain.Snapshot{
		Books:       cs.Books,
		Ratings:     cs.Ratings,
		Tags:        cs.Tags,
		Collections: cs.Collections,
		ReadingLogs: cs.ReadingLogs,
		Settings:    cs.Settings,
	}
	now := time.Now()
	markSnapshotSynced(snap, now)
	if err := m.store.ImportSnapshot(ctx, snap); err != nil {
		return err
	}

	result.Applied = snap.Counts()

	return m.store.SetCheckpoint(ctx, &domain.SyncCheckpoint{LastSyncTime: now})
}

// markSnapshotSynced clears sync flags on freshly pulled records: they are,
// by construction, exactly what the remote has.
func markSnapshotSynced(snap *domain.Snapshot, at time.Time) {
	for _, b := range snap.Books {
		b.MarkSynced(at)
	}
	for _, r := range snap.Ratings {
		r.MarkSynced(at)
	}
	for _, t := range snap.Tags {
		t.MarkSynced(at)
	}
	for _, c := range snap.Collections {
		c.MarkSynced(at)
	}
	for _, l := range snap.ReadingLogs {
		l.MarkSynced(at)
	}
	if snap.Settings != nil {
		snap.Settings.MarkSynced(at)
	}
}
