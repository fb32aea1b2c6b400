// Package services contains the client store: the single owner of the
// companion state. Every mutation is applied in memory, persisted locally
// right away and pushed to the remote document after a quiet period.
// Remote snapshots are merged back in, and deleted companions never
// reappear.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/soullink/internal/client/client"
	"github.com/dmitrijs2005/soullink/internal/client/debounce"
	"github.com/dmitrijs2005/soullink/internal/client/localstore"
	"github.com/dmitrijs2005/soullink/internal/client/notify"
	"github.com/dmitrijs2005/soullink/internal/client/reconcile"
	"github.com/dmitrijs2005/soullink/internal/client/replies"
	"github.com/dmitrijs2005/soullink/internal/client/scheduler"
	"github.com/dmitrijs2005/soullink/internal/client/seed"
	"github.com/dmitrijs2005/soullink/internal/client/tombstones"
	"github.com/dmitrijs2005/soullink/internal/common"
	"github.com/dmitrijs2005/soullink/internal/logging"
	"github.com/dmitrijs2005/soullink/internal/models"
	"github.com/oklog/ulid/v2"
)

const (
	DefaultDebounce           = 2 * time.Second
	DefaultMomentCommentDelay = 3 * time.Second
	DefaultMomentReplyDelay   = 2500 * time.Millisecond
)

// LocalStore is the durable side of the store.
type LocalStore interface {
	SaveLocal(ctx context.Context, st models.State) (localstore.SaveReport, error)
	LoadLocal(ctx context.Context) (*models.State, error)
}

type Options struct {
	UserID             string
	Debounce           time.Duration
	MomentCommentDelay time.Duration
	MomentReplyDelay   time.Duration
	Now                func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	if o.MomentCommentDelay <= 0 {
		o.MomentCommentDelay = DefaultMomentCommentDelay
	}
	if o.MomentReplyDelay <= 0 {
		o.MomentReplyDelay = DefaultMomentReplyDelay
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// errNoChange aborts a mutation without persisting or notifying.
var errNoChange = errors.New("no change")

type Store struct {
	local     LocalStore
	remote    client.RemoteStore
	generator replies.Generator
	logger    logging.Logger
	opts      Options

	tombs     *tombstones.Registry
	bus       *notify.Bus
	debouncer *debounce.Debouncer
	sched     *scheduler.Scheduler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	state       models.State
	seq         uint64
	started     bool
	disposed    bool
	unsubscribe func()

	persistMu  sync.Mutex
	persisted  uint64
	lastReport localstore.SaveReport

	// pushMu serializes remote writes. The state is read after it is
	// acquired, so the last write to land always carries the newest state.
	pushMu sync.Mutex

	disposeOnce sync.Once
}

// NewStore wires the store. remote may be nil, which keeps the store purely
// local. Start must be called before use.
func NewStore(local LocalStore, remote client.RemoteStore, generator replies.Generator, opts Options, logger logging.Logger) *Store {
	if generator == nil {
		generator = replies.NewMockGenerator()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		local:     local,
		remote:    remote,
		generator: generator,
		logger:    logging.OrNop(logger).With("module", "store"),
		opts:      opts.withDefaults(),
		tombs:     tombstones.NewRegistry(),
		bus:       notify.NewBus(logger),
		sched:     scheduler.New(),
		ctx:       ctx,
		cancel:    cancel,
		state: models.State{
			Companions:          []models.Companion{},
			Moments:             []models.Moment{},
			DeletedCompanionIDs: []string{},
		},
	}
	s.debouncer = debounce.New(s.opts.Debounce, func() { s.pushRemote(s.ctx) })
	return s
}

// Start loads the local record, seeding it when there is none, and
// subscribes to the remote document.
func (s *Store) Start(ctx context.Context) error {
	st, err := s.local.LoadLocal(ctx)
	if err != nil {
		return fmt.Errorf("load local state: %w", err)
	}

	seeded := st == nil
	if seeded {
		fresh := seed.State(s.opts.Now())
		st = &fresh
		s.logger.Info(ctx, "no usable local record, starting from seed data")
	}

	s.tombs.Union(st.DeletedCompanionIDs)
	st.Companions = s.tombs.Filter(st.Companions)
	st.DeletedCompanionIDs = s.tombs.IDs()

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return common.ErrStoreDisposed
	}
	if s.started {
		s.mu.Unlock()
		return errors.New("store already started")
	}
	s.started = true
	s.state = *st
	s.seq++
	snap, seq := s.state.Clone(), s.seq
	s.mu.Unlock()

	if seeded {
		s.persistLocal(ctx, snap, seq)
	}

	if s.remote != nil {
		unsubscribe, err := s.remote.Subscribe(s.ctx, s.opts.UserID, s.onSnapshot)
		if err != nil {
			s.logger.Warn(ctx, "remote subscription failed, working offline", "error", err)
		} else {
			s.mu.Lock()
			s.unsubscribe = unsubscribe
			s.mu.Unlock()
		}
	}

	s.bus.Notify()
	return nil
}

func (s *Store) UserID() string {
	return s.opts.UserID
}

// OnChange registers fn to run after every state change.
func (s *Store) OnChange(fn func()) (unsubscribe func()) {
	return s.bus.Subscribe(fn)
}

// LastSaveReport describes the most recent local write.
func (s *Store) LastSaveReport() localstore.SaveReport {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	return s.lastReport
}

// apply runs fn as one critical section over the live state, then persists
// the result locally and notifies listeners.
func (s *Store) apply(ctx context.Context, fn func(st *models.State) error) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return common.ErrStoreDisposed
	}
	if err := fn(&s.state); err != nil {
		s.mu.Unlock()
		if errors.Is(err, errNoChange) {
			return nil
		}
		return err
	}
	s.state.DeletedCompanionIDs = s.tombs.IDs()
	s.seq++
	snap, seq := s.state.Clone(), s.seq
	s.mu.Unlock()

	s.persistLocal(ctx, snap, seq)
	s.bus.Notify()
	return nil
}

// mutate is apply followed by a debounced remote save.
func (s *Store) mutate(ctx context.Context, fn func(st *models.State) error) error {
	if err := s.apply(ctx, fn); err != nil {
		return err
	}
	s.debouncer.Trigger()
	return nil
}

// persistLocal writes snap unless a newer snapshot was already written.
func (s *Store) persistLocal(ctx context.Context, snap models.State, seq uint64) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if seq <= s.persisted {
		return
	}

	report, err := s.local.SaveLocal(ctx, snap)
	if err != nil {
		s.logger.Error(ctx, "local save failed", "error", err)
		return
	}
	s.persisted = seq
	s.lastReport = report
	if report.Degraded {
		s.logger.Warn(ctx, "local save degraded, in-memory state kept", "strategy", report.Strategy.String())
	}
}

// pushRemote writes the current state to the remote document. Failures are
// logged; the next mutation or snapshot retries.
func (s *Store) pushRemote(ctx context.Context) {
	if s.remote == nil {
		return
	}

	s.pushMu.Lock()
	defer s.pushMu.Unlock()

	s.mu.Lock()
	doc := models.Document{State: s.state.Clone(), LastUpdated: s.opts.Now().UnixMilli()}
	s.mu.Unlock()

	if err := s.remote.Save(ctx, s.opts.UserID, doc); err != nil {
		s.logger.Warn(ctx, "remote save failed", "error", err)
		return
	}
	s.logger.Debug(ctx, "remote document saved", "companions", len(doc.Companions), "moments", len(doc.Moments))
}

func (s *Store) onSnapshot(doc *models.Document, exists bool) {
	ctx := s.ctx
	if !exists || doc == nil {
		s.logger.Info(ctx, "no remote document yet, uploading local state")
		s.pushRemote(ctx)
		return
	}

	var push bool
	err := s.apply(ctx, func(st *models.State) error {
		s.tombs.Union(doc.DeletedCompanionIDs)
		merged := reconcile.Merge(*st, doc.State, s.tombs)
		push = contributes(merged, doc.State)
		*st = merged
		return nil
	})
	if err != nil {
		if !errors.Is(err, common.ErrStoreDisposed) {
			s.logger.Error(ctx, "apply remote snapshot", "error", err)
		}
		return
	}

	if push {
		s.debouncer.Trigger()
	}
}

// contributes reports whether merged holds companions, messages, moments
// or tombstones the remote record lacks.
func contributes(merged, remote models.State) bool {
	if len(merged.DeletedCompanionIDs) != len(remote.DeletedCompanionIDs) {
		return true
	}

	remoteHistory := make(map[string]int, len(remote.Companions))
	for _, c := range remote.Companions {
		remoteHistory[c.ID] = len(c.ChatHistory)
	}
	if len(merged.Companions) != len(remoteHistory) {
		return true
	}
	for _, c := range merged.Companions {
		n, ok := remoteHistory[c.ID]
		if !ok || n != len(c.ChatHistory) {
			return true
		}
	}

	remoteMoments := make(map[string]struct{}, len(remote.Moments))
	for _, m := range remote.Moments {
		remoteMoments[m.ID] = struct{}{}
	}
	if len(merged.Moments) != len(remoteMoments) {
		return true
	}
	for _, m := range merged.Moments {
		if _, ok := remoteMoments[m.ID]; !ok {
			return true
		}
	}
	return false
}

// goBackground runs fn on the store context unless the store is disposed.
func (s *Store) goBackground(fn func(ctx context.Context)) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		fn(s.ctx)
	}()
}

// Flush pushes a pending debounced save now and reports whether there was
// one.
func (s *Store) Flush() bool {
	return s.debouncer.Flush()
}

// Dispose releases the store: the snapshot listener is removed, pending
// saves and scheduled tasks are dropped and background work is awaited.
// Call Flush first to keep a pending remote save.
func (s *Store) Dispose() {
	s.disposeOnce.Do(func() {
		s.mu.Lock()
		s.disposed = true
		unsubscribe := s.unsubscribe
		s.unsubscribe = nil
		s.mu.Unlock()

		if unsubscribe != nil {
			unsubscribe()
		}
		s.cancel()
		s.debouncer.Stop()
		s.sched.Stop()
		s.wg.Wait()
	})
}

func (s *Store) now() int64 {
	return s.opts.Now().UnixMilli()
}

// newID returns a time-sortable id for messages, photos and moments.
func (s *Store) newID() string {
	return ulid.MustNew(ulid.Timestamp(s.opts.Now()), ulid.DefaultEntropy()).String()
}

// companionLocked resolves id in st.
func (s *Store) companionLocked(st *models.State, id string) (*models.Companion, error) {
	if s.tombs.IsDeleted(id) {
		return nil, fmt.Errorf("%w: %s", common.ErrCompanionDeleted, id)
	}
	idx := st.CompanionIndex(id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", common.ErrCompanionNotFound, id)
	}
	return &st.Companions[idx], nil
}

func (s *Store) momentLocked(st *models.State, id string) (*models.Moment, error) {
	idx := st.MomentIndex(id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", common.ErrMomentNotFound, id)
	}
	return &st.Moments[idx], nil
}
