package memory

import (
	"context"
	"log/slog"
	"maps"
	"sync"

	"github.com/mrops-br/price-watch-api/internal/domain"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Store is an in-memory implementation of domain.CatalogStore.
// Transactions run one at a time on a private copy of the catalog that
// replaces the committed state only when the transaction succeeds.
type Store struct {
	txMu   sync.Mutex
	mu     sync.RWMutex
	state  *state
	tracer trace.Tracer
	logger *slog.Logger
}

// Compile-time check that Store implements domain.CatalogStore.
var _ domain.CatalogStore = (*Store)(nil)

// NewStore creates a new empty in-memory catalog
func NewStore(tracer trace.Tracer, logger *slog.Logger) *Store {
	return &Store{
		state:  newState(),
		tracer: tracer,
		logger: logger,
	}
}

type sequences struct {
	product      int64
	category     int64
	value        int64
	user         int64
	subscription int64
}

type state struct {
	products      map[int64]domain.Product
	productNames  map[string]int64
	categories    map[int64]domain.Category
	categoryExtID map[string]int64
	users         map[int64]domain.User
	subscriptions map[int64]domain.Subscription
	seq           sequences
}

func newState() *state {
	return &state{
		products:      make(map[int64]domain.Product),
		productNames:  make(map[string]int64),
		categories:    make(map[int64]domain.Category),
		categoryExtID: make(map[string]int64),
		users:         make(map[int64]domain.User),
		subscriptions: make(map[int64]domain.Subscription),
	}
}

// clone copies every index. Stored values are never mutated in place, so a
// shallow copy of each map is enough to isolate a transaction.
func (st *state) clone() *state {
	return &state{
		products:      maps.Clone(st.products),
		productNames:  maps.Clone(st.productNames),
		categories:    maps.Clone(st.categories),
		categoryExtID: maps.Clone(st.categoryExtID),
		users:         maps.Clone(st.users),
		subscriptions: maps.Clone(st.subscriptions),
		seq:           st.seq,
	}
}

// WithinTx runs fn against a snapshot and commits it if fn succeeds
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	ctx, span := s.tracer.Start(ctx, "Store.WithinTx")
	defer span.End()

	err := s.update(ctx, func(st *state) error {
		return fn(ctx, &tx{view: view{store: s, st: st}})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Transaction rolled back")
		s.logger.DebugContext(ctx, "Transaction rolled back",
			slog.String("error", err.Error()),
		)
		return err
	}

	span.SetStatus(codes.Ok, "Transaction committed")
	return nil
}

// update is the single writer path: it serializes writers, applies fn to a
// copy and swaps the copy in on success
func (s *Store) update(_ context.Context, fn func(st *state) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	work := s.state.clone()
	s.mu.RUnlock()

	if err := fn(work); err != nil {
		return err
	}

	s.mu.Lock()
	s.state = work
	s.mu.Unlock()
	return nil
}

// Close is a no-op for the in-memory store
func (s *Store) Close() error {
	return nil
}

func (s *Store) Products() domain.ProductRepository {
	return &ProductRepository{view: view{store: s}}
}

func (s *Store) Categories() domain.CategoryRepository {
	return &CategoryRepository{view: view{store: s}}
}

func (s *Store) Users() domain.UserRepository {
	return &UserRepository{view: view{store: s}}
}

func (s *Store) Subscriptions() domain.SubscriptionRepository {
	return &SubscriptionRepository{view: view{store: s}}
}

// view binds repositories either to a transaction snapshot (st != nil) or to
// the committed state
type view struct {
	store *Store
	st    *state
}

func (v view) read(fn func(st *state) error) error {
	if v.st != nil {
		return fn(v.st)
	}
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()
	return fn(v.store.state)
}

func (v view) write(ctx context.Context, fn func(st *state) error) error {
	if v.st != nil {
		return fn(v.st)
	}
	return v.store.update(ctx, fn)
}

type tx struct {
	view view
}

func (t *tx) Products() domain.ProductRepository {
	return &ProductRepository{view: t.view}
}

func (t *tx) Categories() domain.CategoryRepository {
	return &CategoryRepository{view: t.view}
}

func (t *tx) Users() domain.UserRepository {
	return &UserRepository{view: t.view}
}

func (t *tx) Subscriptions() domain.SubscriptionRepository {
	return &SubscriptionRepository{view: t.view}
}
