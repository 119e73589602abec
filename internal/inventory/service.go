package inventory

import (
	"sync"

	"github.com/talkincode/cafestock/internal/domain"
	"github.com/talkincode/cafestock/internal/events"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// ProductEvent is the payload of product:created, product:updated and product:deleted
type ProductEvent struct {
	Product *domain.Product `json:"product"`
}

// CollectionEvent is the payload of products:saved, products:cleared and products:reset
type CollectionEvent struct {
	Count int `json:"count"`
}

// Options tune a Service. Zero values select the defaults.
type Options struct {
	// Locale orders product names when filtering
	Locale language.Tag
	// Money formats amounts in statistics
	Money domain.MoneyFormat
	// Seed returns the products used when storage is empty or on reset
	Seed func() []domain.Draft
}

// Service owns the in-memory product collection and keeps it in sync with a Repository.
// Every mutation is persisted before it becomes visible. A failed write leaves the
// collection unchanged and returns a PersistenceError.
type Service struct {
	mu       sync.RWMutex
	repo     Repository
	bus      *events.Bus
	opts     Options
	products []*domain.Product
}

// NewService builds the service and loads the collection from repo
func NewService(repo Repository, bus *events.Bus, opts Options) *Service {
	if bus == nil {
		bus = events.New()
	}
	if opts.Locale == language.Und {
		opts.Locale = domain.DefaultMoney.Locale
	}
	if opts.Money == (domain.MoneyFormat{}) {
		opts.Money = domain.DefaultMoney
	}
	if opts.Seed == nil {
		opts.Seed = domain.DefaultCatalog
	}
	s := &Service{repo: repo, bus: bus, opts: opts}
	s.Reload()
	return s
}

// Bus returns the bus the service publishes on
func (s *Service) Bus() *events.Bus {
	return s.bus
}

// Reload replaces the collection with the stored one. When nothing usable is
// stored, the seed catalog is loaded and written back.
func (s *Service) Reload() {
	products, ok := s.repo.Load()
	if !ok {
		products = s.seedProducts()
		if err := s.repo.Save(products); err != nil {
			zap.L().Warn("seed catalog could not be persisted",
				zap.String("namespace", "inventory"),
				zap.Error(err))
		}
		zap.L().Info("seed catalog loaded",
			zap.String("namespace", "inventory"),
			zap.Int("count", len(products)))
	}
	s.mu.Lock()
	s.products = products
	s.mu.Unlock()
}

func (s *Service) seedProducts() []*domain.Product {
	drafts := s.opts.Seed()
	products := make([]*domain.Product, 0, len(drafts))
	for _, d := range drafts {
		products = append(products, domain.NewProduct(d))
	}
	return products
}

// commit persists next and swaps it in. The caller holds the write lock.
func (s *Service) commit(op string, next []*domain.Product) error {
	if err := s.repo.Save(next); err != nil {
		zap.L().Error("products persist failed",
			zap.String("namespace", "inventory"),
			zap.String("op", op),
			zap.Error(err))
		return &PersistenceError{Op: op}
	}
	s.products = next
	return nil
}

func (s *Service) snapshot() []*domain.Product {
	next := make([]*domain.Product, len(s.products))
	copy(next, s.products)
	return next
}

func (s *Service) indexOf(id string) int {
	for i, p := range s.products {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Count returns the number of products
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products)
}

// GetAll returns copies of every product in insertion order
func (s *Service) GetAll() []*domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.products)
}

// GetByID returns a copy of the product, or nil when the id is unknown
func (s *Service) GetByID(id string) *domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.products[i].Clone()
	}
	return nil
}

// Add validates and appends a new product, then publishes product:created
func (s *Service) Add(d domain.Draft) (*domain.Product, error) {
	p := domain.NewProduct(d)
	if vs := p.Violations(); len(vs) > 0 {
		return nil, &ValidationError{Violations: vs}
	}

	s.mu.Lock()
	if s.indexOf(p.ID) >= 0 {
		s.mu.Unlock()
		return nil, &ValidationError{Violations: []domain.Violation{{Field: "id", Message: "already exists"}}}
	}
	next := append(s.snapshot(), p)
	if err := s.commit("add", next); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	count := len(next)
	s.mu.Unlock()

	zap.L().Info("product created",
		zap.String("namespace", "inventory"),
		zap.String("id", p.ID),
		zap.String("name", p.Name))
	s.bus.Publish(events.ProductsSaved, CollectionEvent{Count: count})
	s.bus.Publish(events.ProductCreated, ProductEvent{Product: p.Clone()})
	return p.Clone(), nil
}

// Update applies the allow-listed changes to the product with id, then publishes product:updated
func (s *Service) Update(id string, c domain.Changes) (*domain.Product, error) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return nil, &NotFoundError{ID: id}
	}
	updated := s.products[i].Clone()
	updated.Apply(c)
	if vs := updated.Violations(); len(vs) > 0 {
		s.mu.Unlock()
		return nil, &ValidationError{Violations: vs}
	}
	next := s.snapshot()
	next[i] = updated
	if err := s.commit("update", next); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	count := len(next)
	s.mu.Unlock()

	zap.L().Info("product updated",
		zap.String("namespace", "inventory"),
		zap.String("id", id))
	s.bus.Publish(events.ProductsSaved, CollectionEvent{Count: count})
	s.bus.Publish(events.ProductUpdated, ProductEvent{Product: updated.Clone()})
	return updated.Clone(), nil
}

// Remove deletes the product with id and returns it, then publishes product:deleted
func (s *Service) Remove(id string) (*domain.Product, error) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return nil, &NotFoundError{ID: id}
	}
	removed := s.products[i]
	next := make([]*domain.Product, 0, len(s.products)-1)
	next = append(next, s.products[:i]...)
	next = append(next, s.products[i+1:]...)
	if err := s.commit("remove", next); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	count := len(next)
	s.mu.Unlock()

	zap.L().Info("product deleted",
		zap.String("namespace", "inventory"),
		zap.String("id", id))
	s.bus.Publish(events.ProductsSaved, CollectionEvent{Count: count})
	s.bus.Publish(events.ProductDeleted, ProductEvent{Product: removed.Clone()})
	return removed.Clone(), nil
}

// Clear removes every product, then publishes products:cleared
func (s *Service) Clear() error {
	s.mu.Lock()
	if err := s.commit("clear", []*domain.Product{}); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	zap.L().Info("products cleared", zap.String("namespace", "inventory"))
	s.bus.Publish(events.ProductsSaved, CollectionEvent{})
	s.bus.Publish(events.ProductsCleared, CollectionEvent{})
	return nil
}

// ResetToDefault replaces the collection with a fresh seed catalog, then publishes products:reset
func (s *Service) ResetToDefault() error {
	seed := s.seedProducts()
	s.mu.Lock()
	if err := s.commit("reset", seed); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	zap.L().Info("products reset to default catalog",
		zap.String("namespace", "inventory"),
		zap.Int("count", len(seed)))
	s.bus.Publish(events.ProductsSaved, CollectionEvent{Count: len(seed)})
	s.bus.Publish(events.ProductsReset, CollectionEvent{Count: len(seed)})
	return nil
}

func cloneAll(products []*domain.Product) []*domain.Product {
	out := make([]*domain.Product, 0, len(products))
	for _, p := range products {
		out = append(out, p.Clone())
	}
	return out
}
