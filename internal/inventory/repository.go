package inventory

import (
	"github.com/talkincode/cafestock/internal/domain"
	"github.com/talkincode/cafestock/internal/storage"
)

// DefaultProductsKey is the storage key of the product list
const DefaultProductsKey = "cafeteria_products"

// Repository loads and stores the whole product list
type Repository interface {
	// Load returns the stored products and false when nothing usable is stored
	Load() ([]*domain.Product, bool)
	// Save replaces the stored list
	Save(products []*domain.Product) error
}

// StorageRepository keeps the product list as one JSON array under a single key
type StorageRepository struct {
	store *storage.Manager
	key   string
}

func NewStorageRepository(store *storage.Manager, key string) *StorageRepository {
	if key == "" {
		key = DefaultProductsKey
	}
	return &StorageRepository{store: store, key: key}
}

// Key returns the storage key the repository writes
func (r *StorageRepository) Key() string {
	return r.key
}

func (r *StorageRepository) Load() ([]*domain.Product, bool) {
	var drafts []domain.Draft
	if !r.store.Get(r.key, &drafts) || drafts == nil {
		return nil, false
	}
	products := make([]*domain.Product, 0, len(drafts))
	for _, d := range drafts {
		products = append(products, domain.NewProduct(d))
	}
	return products, true
}

func (r *StorageRepository) Save(products []*domain.Product) error {
	if products == nil {
		products = []*domain.Product{}
	}
	if !r.store.Set(r.key, products) {
		return &PersistenceError{Op: "save"}
	}
	return nil
}
