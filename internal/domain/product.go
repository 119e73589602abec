package domain

import (
	"time"

	jsoniter "github.com/json-iterator/go"
)

// MinStockThreshold is the stock level under which a product counts as low stock
const MinStockThreshold = 5

// StockLevel classifies a product by its stock
type StockLevel string

const (
	StockLow    StockLevel = "low"
	StockOut    StockLevel = "out"
	StockNormal StockLevel = "normal"
)

// Product is a single inventory item. The JSON layout is the persisted record layout.
type Product struct {
	ID          string    `json:"id" validate:"required"`
	Name        string    `json:"name" validate:"required,notblank,max=100,productname"`
	Type        Type      `json:"type" validate:"required,oneof=coffee food drink dessert"`
	Category    string    `json:"category" validate:"required"`
	Price       float64   `json:"price" validate:"gt=0"`
	Stock       int       `json:"stock" validate:"gte=0"`
	Description string    `json:"description" validate:"max=500"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Draft carries optional construction fields. Nil fields take defaults in NewProduct.
type Draft struct {
	ID          *string    `json:"id,omitempty" mapstructure:"id"`
	Name        *string    `json:"name,omitempty" mapstructure:"name"`
	Type        *Type      `json:"type,omitempty" mapstructure:"type"`
	Category    *string    `json:"category,omitempty" mapstructure:"category"`
	Price       *float64   `json:"price,omitempty" mapstructure:"price"`
	Stock       *int       `json:"stock,omitempty" mapstructure:"stock"`
	Description *string    `json:"description,omitempty" mapstructure:"description"`
	Active      *bool      `json:"active,omitempty" mapstructure:"active"`
	CreatedAt   *time.Time `json:"createdAt,omitempty" mapstructure:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty" mapstructure:"updatedAt"`
}

// Changes lists the fields an update may touch. id and createdAt are never updatable.
type Changes struct {
	Name        *string  `json:"name,omitempty" mapstructure:"name"`
	Type        *Type    `json:"type,omitempty" mapstructure:"type"`
	Category    *string  `json:"category,omitempty" mapstructure:"category"`
	Price       *float64 `json:"price,omitempty" mapstructure:"price"`
	Stock       *int     `json:"stock,omitempty" mapstructure:"stock"`
	Description *string  `json:"description,omitempty" mapstructure:"description"`
	Active      *bool    `json:"active,omitempty" mapstructure:"active"`
}

// Empty reports whether no field is set
func (c Changes) Empty() bool {
	return c.Name == nil && c.Type == nil && c.Category == nil && c.Price == nil &&
		c.Stock == nil && c.Description == nil && c.Active == nil
}

// NewProduct builds a product from a draft, filling defaults for missing fields.
// A missing type becomes coffee and a missing category becomes the first category of the type.
func NewProduct(d Draft) *Product {
	now := time.Now()
	p := &Product{
		Type:      TypeCoffee,
		Active:    true,
		CreatedAt: now,
	}
	if d.ID != nil && *d.ID != "" {
		p.ID = *d.ID
	} else {
		p.ID = NewID()
	}
	if d.Name != nil {
		p.Name = *d.Name
	}
	if d.Type != nil && *d.Type != "" {
		p.Type = *d.Type
	}
	if d.Category != nil && *d.Category != "" {
		p.Category = *d.Category
	} else {
		p.Category = DefaultCategory(p.Type)
	}
	if d.Price != nil {
		p.Price = *d.Price
	}
	if d.Stock != nil {
		p.Stock = *d.Stock
	}
	if d.Description != nil {
		p.Description = *d.Description
	}
	if d.Active != nil {
		p.Active = *d.Active
	}
	if d.CreatedAt != nil && !d.CreatedAt.IsZero() {
		p.CreatedAt = *d.CreatedAt
	}
	p.UpdatedAt = now
	if d.UpdatedAt != nil && !d.UpdatedAt.IsZero() {
		p.UpdatedAt = *d.UpdatedAt
	}
	return p
}

// Apply merges allow-listed changes into the product and advances UpdatedAt.
func (p *Product) Apply(c Changes) {
	if c.Name != nil {
		p.Name = *c.Name
	}
	if c.Type != nil {
		p.Type = *c.Type
	}
	if c.Category != nil {
		p.Category = *c.Category
	}
	if c.Price != nil {
		p.Price = *c.Price
	}
	if c.Stock != nil {
		p.Stock = *c.Stock
	}
	if c.Description != nil {
		p.Description = *c.Description
	}
	if c.Active != nil {
		p.Active = *c.Active
	}
	now := time.Now()
	if now.Before(p.UpdatedAt) {
		now = p.UpdatedAt
	}
	p.UpdatedAt = now
}

// Clone returns an independent copy
func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

func (p *Product) IsLowStock() bool {
	return p.Stock < MinStockThreshold
}

func (p *Product) IsOutOfStock() bool {
	return p.Stock == 0
}

// StockLevel returns out, low or normal. An out of stock product is never reported as low.
func (p *Product) StockLevel() StockLevel {
	switch {
	case p.IsOutOfStock():
		return StockOut
	case p.IsLowStock():
		return StockLow
	default:
		return StockNormal
	}
}

// StockStatus describes the stock level for display
type StockStatus struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// StockStatus maps out of stock to critical and low stock to warning
func (p *Product) StockStatus() StockStatus {
	switch p.StockLevel() {
	case StockOut:
		return StockStatus{Level: "critical", Message: "Out of stock"}
	case StockLow:
		return StockStatus{Level: "warning", Message: "Low stock"}
	default:
		return StockStatus{Level: "normal", Message: "Stock normal"}
	}
}

// HasStockLevel reports whether the product falls in the given filter class.
// Low includes out of stock products.
func (p *Product) HasStockLevel(level StockLevel) bool {
	switch level {
	case StockLow:
		return p.IsLowStock()
	case StockOut:
		return p.IsOutOfStock()
	case StockNormal:
		return !p.IsLowStock() && !p.IsOutOfStock()
	default:
		return true
	}
}

// FormattedPrice renders the price in the default currency, without fractional digits
func (p *Product) FormattedPrice() string {
	return DefaultMoney.Format(p.Price)
}

// TotalValue is the value of the units in stock
func (p *Product) TotalValue() float64 {
	return p.Price * float64(p.Stock)
}

func (p *Product) FormattedTotalValue() string {
	return DefaultMoney.Format(p.TotalValue())
}

func (p *Product) TypeIcon() string {
	return p.Type.Icon()
}

// Draft returns a draft carrying every field of the product
func (p *Product) Draft() Draft {
	cp := *p
	return Draft{
		ID:          &cp.ID,
		Name:        &cp.Name,
		Type:        &cp.Type,
		Category:    &cp.Category,
		Price:       &cp.Price,
		Stock:       &cp.Stock,
		Description: &cp.Description,
		Active:      &cp.Active,
		CreatedAt:   &cp.CreatedAt,
		UpdatedAt:   &cp.UpdatedAt,
	}
}

// Serialize returns the persisted JSON record of the product
func (p *Product) Serialize() ([]byte, error) {
	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(p)
}

// Deserialize rebuilds a product from a persisted record.
// Missing fields take the same defaults as NewProduct.
func Deserialize(data []byte) (*Product, error) {
	var d Draft
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return NewProduct(d), nil
}
