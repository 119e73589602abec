package inventory

import (
	"sort"
	"strings"

	"github.com/montanaflynn/stats"
	"github.com/talkincode/cafestock/internal/domain"
	"golang.org/x/text/collate"
)

// Criteria narrows a product listing. Empty fields match everything.
type Criteria struct {
	Search      string            `json:"search" query:"q"`
	Type        domain.Type       `json:"type" query:"type"`
	Category    string            `json:"category" query:"category"`
	Active      *bool             `json:"active,omitempty" query:"active"`
	StockStatus domain.StockLevel `json:"stockStatus" query:"stock_status"`
}

// Matches reports whether p satisfies every set criterion.
// Search is a case-insensitive substring match on name, category and description.
func (c Criteria) Matches(p *domain.Product) bool {
	if term := strings.ToLower(strings.TrimSpace(c.Search)); term != "" {
		if !strings.Contains(strings.ToLower(p.Name), term) &&
			!strings.Contains(strings.ToLower(p.Category), term) &&
			!strings.Contains(strings.ToLower(p.Description), term) {
			return false
		}
	}
	if c.Type != "" && p.Type != c.Type {
		return false
	}
	if c.Category != "" && p.Category != c.Category {
		return false
	}
	if c.Active != nil && p.Active != *c.Active {
		return false
	}
	if c.StockStatus != "" && !p.HasStockLevel(c.StockStatus) {
		return false
	}
	return true
}

// Filter returns copies of the matching products ordered by name
func (s *Service) Filter(c Criteria) []*domain.Product {
	s.mu.RLock()
	out := make([]*domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if c.Matches(p) {
			out = append(out, p.Clone())
		}
	}
	s.mu.RUnlock()

	col := collate.New(s.opts.Locale)
	sort.SliceStable(out, func(i, j int) bool {
		return col.CompareString(out[i].Name, out[j].Name) < 0
	})
	return out
}

// LowStock returns the products under the low stock threshold, out of stock ones included
func (s *Service) LowStock() []*domain.Product {
	return s.Filter(Criteria{StockStatus: domain.StockLow})
}

// ByType returns the products of one family
func (s *Service) ByType(t domain.Type) []*domain.Product {
	return s.Filter(Criteria{Type: t})
}

// Search returns the products whose name, category or description contains term
func (s *Service) Search(term string) []*domain.Product {
	return s.Filter(Criteria{Search: term})
}

// Statistics summarises the collection
type Statistics struct {
	Total               int                 `json:"total"`
	Active              int                 `json:"active"`
	Inactive            int                 `json:"inactive"`
	LowStock            int                 `json:"lowStock"`
	OutOfStock          int                 `json:"outOfStock"`
	TotalValue          float64             `json:"totalValue"`
	TotalValueFormatted string              `json:"totalValueFormatted"`
	TotalStock          int                 `json:"totalStock"`
	AveragePrice        float64             `json:"averagePrice"`
	MedianPrice         float64             `json:"medianPrice"`
	ByType              map[domain.Type]int `json:"byType"`
}

// Statistics counts products by state and sums the inventory value as price times stock
func (s *Service) Statistics() Statistics {
	s.mu.RLock()
	products := cloneAll(s.products)
	s.mu.RUnlock()

	st := Statistics{Total: len(products), ByType: make(map[domain.Type]int)}
	prices := make(stats.Float64Data, 0, len(products))
	values := make(stats.Float64Data, 0, len(products))
	for _, p := range products {
		if p.Active {
			st.Active++
		}
		if p.IsLowStock() {
			st.LowStock++
		}
		if p.IsOutOfStock() {
			st.OutOfStock++
		}
		st.TotalStock += p.Stock
		st.ByType[p.Type]++
		prices = append(prices, p.Price)
		values = append(values, p.Price*float64(p.Stock))
	}
	st.Inactive = st.Total - st.Active

	if len(products) > 0 {
		st.TotalValue, _ = values.Sum()
		st.AveragePrice, _ = prices.Mean()
		st.MedianPrice, _ = prices.Median()
	}
	st.TotalValueFormatted = s.opts.Money.Format(st.TotalValue)
	return st
}
