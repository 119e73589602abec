package controller

import (
	"strings"

	"github.com/spf13/cast"
	"github.com/talkincode/cafestock/internal/domain"
	"github.com/talkincode/cafestock/internal/inventory"
)

// ValidateInput checks raw form input before it reaches the service. It reports
// every failed rule at once as an *inventory.ValidationError.
func ValidateInput(data FormData) error {
	var vs []domain.Violation
	add := func(field, msg string) {
		vs = append(vs, domain.Violation{Field: field, Message: msg})
	}

	if strings.TrimSpace(cast.ToString(data["name"])) == "" {
		add("name", "is required")
	}
	if strings.TrimSpace(cast.ToString(data["type"])) == "" {
		add("type", "is required")
	}
	if strings.TrimSpace(cast.ToString(data["category"])) == "" {
		add("category", "is required")
	}
	if price, err := cast.ToFloat64E(data["price"]); err != nil || price <= 0 {
		add("price", "must be greater than 0")
	}
	if raw, ok := data["stock"]; ok && raw != nil && raw != "" {
		if stock, err := domain.WholeNumber(raw); err != nil {
			add("stock", "must be a whole number")
		} else if stock < 0 {
			add("stock", "cannot be negative")
		}
	}

	if len(vs) > 0 {
		return &inventory.ValidationError{Violations: vs}
	}
	return nil
}

// mergeForm overlays data on the fields of p so partial input validates like a full form
func mergeForm(p *domain.Product, data FormData) FormData {
	merged := FormData{
		"name":        p.Name,
		"type":        string(p.Type),
		"category":    p.Category,
		"price":       p.Price,
		"stock":       p.Stock,
		"description": p.Description,
		"active":      p.Active,
	}
	for k, v := range data {
		merged[k] = v
	}
	return merged
}
