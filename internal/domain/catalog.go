package domain

// Type is the product family
type Type string

const (
	TypeCoffee  Type = "coffee"
	TypeFood    Type = "food"
	TypeDrink   Type = "drink"
	TypeDessert Type = "dessert"
)

// Types lists the product families in display order
var Types = []Type{TypeCoffee, TypeFood, TypeDrink, TypeDessert}

var categories = map[Type][]string{
	TypeCoffee:  {"Americano", "Espresso", "Cappuccino", "Latte", "Frappé", "Mocha", "Macchiato"},
	TypeFood:    {"Sándwich", "Ensalada", "Pasta", "Pizza", "Hamburguesa", "Wrap", "Tostada"},
	TypeDrink:   {"Jugo Natural", "Smoothie", "Té", "Chocolate Caliente", "Agua", "Gaseosa", "Limonada"},
	TypeDessert: {"Torta", "Galleta", "Helado", "Muffin", "Donut", "Cheesecake", "Brownie"},
}

var icons = map[Type]string{
	TypeCoffee:  "☕",
	TypeFood:    "🥐",
	TypeDrink:   "🥤",
	TypeDessert: "🍰",
}

const defaultIcon = "📦"

// Valid reports whether t is one of the known families
func (t Type) Valid() bool {
	_, ok := categories[t]
	return ok
}

// Icon returns the display glyph of the family, or a generic box for unknown types
func (t Type) Icon() string {
	if icon, ok := icons[t]; ok {
		return icon
	}
	return defaultIcon
}

// Categories returns a copy of the allowed categories for t. Unknown types have none.
func Categories(t Type) []string {
	list := categories[t]
	out := make([]string, len(list))
	copy(out, list)
	return out
}

// DefaultCategory returns the first category of t, or empty for unknown types
func DefaultCategory(t Type) string {
	if list := categories[t]; len(list) > 0 {
		return list[0]
	}
	return ""
}

// CategoryAllowed reports whether category belongs to t
func CategoryAllowed(t Type, category string) bool {
	for _, c := range categories[t] {
		if c == category {
			return true
		}
	}
	return false
}

// DefaultCatalog returns the seed products used when the store is empty or reset.
// Every call returns fresh drafts without ids.
func DefaultCatalog() []Draft {
	seed := []struct {
		name, category, description string
		typ                         Type
		price                       float64
		stock                       int
	}{
		{"Café Americano", "Americano", "Café suave y aromático, perfecto para cualquier momento del día", TypeCoffee, 3500, 50},
		{"Cappuccino Tradicional", "Cappuccino", "Café espresso con leche vaporizada y espuma cremosa", TypeCoffee, 4500, 30},
		{"Sándwich Club", "Sándwich", "Delicioso sándwich con pollo, tocino, lechuga y tomate", TypeFood, 8500, 15},
		{"Jugo de Naranja Natural", "Jugo Natural", "Jugo de naranja 100% natural, recién exprimido", TypeDrink, 4000, 25},
		{"Torta de Chocolate", "Torta", "Deliciosa torta de chocolate con frosting de mantequilla", TypeDessert, 6000, 3},
		{"Latte Vainilla", "Latte", "Café latte con un toque de jarabe de vainilla", TypeCoffee, 5000, 20},
		{"Ensalada César", "Ensalada", "Fresca ensalada con lechuga romana, crutones y aderezo césar", TypeFood, 7500, 12},
		{"Smoothie de Fresa", "Smoothie", "Refrescante smoothie de fresa con yogurt natural", TypeDrink, 5500, 18},
	}
	drafts := make([]Draft, 0, len(seed))
	for _, s := range seed {
		s := s
		active := true
		drafts = append(drafts, Draft{
			Name:        &s.name,
			Type:        &s.typ,
			Category:    &s.category,
			Price:       &s.price,
			Stock:       &s.stock,
			Description: &s.description,
			Active:      &active,
		})
	}
	return drafts
}
