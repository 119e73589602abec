package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func strPtr(s string) *string { return &s }
func f64Ptr(v float64) *float64 { return &v }
func intPtr(v int) *int        { return &v }
func boolPtr(v bool) *bool     { return &v }
func typePtr(t Type) *Type     { return &t }

func validDraft() Draft {
	return Draft{
		Name:     strPtr("Café Americano"),
		Type:     typePtr(TypeCoffee),
		Category: strPtr("Americano"),
		Price:    f64Ptr(3500),
		Stock:    intPtr(50),
	}
}

func TestNewProductDefaults(t *testing.T) {
	before := time.Now()
	p := NewProduct(Draft{})

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "", p.Name)
	assert.Equal(t, TypeCoffee, p.Type)
	assert.Equal(t, "Americano", p.Category)
	assert.Zero(t, p.Price)
	assert.Zero(t, p.Stock)
	assert.Equal(t, "", p.Description)
	assert.True(t, p.Active)
	assert.False(t, p.CreatedAt.Before(before))
	assert.False(t, p.UpdatedAt.Before(p.CreatedAt))
}

func TestNewProductCategoryFollowsType(t *testing.T) {
	p := NewProduct(Draft{Type: typePtr(TypeDessert)})
	assert.Equal(t, "Torta", p.Category)

	p = NewProduct(Draft{Type: typePtr(Type("tea"))})
	assert.Equal(t, "", p.Category)
	assert.False(t, p.Validate())
}

func TestNewProductKeepsProvidedFields(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	updated := created.Add(time.Hour)
	d := validDraft()
	d.ID = strPtr("abc")
	d.Active = boolPtr(false)
	d.CreatedAt = &created
	d.UpdatedAt = &updated

	p := NewProduct(d)
	assert.Equal(t, "abc", p.ID)
	assert.False(t, p.Active)
	assert.True(t, created.Equal(p.CreatedAt))
	assert.True(t, updated.Equal(p.UpdatedAt))
}

func TestNewIDUnique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := NewID()
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Product)
		field  string
	}{
		{"valid", func(p *Product) {}, ""},
		{"empty name", func(p *Product) { p.Name = "" }, "name"},
		{"blank name", func(p *Product) { p.Name = "   " }, "name"},
		{"name with symbols", func(p *Product) { p.Name = "Café <script>" }, "name"},
		{"name with tab", func(p *Product) { p.Name = "Latte\tDoble" }, "name"},
		{"name with newline", func(p *Product) { p.Name = "Latte\nDoble" }, "name"},
		{"name with carriage return", func(p *Product) { p.Name = "Latte\r\nDoble" }, "name"},
		{"long name", func(p *Product) { p.Name = strings.Repeat("a", 101) }, "name"},
		{"zero price", func(p *Product) { p.Price = 0 }, "price"},
		{"negative price", func(p *Product) { p.Price = -1 }, "price"},
		{"negative stock", func(p *Product) { p.Stock = -1 }, "stock"},
		{"unknown type", func(p *Product) { p.Type = "tea" }, "type"},
		{"foreign category", func(p *Product) { p.Category = "Pizza" }, "category"},
		{"empty category", func(p *Product) { p.Category = "" }, "category"},
		{"long description", func(p *Product) { p.Description = strings.Repeat("x", 501) }, "description"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProduct(validDraft())
			tt.mutate(p)
			vs := p.Violations()
			if tt.field == "" {
				assert.True(t, p.Validate())
				assert.Empty(t, vs)
				return
			}
			assert.False(t, p.Validate())
			require.NotEmpty(t, vs)
			assert.Equal(t, tt.field, vs[0].Field)
		})
	}
}

func TestValidateAcceptsAccentsDigitsAndPunctuation(t *testing.T) {
	p := NewProduct(validDraft())
	p.Name = "Sándwich Nro. 2 - Doble"
	assert.True(t, p.Validate())

	p.Stock = 0
	assert.True(t, p.Validate())
}

func TestStockLevels(t *testing.T) {
	p := NewProduct(validDraft())

	p.Stock = 0
	assert.True(t, p.IsOutOfStock())
	assert.True(t, p.IsLowStock())
	assert.Equal(t, StockOut, p.StockLevel())
	assert.True(t, p.HasStockLevel(StockLow))
	assert.False(t, p.HasStockLevel(StockNormal))

	p.Stock = 4
	assert.True(t, p.IsLowStock())
	assert.False(t, p.IsOutOfStock())
	assert.Equal(t, StockLow, p.StockLevel())

	p.Stock = 5
	assert.False(t, p.IsLowStock())
	assert.Equal(t, StockNormal, p.StockLevel())
	assert.True(t, p.HasStockLevel(StockNormal))
	assert.True(t, p.HasStockLevel(""))
}

func TestApplyKeepsIdentity(t *testing.T) {
	p := NewProduct(validDraft())
	id, created, prevUpdated := p.ID, p.CreatedAt, p.UpdatedAt

	p.Apply(Changes{Price: f64Ptr(4000), Stock: intPtr(2), Active: boolPtr(false)})

	assert.Equal(t, id, p.ID)
	assert.Equal(t, created, p.CreatedAt)
	assert.Equal(t, 4000.0, p.Price)
	assert.Equal(t, 2, p.Stock)
	assert.False(t, p.Active)
	assert.Equal(t, "Café Americano", p.Name)
	assert.False(t, p.UpdatedAt.Before(prevUpdated))
}

func TestApplyNeverMovesUpdatedAtBackwards(t *testing.T) {
	p := NewProduct(validDraft())
	future := time.Now().Add(24 * time.Hour)
	p.UpdatedAt = future

	p.Apply(Changes{Name: strPtr("Tinto")})
	assert.Equal(t, future, p.UpdatedAt)
}

func TestSerializeRoundTrip(t *testing.T) {
	d := validDraft()
	d.Description = strPtr("Café suave")
	p := NewProduct(d)

	data, err := p.Serialize()
	require.NoError(t, err)
	for _, key := range []string{`"id"`, `"name"`, `"type"`, `"category"`, `"price"`, `"stock"`, `"description"`, `"active"`, `"createdAt"`, `"updatedAt"`} {
		assert.Contains(t, string(data), key)
	}

	back, err := Deserialize(data)
	require.NoError(t, err)
	assert.Equal(t, p.ID, back.ID)
	assert.Equal(t, p.Name, back.Name)
	assert.Equal(t, p.Price, back.Price)
	assert.True(t, p.CreatedAt.Equal(back.CreatedAt))
	assert.True(t, p.UpdatedAt.Equal(back.UpdatedAt))
}

func TestDeserializeAppliesDefaults(t *testing.T) {
	p, err := Deserialize([]byte(`{"id":"x1","name":"Agua","type":"drink","price":2000}`))
	require.NoError(t, err)
	assert.Equal(t, "Jugo Natural", p.Category)
	assert.True(t, p.Active)
	assert.Equal(t, 0, p.Stock)

	_, err = Deserialize([]byte(`{not json`))
	assert.Error(t, err)
}

func TestDecodeDraftCoercesLooseInput(t *testing.T) {
	d, err := DecodeDraft(map[string]interface{}{
		"name":      "Mocha",
		"type":      "coffee",
		"category":  "Mocha",
		"price":     "4800",
		"stock":     "7",
		"active":    "true",
		"createdAt": "2024-03-01T10:00:00.000Z",
		"unknown":   "ignored",
	})
	require.NoError(t, err)
	require.NotNil(t, d.Price)
	assert.Equal(t, 4800.0, *d.Price)
	assert.Equal(t, 7, *d.Stock)
	assert.True(t, *d.Active)
	require.NotNil(t, d.CreatedAt)
	assert.Equal(t, 2024, d.CreatedAt.Year())
	assert.Nil(t, d.Description)

	_, err = DecodeDraft(map[string]interface{}{"price": "abc"})
	assert.Error(t, err)
}

func TestDecodeDraftReadsWholeNumbersOnly(t *testing.T) {
	for input, want := range map[interface{}]int{"010": 10, "08": 8, " 12 ": 12, 3.0: 3, "-4": -4} {
		d, err := DecodeDraft(map[string]interface{}{"stock": input})
		require.NoError(t, err, "stock %v", input)
		require.NotNil(t, d.Stock)
		assert.Equal(t, want, *d.Stock, "stock %v", input)
	}
	for _, input := range []interface{}{2.7, -0.5, "0x10", "2.7", "ten"} {
		_, err := DecodeDraft(map[string]interface{}{"stock": input})
		assert.Error(t, err, "stock %v", input)
	}

	c, err := DecodeChanges(map[string]interface{}{"stock": 1.5})
	assert.Error(t, err)
	assert.Nil(t, c.Stock)

	n, err := WholeNumber("007")
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestDecodeChangesIgnoresProtectedFields(t *testing.T) {
	c, err := DecodeChanges(map[string]interface{}{"id": "other", "createdAt": "2020-01-01", "stock": 9})
	require.NoError(t, err)
	require.NotNil(t, c.Stock)
	assert.Equal(t, 9, *c.Stock)
	assert.Nil(t, c.Name)
	assert.False(t, c.Empty())
	assert.True(t, Changes{}.Empty())
}

func TestCatalog(t *testing.T) {
	for _, typ := range Types {
		assert.True(t, typ.Valid())
		cats := Categories(typ)
		assert.Len(t, cats, 7)
		assert.Equal(t, cats[0], DefaultCategory(typ))
		assert.NotEqual(t, "📦", typ.Icon())
	}
	assert.Equal(t, "📦", Type("tea").Icon())
	assert.Empty(t, Categories("tea"))
	assert.True(t, CategoryAllowed(TypeDrink, "Té"))
	assert.False(t, CategoryAllowed(TypeDrink, "Latte"))

	cats := Categories(TypeCoffee)
	cats[0] = "changed"
	assert.Equal(t, "Americano", DefaultCategory(TypeCoffee))
}

func TestDefaultCatalogIsValid(t *testing.T) {
	drafts := DefaultCatalog()
	require.Len(t, drafts, 8)
	low := 0
	for _, d := range drafts {
		p := NewProduct(d)
		assert.True(t, p.Validate(), "%s: %s", p.Name, JoinViolations(p.Violations()))
		if p.IsLowStock() {
			low++
		}
	}
	assert.Equal(t, 1, low)
}

func TestFormattedPrice(t *testing.T) {
	p := NewProduct(validDraft())
	s := p.FormattedPrice()
	assert.Contains(t, s, "500")
	assert.NotContains(t, s, ",00")

	f := NewMoneyFormat("en-US", "USD")
	assert.Contains(t, f.Format(1234.6), "235")
	assert.Equal(t, DefaultMoney, NewMoneyFormat("??", "???"))
	assert.Equal(t, "COP", DefaultMoney.Currency.String())
}

func TestStockStatus(t *testing.T) {
	p := NewProduct(validDraft())
	p.Stock = 0
	assert.Equal(t, "critical", p.StockStatus().Level)
	p.Stock = 3
	assert.Equal(t, "warning", p.StockStatus().Level)
	p.Stock = 30
	assert.Equal(t, "normal", p.StockStatus().Level)
	assert.Equal(t, "☕", p.TypeIcon())
}
