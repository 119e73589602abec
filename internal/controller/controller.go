package controller

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/talkincode/cafestock/internal/domain"
	"github.com/talkincode/cafestock/internal/events"
	"github.com/talkincode/cafestock/internal/inventory"
	"go.uber.org/zap"
)

// Level is the severity of a user notification
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// DefaultFiltersKey is the preference key of the last applied filters
const DefaultFiltersKey = "cafeteria_filters_cache"

// MaxImportSize bounds the size of an import file
const MaxImportSize = 1 << 20

// FormData is raw, loosely typed product input as a view collects it
type FormData map[string]interface{}

// View renders state and collects input
type View interface {
	RenderProducts(products []*domain.Product)
	RenderStats(stats inventory.Statistics)
	ShowNotification(message string, level Level)
	GetFormData() FormData
	GetCurrentFilters() inventory.Criteria
	// EditingID returns the id of the product in the open form, empty when adding
	EditingID() string
	// ShowModal opens the product form, prefilled when p is not nil
	ShowModal(p *domain.Product)
	HideModal()
	Download(data []byte, filename string) error
}

// Confirmer asks the user to approve a destructive action
type Confirmer interface {
	Confirm(message string) bool
}

// Preferences persists small view state
type Preferences interface {
	Set(key string, value interface{}) bool
}

// Inventory is the collection service the controller drives
type Inventory interface {
	Bus() *events.Bus
	Reload()
	GetByID(id string) *domain.Product
	Add(d domain.Draft) (*domain.Product, error)
	Update(id string, c domain.Changes) (*domain.Product, error)
	Remove(id string) (*domain.Product, error)
	Filter(c inventory.Criteria) []*domain.Product
	LowStock() []*domain.Product
	Statistics() inventory.Statistics
	ExportDocument() ([]byte, error)
	ExportCSV() (string, error)
	ExportXLSX(w io.Writer) error
	ImportAll(text string) inventory.ImportResult
	ImportCSV(text string) inventory.ImportResult
	Clear() error
	ResetToDefault() error
}

// Options tune timing and storage keys. Zero values select the defaults.
type Options struct {
	SearchDebounce time.Duration
	LowStockDelay  time.Duration
	ProductsKey    string
	FiltersKey     string
}

func (o Options) withDefaults() Options {
	if o.SearchDebounce <= 0 {
		o.SearchDebounce = 300 * time.Millisecond
	}
	if o.LowStockDelay <= 0 {
		o.LowStockDelay = time.Second
	}
	if o.ProductsKey == "" {
		o.ProductsKey = inventory.DefaultProductsKey
	}
	if o.FiltersKey == "" {
		o.FiltersKey = DefaultFiltersKey
	}
	return o
}

// Controller mediates between a View and the inventory service
type Controller struct {
	inv     Inventory
	view    View
	confirm Confirmer
	prefs   Preferences
	opts    Options

	mu            sync.Mutex
	renderMu      sync.Mutex
	subs          []events.Subscription
	searchTimer   *time.Timer
	lowStockTimer *time.Timer
	filters       inventory.Criteria
	closed        bool
}

// New builds a controller. prefs may be nil to skip caching filters.
func New(inv Inventory, view View, confirm Confirmer, prefs Preferences, opts Options) *Controller {
	return &Controller{
		inv:     inv,
		view:    view,
		confirm: confirm,
		prefs:   prefs,
		opts:    opts.withDefaults(),
	}
}

// Start subscribes to inventory events and schedules the startup low stock check
func (c *Controller) Start() {
	bus := c.inv.Bus()
	subs := []events.Subscription{
		bus.Subscribe(events.ProductCreated, c.onProductEvent("Product added successfully")),
		bus.Subscribe(events.ProductUpdated, c.onProductEvent("Product updated successfully")),
		bus.Subscribe(events.ProductDeleted, c.onProductEvent("Product deleted successfully")),
		bus.Subscribe(events.ProductsImported, func(interface{}) { c.Render() }),
		bus.Subscribe(events.ProductsCleared, func(interface{}) { c.Render() }),
		bus.Subscribe(events.ProductsReset, func(interface{}) { c.Render() }),
	}
	c.mu.Lock()
	c.subs = append(c.subs, subs...)
	c.mu.Unlock()
	c.CheckLowStock()
}

// Close stops pending timers and drops event subscriptions
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.searchTimer != nil {
		c.searchTimer.Stop()
	}
	if c.lowStockTimer != nil {
		c.lowStockTimer.Stop()
	}
	bus := c.inv.Bus()
	for _, sub := range c.subs {
		bus.Unsubscribe(sub)
	}
	c.subs = nil
}

func (c *Controller) onProductEvent(message string) events.Handler {
	return func(interface{}) {
		c.Render()
		c.view.ShowNotification(message, LevelSuccess)
	}
}

// Render refreshes the product list and the statistics
func (c *Controller) Render() {
	c.RenderProducts()
	c.RenderStats()
}

// RenderProducts lists the products matching the view's current filters
func (c *Controller) RenderProducts() {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()
	filters := c.view.GetCurrentFilters()
	c.view.RenderProducts(c.inv.Filter(filters))

	c.mu.Lock()
	c.filters = filters
	c.mu.Unlock()
	if c.prefs != nil && !c.prefs.Set(c.opts.FiltersKey, filters) {
		zap.L().Debug("filters cache not saved", zap.String("namespace", "controller"))
	}
}

func (c *Controller) RenderStats() {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()
	c.view.RenderStats(c.inv.Statistics())
}

// LastFilters returns the filters of the most recent render
func (c *Controller) LastFilters() inventory.Criteria {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters
}

// HandleSearch re-renders the list once input has been quiet for the debounce window.
// Every call cancels the previous pending render.
func (c *Controller) HandleSearch(term string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.searchTimer != nil {
		c.searchTimer.Stop()
	}
	zap.L().Debug("search scheduled", zap.String("namespace", "controller"), zap.String("term", term))
	c.searchTimer = time.AfterFunc(c.opts.SearchDebounce, c.RenderProducts)
}

// HandleFilterChange renders right away. A pending search render is dropped
// since this render already reads the current search term.
func (c *Controller) HandleFilterChange() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.searchTimer != nil {
		c.searchTimer.Stop()
	}
	c.mu.Unlock()
	c.RenderProducts()
}

// CheckLowStock schedules a low stock warning after the startup delay
func (c *Controller) CheckLowStock() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.lowStockTimer != nil {
		c.lowStockTimer.Stop()
	}
	c.lowStockTimer = time.AfterFunc(c.opts.LowStockDelay, func() { c.ReportLowStock() })
}

// ReportLowStock warns about low stock products right away and returns their number
func (c *Controller) ReportLowStock() int {
	n := len(c.inv.LowStock())
	if n > 0 {
		c.view.ShowNotification(fmt.Sprintf("%d product(s) with low stock", n), LevelWarning)
	}
	return n
}

// ShowAddModal opens an empty product form
func (c *Controller) ShowAddModal() {
	c.view.ShowModal(nil)
}

// ShowEditModal opens the form prefilled with the product
func (c *Controller) ShowEditModal(id string) error {
	p := c.inv.GetByID(id)
	if p == nil {
		err := &inventory.NotFoundError{ID: id}
		c.notifyError(err)
		return err
	}
	c.view.ShowModal(p)
	return nil
}

// HandleFormSubmit adds or updates a product from the open form.
// Failures are already shown to the user when the error is returned.
func (c *Controller) HandleFormSubmit() (*domain.Product, error) {
	data := c.view.GetFormData()
	if id := c.view.EditingID(); id != "" {
		return c.UpdateProduct(id, data)
	}
	return c.AddProduct(data)
}

// AddProduct validates raw input and creates the product
func (c *Controller) AddProduct(data FormData) (*domain.Product, error) {
	if err := ValidateInput(data); err != nil {
		c.notifyError(err)
		return nil, err
	}
	draft, err := domain.DecodeDraft(data)
	if err != nil {
		c.notifyError(err)
		return nil, err
	}
	p, err := c.inv.Add(draft)
	if err != nil {
		c.notifyError(err)
		return nil, err
	}
	c.view.HideModal()
	return p, nil
}

// UpdateProduct validates raw input and applies it to the product with id
// Fields missing from data keep their current values.
func (c *Controller) UpdateProduct(id string, data FormData) (*domain.Product, error) {
	current := c.inv.GetByID(id)
	if current == nil {
		err := &inventory.NotFoundError{ID: id}
		c.notifyError(err)
		return nil, err
	}
	if err := ValidateInput(mergeForm(current, data)); err != nil {
		c.notifyError(err)
		return nil, err
	}
	changes, err := domain.DecodeChanges(data)
	if err != nil {
		c.notifyError(err)
		return nil, err
	}
	p, err := c.inv.Update(id, changes)
	if err != nil {
		c.notifyError(err)
		return nil, err
	}
	c.view.HideModal()
	return p, nil
}

// DeleteProduct removes the product after confirmation. It reports false when
// the user declined.
func (c *Controller) DeleteProduct(id string) (bool, error) {
	p := c.inv.GetByID(id)
	if p == nil {
		err := &inventory.NotFoundError{ID: id}
		c.notifyError(err)
		return false, err
	}
	if !c.confirm.Confirm(fmt.Sprintf("Delete product %q?", p.Name)) {
		return false, nil
	}
	if _, err := c.inv.Remove(id); err != nil {
		c.notifyError(err)
		return false, err
	}
	return true, nil
}

// ExportProducts hands the inventory to the view as a dated download.
// format is json, csv or xlsx.
func (c *Controller) ExportProducts(format string) (string, error) {
	var (
		data []byte
		err  error
	)
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "", "json":
		format = "json"
		data, err = c.inv.ExportDocument()
	case "csv":
		var text string
		text, err = c.inv.ExportCSV()
		data = []byte(text)
	case "xlsx":
		var buf bytes.Buffer
		err = c.inv.ExportXLSX(&buf)
		data = buf.Bytes()
	default:
		err = errors.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		c.view.ShowNotification("Export failed: "+err.Error(), LevelError)
		return "", err
	}
	filename := ExportFilename(format, time.Now())
	if err := c.view.Download(data, filename); err != nil {
		c.view.ShowNotification("Export failed: "+err.Error(), LevelError)
		return "", err
	}
	c.view.ShowNotification("Products exported successfully", LevelSuccess)
	return filename, nil
}

// ExportFilename names an export made at t
func ExportFilename(format string, t time.Time) string {
	return fmt.Sprintf("productos_cafeteria_%s.%s", t.Format("2006-01-02"), format)
}

// ImportProducts reads an import file and appends its products. Files ending in
// .csv are read as CSV, anything else as JSON.
func (c *Controller) ImportProducts(filename string, r io.Reader) (inventory.ImportResult, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImportSize+1))
	if err != nil {
		err = errors.Wrap(err, "read import file")
		c.view.ShowNotification("Error importing products: "+err.Error(), LevelError)
		return inventory.ImportResult{}, err
	}
	if len(data) > MaxImportSize {
		err = errors.Errorf("import file exceeds %d bytes", MaxImportSize)
		c.view.ShowNotification("Error importing products: "+err.Error(), LevelError)
		return inventory.ImportResult{}, err
	}

	var res inventory.ImportResult
	if strings.EqualFold(filepath.Ext(filename), ".csv") {
		res = c.inv.ImportCSV(string(data))
	} else {
		res = c.inv.ImportAll(string(data))
	}
	if !res.Success {
		c.view.ShowNotification("Error importing products: "+res.Error, LevelError)
		return res, res.Err
	}
	msg := fmt.Sprintf("%d products imported successfully", res.Imported)
	if res.Skipped > 0 {
		msg += fmt.Sprintf(" (%d skipped)", res.Skipped)
	}
	c.view.ShowNotification(msg, LevelSuccess)
	return res, nil
}

// ResetToDefault restores the seed catalog after confirmation
func (c *Controller) ResetToDefault() (bool, error) {
	if !c.confirm.Confirm("Restore the default products? Current products will be lost.") {
		return false, nil
	}
	if err := c.inv.ResetToDefault(); err != nil {
		c.notifyError(err)
		return false, err
	}
	c.view.ShowNotification("Default products restored", LevelSuccess)
	return true, nil
}

// ClearAll removes every product after confirmation
func (c *Controller) ClearAll() (bool, error) {
	if !c.confirm.Confirm("Delete all products? This cannot be undone.") {
		return false, nil
	}
	if err := c.inv.Clear(); err != nil {
		c.notifyError(err)
		return false, err
	}
	c.view.ShowNotification("All products deleted", LevelSuccess)
	return true, nil
}

// OnStorageChanged reloads and re-renders when another writer replaced the product list
func (c *Controller) OnStorageChanged(key string) {
	if key != c.opts.ProductsKey {
		return
	}
	c.inv.Reload()
	c.Render()
	c.view.ShowNotification("Data updated from another session", LevelInfo)
}

func (c *Controller) notifyError(err error) {
	var msg string
	switch {
	case inventory.IsNotFound(err):
		msg = "Product not found"
	case inventory.IsPersistence(err):
		msg = "Changes could not be saved: " + err.Error()
	default:
		msg = err.Error()
	}
	zap.L().Warn("controller action failed",
		zap.String("namespace", "controller"),
		zap.Error(err))
	c.view.ShowNotification(msg, LevelError)
}
