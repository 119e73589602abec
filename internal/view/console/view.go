// Package console renders the inventory in a terminal
package console

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/pkg/errors"
	"github.com/talkincode/cafestock/internal/controller"
	"github.com/talkincode/cafestock/internal/domain"
	"github.com/talkincode/cafestock/internal/inventory"
	"go.uber.org/zap"
)

var (
	colorBorder  = lipgloss.Color("#d6dae0")
	colorTitle   = lipgloss.Color("#6f4e37")
	colorSuccess = lipgloss.Color("#8BC34A")
	colorError   = lipgloss.Color("#e53935")
	colorWarning = lipgloss.Color("#FFC107")
	colorInfo    = lipgloss.Color("#2196F3")
)

var productHeaders = []string{"ID", "", "Name", "Category", "Price", "Stock", "Status", "Active"}

// Notification is a message shown to the user
type Notification struct {
	Message string
	Level   controller.Level
	At      time.Time
}

type styles struct {
	title  lipgloss.Style
	header lipgloss.Style
	cell   lipgloss.Style
	muted  lipgloss.Style
	card   lipgloss.Style
	levels map[controller.Level]lipgloss.Style
	stock  map[domain.StockLevel]lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:  r.NewStyle().Bold(true).Foreground(colorTitle),
		header: r.NewStyle().Bold(true).Padding(0, 1),
		cell:   r.NewStyle().Padding(0, 1),
		muted:  r.NewStyle().Faint(true),
		card:   r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorBorder).Padding(0, 1),
		levels: map[controller.Level]lipgloss.Style{
			controller.LevelSuccess: r.NewStyle().Foreground(colorSuccess),
			controller.LevelError:   r.NewStyle().Foreground(colorError).Bold(true),
			controller.LevelWarning: r.NewStyle().Foreground(colorWarning),
			controller.LevelInfo:    r.NewStyle().Foreground(colorInfo),
		},
		stock: map[domain.StockLevel]lipgloss.Style{
			domain.StockOut: r.NewStyle().Foreground(colorError).Bold(true),
			domain.StockLow: r.NewStyle().Foreground(colorWarning),
		},
	}
}

// View implements controller.View on a terminal writer. Form data and filters
// are set by the caller, typically from command line flags.
type View struct {
	mu          sync.Mutex
	out         io.Writer
	downloadDir string
	styles      styles

	filters   inventory.Criteria
	form      controller.FormData
	editing   string
	modalOpen bool
	notices   []Notification
	lastFile  string
}

var _ controller.View = (*View)(nil)

// New writes to out and saves downloads under downloadDir, the working directory when empty
func New(out io.Writer, downloadDir string) *View {
	if downloadDir == "" {
		downloadDir = "."
	}
	return &View{
		out:         out,
		downloadDir: downloadDir,
		styles:      newStyles(lipgloss.NewRenderer(out)),
	}
}

func (v *View) SetFilters(c inventory.Criteria) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.filters = c
}

// SetForm loads the form input. A non empty id edits that product.
func (v *View) SetForm(id string, data controller.FormData) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.editing = id
	v.form = data
}

func (v *View) GetFormData() controller.FormData {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(controller.FormData, len(v.form))
	for k, val := range v.form {
		out[k] = val
	}
	return out
}

func (v *View) GetCurrentFilters() inventory.Criteria {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filters
}

func (v *View) EditingID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.editing
}

// Notifications returns every notification shown so far
func (v *View) Notifications() []Notification {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Notification(nil), v.notices...)
}

// LastDownload returns the path of the most recent download
func (v *View) LastDownload() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastFile
}

func (v *View) ModalOpen() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.modalOpen
}

func (v *View) RenderProducts(products []*domain.Product) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(products) == 0 {
		fmt.Fprintln(v.out, v.styles.muted.Render("No products found"))
		return
	}
	fmt.Fprintln(v.out, v.productTable(products))
}

func (v *View) productTable(products []*domain.Product) string {
	rows := make([][]string, 0, len(products))
	levels := make([]domain.StockLevel, 0, len(products))
	for _, p := range products {
		active := "yes"
		if !p.Active {
			active = "no"
		}
		rows = append(rows, []string{
			p.ID, p.TypeIcon(), p.Name, p.Category, p.FormattedPrice(),
			strconv.Itoa(p.Stock), p.StockStatus().Message, active,
		})
		levels = append(levels, p.StockLevel())
	}
	st := v.styles
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers(productHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return st.header
			}
			if col == 6 && row >= 0 && row < len(levels) {
				if s, ok := st.stock[levels[row]]; ok {
					return s.Padding(0, 1)
				}
			}
			return st.cell
		})
	return t.String()
}

func (v *View) RenderStats(stats inventory.Statistics) {
	v.mu.Lock()
	defer v.mu.Unlock()
	types := make([]string, 0, len(stats.ByType))
	for _, t := range domain.Types {
		if n := stats.ByType[t]; n > 0 {
			types = append(types, fmt.Sprintf("%s %s %d", t.Icon(), t, n))
		}
	}
	lines := []string{
		v.styles.title.Render("Inventory"),
		fmt.Sprintf("Products: %d (%d active, %d inactive)", stats.Total, stats.Active, stats.Inactive),
		fmt.Sprintf("Low stock: %d   Out of stock: %d", stats.LowStock, stats.OutOfStock),
		fmt.Sprintf("Units: %d   Value: %s", stats.TotalStock, stats.TotalValueFormatted),
	}
	if len(types) > 0 {
		lines = append(lines, strings.Join(types, "   "))
	}
	fmt.Fprintln(v.out, strings.Join(lines, "\n"))
}

func (v *View) ShowNotification(message string, level controller.Level) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notices = append(v.notices, Notification{Message: message, Level: level, At: time.Now()})
	style, ok := v.styles.levels[level]
	if !ok {
		style = v.styles.cell
	}
	fmt.Fprintln(v.out, style.Render(fmt.Sprintf("[%s] %s", level, message)))
}

// ShowModal prints the product card, or a blank form notice when p is nil
func (v *View) ShowModal(p *domain.Product) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.modalOpen = true
	if p == nil {
		v.editing = ""
		fmt.Fprintln(v.out, v.styles.title.Render("New product"))
		return
	}
	v.editing = p.ID
	lines := []string{
		v.styles.title.Render(p.TypeIcon() + " " + p.Name),
		"ID:          " + p.ID,
		"Type:        " + string(p.Type),
		"Category:    " + p.Category,
		"Price:       " + p.FormattedPrice(),
		"Stock:       " + strconv.Itoa(p.Stock) + " (" + p.StockStatus().Message + ")",
		"Stock value: " + p.FormattedTotalValue(),
		"Active:      " + strconv.FormatBool(p.Active),
		"Updated:     " + p.UpdatedAt.Format(time.RFC3339),
	}
	if p.Description != "" {
		lines = append(lines, "", p.Description)
	}
	fmt.Fprintln(v.out, v.styles.card.Render(strings.Join(lines, "\n")))
}

func (v *View) HideModal() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.modalOpen = false
	v.editing = ""
}

// Download saves data as filename inside the download directory
func (v *View) Download(data []byte, filename string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := os.MkdirAll(v.downloadDir, 0o755); err != nil {
		return errors.Wrap(err, "create download directory")
	}
	path := filepath.Join(v.downloadDir, filepath.Base(filename))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "write download")
	}
	v.lastFile = path
	zap.L().Info("file saved",
		zap.String("namespace", "console"),
		zap.String("path", path),
		zap.Int("size", len(data)))
	return nil
}
