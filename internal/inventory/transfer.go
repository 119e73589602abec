package inventory

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/gocarina/gocsv"
	jsoniter "github.com/json-iterator/go"
	"github.com/talkincode/cafestock/internal/domain"
	"github.com/talkincode/cafestock/internal/events"
	"go.uber.org/zap"
)

// ExportVersion tags export documents
const ExportVersion = "1.0.0"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ExportDocument wraps exported products with metadata
type ExportDocument struct {
	Version    string            `json:"version"`
	ExportedAt time.Time         `json:"exportedAt"`
	Count      int               `json:"count"`
	Products   []*domain.Product `json:"products"`
}

// ImportResult reports the outcome of an import. Success is false only when the
// input could not be read as a product list at all.
type ImportResult struct {
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	Err      error  `json:"-"`
}

func failedImport(err error) ImportResult {
	return ImportResult{Success: false, Error: err.Error(), Err: err}
}

// ExportAll returns every product as an indented JSON array in insertion order
func (s *Service) ExportAll() (string, error) {
	data, err := json.MarshalIndent(s.GetAll(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ExportDocument returns the products inside a versioned envelope
func (s *Service) ExportDocument() ([]byte, error) {
	products := s.GetAll()
	return json.MarshalIndent(ExportDocument{
		Version:    ExportVersion,
		ExportedAt: time.Now(),
		Count:      len(products),
		Products:   products,
	}, "", "  ")
}

// ImportAll appends the valid products found in text. It accepts a JSON array of
// records or an export document. Invalid records are skipped and counted, and a
// record whose id is already taken receives a new id.
func (s *Service) ImportAll(text string) ImportResult {
	var root interface{}
	if err := json.UnmarshalFromString(text, &root); err != nil {
		return failedImport(&ImportParseError{Reason: "input is not valid JSON"})
	}
	var records []interface{}
	switch v := root.(type) {
	case []interface{}:
		records = v
	case map[string]interface{}:
		list, ok := v["products"].([]interface{})
		if !ok {
			return failedImport(&ImportParseError{Reason: "data must be an array of products"})
		}
		records = list
	default:
		return failedImport(&ImportParseError{Reason: "data must be an array of products"})
	}
	return s.importRecords(records)
}

type csvRow struct {
	ID          string `csv:"id"`
	Name        string `csv:"name"`
	Type        string `csv:"type"`
	Category    string `csv:"category"`
	Price       string `csv:"price"`
	Stock       string `csv:"stock"`
	Description string `csv:"description"`
	Active      string `csv:"active"`
	CreatedAt   string `csv:"createdAt"`
	UpdatedAt   string `csv:"updatedAt"`
}

// ExportCSV renders every product as CSV with a header row
func (s *Service) ExportCSV() (string, error) {
	products := s.GetAll()
	rows := make([]*csvRow, 0, len(products))
	for _, p := range products {
		rows = append(rows, &csvRow{
			ID:          p.ID,
			Name:        p.Name,
			Type:        string(p.Type),
			Category:    p.Category,
			Price:       strconv.FormatFloat(p.Price, 'f', -1, 64),
			Stock:       strconv.Itoa(p.Stock),
			Description: p.Description,
			Active:      strconv.FormatBool(p.Active),
			CreatedAt:   p.CreatedAt.Format(time.RFC3339Nano),
			UpdatedAt:   p.UpdatedAt.Format(time.RFC3339Nano),
		})
	}
	return gocsv.MarshalString(&rows)
}

// ImportCSV appends the valid products found in CSV text with a header row.
// Empty cells take the product defaults.
func (s *Service) ImportCSV(text string) ImportResult {
	var rows []*csvRow
	if err := gocsv.UnmarshalString(text, &rows); err != nil {
		return failedImport(&ImportParseError{Reason: "input is not valid CSV: " + err.Error()})
	}
	records := make([]interface{}, 0, len(rows))
	for _, r := range rows {
		record := map[string]interface{}{}
		for key, value := range map[string]string{
			"id": r.ID, "name": r.Name, "type": r.Type, "category": r.Category,
			"price": r.Price, "stock": r.Stock, "description": r.Description,
			"active": r.Active, "createdAt": r.CreatedAt, "updatedAt": r.UpdatedAt,
		} {
			if strings.TrimSpace(value) != "" {
				record[key] = value
			}
		}
		records = append(records, record)
	}
	return s.importRecords(records)
}

func (s *Service) importRecords(records []interface{}) ImportResult {
	result := ImportResult{Success: true}

	s.mu.Lock()
	taken := make(map[string]struct{}, len(s.products)+len(records))
	for _, p := range s.products {
		taken[p.ID] = struct{}{}
	}
	next := s.snapshot()
	for _, rec := range records {
		fields, ok := rec.(map[string]interface{})
		if !ok {
			result.Skipped++
			continue
		}
		d, err := domain.DecodeDraft(fields)
		if err != nil {
			result.Skipped++
			continue
		}
		if d.ID != nil {
			if _, dup := taken[*d.ID]; dup {
				d.ID = nil
			}
		}
		p := domain.NewProduct(d)
		if !p.Validate() {
			result.Skipped++
			continue
		}
		taken[p.ID] = struct{}{}
		next = append(next, p)
		result.Imported++
	}
	if result.Imported > 0 {
		if err := s.commit("import", next); err != nil {
			s.mu.Unlock()
			res := failedImport(err)
			res.Skipped = len(records)
			return res
		}
	}
	count := len(s.products)
	s.mu.Unlock()

	zap.L().Info("products imported",
		zap.String("namespace", "inventory"),
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped))
	if result.Imported > 0 {
		s.bus.Publish(events.ProductsSaved, CollectionEvent{Count: count})
	}
	s.bus.Publish(events.ProductsImported, result)
	return result
}

var xlsxHeaders = []string{"ID", "Name", "Type", "Category", "Price", "Stock", "Stock value", "Status", "Active", "Description"}

// ExportXLSX writes an inventory report workbook to w
func (s *Service) ExportXLSX(w io.Writer) error {
	const sheet = "Sheet1"
	f := excelize.NewFile()
	for i, h := range xlsxHeaders {
		f.SetCellValue(sheet, cellName(i, 1), h)
	}
	products := s.Filter(Criteria{})
	for r, p := range products {
		row := r + 2
		values := []interface{}{
			p.ID, p.Name, string(p.Type), p.Category, p.Price, p.Stock,
			p.TotalValue(), p.StockStatus().Message, p.Active, p.Description,
		}
		for i, v := range values {
			f.SetCellValue(sheet, cellName(i, row), v)
		}
	}
	st := s.Statistics()
	total := len(products) + 3
	f.SetCellValue(sheet, cellName(0, total), "Total")
	f.SetCellValue(sheet, cellName(5, total), st.TotalStock)
	f.SetCellValue(sheet, cellName(6, total), st.TotalValue)
	return f.Write(w)
}

// cellName converts a zero based column and a one based row into an A1 reference
func cellName(col, row int) string {
	name := ""
	for col >= 0 {
		name = string(rune('A'+col%26)) + name
		col = col/26 - 1
	}
	return name + strconv.Itoa(row)
}
