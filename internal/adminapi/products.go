package adminapi

import (
	"bytes"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/talkincode/cafestock/internal/controller"
	"github.com/talkincode/cafestock/internal/domain"
	"github.com/talkincode/cafestock/internal/inventory"
	"github.com/talkincode/cafestock/internal/webserver"
)

type productPayload struct {
	Name        string  `json:"name" validate:"required,min=1,max=100"`
	Type        string  `json:"type" validate:"required,oneof=coffee food drink dessert"`
	Category    string  `json:"category" validate:"required,max=50"`
	Price       float64 `json:"price" validate:"gt=0"`
	Stock       *int    `json:"stock" validate:"omitempty,gte=0"`
	Description string  `json:"description" validate:"omitempty,max=500"`
	Active      *bool   `json:"active"`
}

// productUpdatePayload relaxes validation rules for partial updates
type productUpdatePayload struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=100"`
	Type        *string  `json:"type" validate:"omitempty,oneof=coffee food drink dessert"`
	Category    *string  `json:"category" validate:"omitempty,max=50"`
	Price       *float64 `json:"price" validate:"omitempty,gt=0"`
	Stock       *int     `json:"stock" validate:"omitempty,gte=0"`
	Description *string  `json:"description" validate:"omitempty,max=500"`
	Active      *bool    `json:"active"`
}

// registerProductRoutes registers product CRUD and collection endpoints
func registerProductRoutes() {
	webserver.ApiGET("/inventory/products", listProducts)
	webserver.ApiGET("/inventory/products/:id", getProduct)
	webserver.ApiPOST("/inventory/products", createProduct)
	webserver.ApiPUT("/inventory/products/:id", updateProduct)
	webserver.ApiDELETE("/inventory/products/:id", deleteProduct)

	webserver.ApiGET("/inventory/stats", getStatistics)
	webserver.ApiGET("/inventory/low-stock", listLowStock)
	webserver.ApiGET("/inventory/catalog", getCatalog)
	webserver.ApiGET("/inventory/export", exportProducts)
	webserver.ApiPOST("/inventory/import", importProducts)
	webserver.ApiPOST("/inventory/reset", resetProducts)
	webserver.ApiPOST("/inventory/clear", clearProducts)
}

// criteriaFromQuery reads the list filters. An unparsable active flag is ignored.
func criteriaFromQuery(c echo.Context) inventory.Criteria {
	crit := inventory.Criteria{
		Search:      strings.TrimSpace(c.QueryParam("q")),
		Type:        domain.Type(strings.TrimSpace(c.QueryParam("type"))),
		Category:    strings.TrimSpace(c.QueryParam("category")),
		StockStatus: domain.StockLevel(strings.TrimSpace(c.QueryParam("stock_status"))),
	}
	if raw := c.QueryParam("active"); raw != "" {
		if active, err := cast.ToBoolE(raw); err == nil {
			crit.Active = &active
		}
	}
	return crit
}

func listProducts(c echo.Context) error {
	page, pageSize := parsePagination(c)
	rows := GetAppContext(c).Inventory().Filter(criteriaFromQuery(c))
	start, end := pageBounds(len(rows), page, pageSize)
	return paged(c, rows[start:end], int64(len(rows)), page, pageSize)
}

func getProduct(c echo.Context) error {
	p := GetAppContext(c).Inventory().GetByID(c.Param("id"))
	if p == nil {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	}
	return ok(c, p)
}

func createProduct(c echo.Context) error {
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	name := strings.TrimSpace(payload.Name)
	typ := domain.Type(payload.Type)
	category := strings.TrimSpace(payload.Category)
	description := strings.TrimSpace(payload.Description)
	p, err := GetAppContext(c).Inventory().Add(domain.Draft{
		Name:        &name,
		Type:        &typ,
		Category:    &category,
		Price:       &payload.Price,
		Stock:       payload.Stock,
		Description: &description,
		Active:      payload.Active,
	})
	if err != nil {
		return serviceError(c, err, "Failed to create product")
	}
	return created(c, p)
}

func updateProduct(c echo.Context) error {
	var payload productUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	changes := domain.Changes{
		Name:        trimmed(payload.Name),
		Category:    trimmed(payload.Category),
		Price:       payload.Price,
		Stock:       payload.Stock,
		Description: trimmed(payload.Description),
		Active:      payload.Active,
	}
	if payload.Type != nil {
		typ := domain.Type(*payload.Type)
		changes.Type = &typ
	}
	p, err := GetAppContext(c).Inventory().Update(c.Param("id"), changes)
	if err != nil {
		return serviceError(c, err, "Failed to update product")
	}
	return ok(c, p)
}

func deleteProduct(c echo.Context) error {
	p, err := GetAppContext(c).Inventory().Remove(c.Param("id"))
	if err != nil {
		return serviceError(c, err, "Failed to delete product")
	}
	return ok(c, map[string]interface{}{"id": p.ID})
}

func getStatistics(c echo.Context) error {
	return ok(c, GetAppContext(c).Inventory().Statistics())
}

func listLowStock(c echo.Context) error {
	return ok(c, GetAppContext(c).Inventory().LowStock())
}

type catalogType struct {
	Type       domain.Type `json:"type"`
	Icon       string      `json:"icon"`
	Categories []string    `json:"categories"`
}

func getCatalog(c echo.Context) error {
	out := make([]catalogType, 0, len(domain.Types))
	for _, t := range domain.Types {
		out = append(out, catalogType{Type: t, Icon: t.Icon(), Categories: domain.Categories(t)})
	}
	return ok(c, out)
}

func exportProducts(c echo.Context) error {
	svc := GetAppContext(c).Inventory()
	format := strings.ToLower(strings.TrimSpace(c.QueryParam("format")))
	if format == "" {
		format = "json"
	}
	filename := controller.ExportFilename(format, time.Now())
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)

	switch format {
	case "json":
		data, err := svc.ExportDocument()
		if err != nil {
			return fail(c, http.StatusInternalServerError, "EXPORT_FAILED", "Failed to export products", err.Error())
		}
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSONCharsetUTF8, data)
	case "csv":
		text, err := svc.ExportCSV()
		if err != nil {
			return fail(c, http.StatusInternalServerError, "EXPORT_FAILED", "Failed to export products", err.Error())
		}
		return c.Blob(http.StatusOK, "text/csv; charset=UTF-8", []byte(text))
	case "xlsx":
		var buf bytes.Buffer
		if err := svc.ExportXLSX(&buf); err != nil {
			return fail(c, http.StatusInternalServerError, "EXPORT_FAILED", "Failed to export products", err.Error())
		}
		return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
	default:
		c.Response().Header().Del(echo.HeaderContentDisposition)
		return fail(c, http.StatusBadRequest, "INVALID_FORMAT", "Format must be json, csv or xlsx", nil)
	}
}

// importProducts accepts the file as a multipart "file" field or as the raw body.
// CSV is selected by format=csv, a text/csv body or a .csv file name.
func importProducts(c echo.Context) error {
	var (
		reader   io.Reader = c.Request().Body
		filename           = "import." + strings.ToLower(c.QueryParam("format"))
	)
	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		fh, err := c.FormFile("file")
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Missing file field", err.Error())
		}
		f, err := fh.Open()
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to read upload", err.Error())
		}
		defer f.Close()
		reader = f
		if c.QueryParam("format") == "" {
			filename = fh.Filename
		}
	} else if strings.HasPrefix(contentType, "text/csv") {
		filename = "import.csv"
	}

	data, err := io.ReadAll(io.LimitReader(reader, controller.MaxImportSize+1))
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to read import", err.Error())
	}
	if len(data) > controller.MaxImportSize {
		return fail(c, http.StatusRequestEntityTooLarge, "IMPORT_TOO_LARGE", "Import file is too large", nil)
	}

	svc := GetAppContext(c).Inventory()
	var res inventory.ImportResult
	if strings.EqualFold(filepath.Ext(filename), ".csv") {
		res = svc.ImportCSV(string(data))
	} else {
		res = svc.ImportAll(string(data))
	}
	if !res.Success {
		if inventory.IsPersistence(res.Err) {
			return fail(c, http.StatusInternalServerError, "STORAGE_ERROR", "Failed to save imported products", res.Error)
		}
		return fail(c, http.StatusBadRequest, "IMPORT_FAILED", "Unable to import products", res.Error)
	}
	return ok(c, res)
}

func resetProducts(c echo.Context) error {
	svc := GetAppContext(c).Inventory()
	if err := svc.ResetToDefault(); err != nil {
		return serviceError(c, err, "Failed to restore default products")
	}
	return ok(c, map[string]interface{}{"count": svc.Count()})
}

func clearProducts(c echo.Context) error {
	if err := GetAppContext(c).Inventory().Clear(); err != nil {
		return serviceError(c, err, "Failed to delete products")
	}
	return c.NoContent(http.StatusNoContent)
}

func serviceError(c echo.Context, err error, message string) error {
	var verr *inventory.ValidationError
	switch {
	case inventory.IsNotFound(err):
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	case errors.As(err, &verr):
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", message, verr.Violations)
	case inventory.IsPersistence(err):
		return fail(c, http.StatusInternalServerError, "STORAGE_ERROR", message, err.Error())
	default:
		return fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", message, err.Error())
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
