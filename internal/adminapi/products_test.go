package adminapi

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/cafestock/config"
	"github.com/talkincode/cafestock/internal/app"
	"github.com/talkincode/cafestock/internal/domain"
	"github.com/talkincode/cafestock/internal/inventory"
	"github.com/talkincode/cafestock/internal/webserver"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type testEnv struct {
	app *app.Application
	h   http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.DefaultAppConfig()
	cfg.System.Workdir = t.TempDir()
	cfg.Logger.FileEnable = false
	cfg.Storage.Backend = "memory"
	a := app.NewApplication(cfg)
	require.NoError(t, a.Init(cfg))
	t.Cleanup(a.Release)

	Init()
	srv := webserver.NewAdminServer(webserver.Config{}, a, domain.Validator())
	return &testEnv{app: a, h: srv.Handler()}
}

func (e *testEnv) do(method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, webserver.ApiPrefix+path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) send(method, path, body string) *httptest.ResponseRecorder {
	return e.do(method, path, echo.MIMEApplicationJSON, []byte(body))
}

type envelope struct {
	Data    jsoniter.RawMessage `json:"data"`
	Meta    *Meta               `json:"meta"`
	Error   string              `json:"error"`
	Message string              `json:"message"`
	Details jsoniter.RawMessage `json:"details"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return env
}

func TestListProducts(t *testing.T) {
	e := newTestEnv(t)

	rec := e.send(http.MethodGet, "/inventory/products", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []domain.Product
	env := decode(t, rec, &rows)
	assert.Len(t, rows, 8)
	assert.Equal(t, int64(8), env.Meta.Total)

	rec = e.send(http.MethodGet, "/inventory/products?type=coffee&pageSize=2&page=2", "")
	env = decode(t, rec, &rows)
	assert.Equal(t, int64(3), env.Meta.Total)
	require.Len(t, rows, 1)

	rec = e.send(http.MethodGet, "/inventory/products?stock_status=low", "")
	decode(t, rec, &rows)
	require.Len(t, rows, 1)
	assert.Equal(t, "Torta de Chocolate", rows[0].Name)

	rec = e.send(http.MethodGet, "/inventory/products?q=jugo&active=true", "")
	decode(t, rec, &rows)
	assert.Len(t, rows, 1)

	rec = e.send(http.MethodGet, "/inventory/products?active=false", "")
	decode(t, rec, &rows)
	assert.Empty(t, rows)

	rec = e.send(http.MethodGet, "/inventory/products?page=9", "")
	decode(t, rec, &rows)
	assert.Empty(t, rows)
}

func TestProductCRUD(t *testing.T) {
	e := newTestEnv(t)

	rec := e.send(http.MethodPost, "/inventory/products",
		`{"name":"Mocha Blanco","type":"coffee","category":"Mocha","price":5200,"stock":14}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var p domain.Product
	decode(t, rec, &p)
	assert.NotEmpty(t, p.ID)
	assert.True(t, p.Active)

	rec = e.send(http.MethodGet, "/inventory/products/"+p.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.send(http.MethodPut, "/inventory/products/"+p.ID, `{"stock":2,"active":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &p)
	assert.Equal(t, 2, p.Stock)
	assert.False(t, p.Active)
	assert.Equal(t, "Mocha Blanco", p.Name)

	rec = e.send(http.MethodDelete, "/inventory/products/"+p.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, e.app.Inventory().GetByID(p.ID))

	rec = e.send(http.MethodGet, "/inventory/products/"+p.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = e.send(http.MethodDelete, "/inventory/products/"+p.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = e.send(http.MethodPut, "/inventory/products/"+p.ID, `{"stock":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateProductValidation(t *testing.T) {
	e := newTestEnv(t)

	rec := e.send(http.MethodPost, "/inventory/products", `{"name":"","type":"tea","category":"Té","price":0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec, nil)
	assert.Equal(t, "VALIDATION_ERROR", env.Error)
	var details map[string]string
	require.NoError(t, json.Unmarshal(env.Details, &details))
	assert.Contains(t, details, "name")
	assert.Contains(t, details, "type")
	assert.Contains(t, details, "price")

	// category must belong to the type, which only the service knows
	rec = e.send(http.MethodPost, "/inventory/products", `{"name":"Pizza Café","type":"coffee","category":"Pizza","price":100}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env = decode(t, rec, nil)
	var violations []domain.Violation
	require.NoError(t, json.Unmarshal(env.Details, &violations))
	require.Len(t, violations, 1)
	assert.Equal(t, "category", violations[0].Field)

	rec = e.send(http.MethodPost, "/inventory/products", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.send(http.MethodPut, "/inventory/products/x", `{"price":-3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 8, e.app.Inventory().Count())
}

func TestStatisticsAndLowStock(t *testing.T) {
	e := newTestEnv(t)

	var st inventory.Statistics
	decode(t, e.send(http.MethodGet, "/inventory/stats", ""), &st)
	assert.Equal(t, 8, st.Total)
	assert.Equal(t, 1, st.LowStock)
	assert.Equal(t, 173, st.TotalStock)

	var low []domain.Product
	decode(t, e.send(http.MethodGet, "/inventory/low-stock", ""), &low)
	assert.Len(t, low, 1)

	var catalog []catalogType
	decode(t, e.send(http.MethodGet, "/inventory/catalog", ""), &catalog)
	require.Len(t, catalog, 4)
	assert.Equal(t, domain.TypeCoffee, catalog[0].Type)
	assert.Len(t, catalog[0].Categories, 7)
}

func TestExport(t *testing.T) {
	e := newTestEnv(t)
	today := time.Now().Format("2006-01-02")

	rec := e.send(http.MethodGet, "/inventory/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "productos_cafeteria_"+today+".json")
	var doc inventory.ExportDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, 8, doc.Count)

	rec = e.send(http.MethodGet, "/inventory/export?format=csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "id,name,type"))

	rec = e.send(http.MethodGet, "/inventory/export?format=xlsx", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotZero(t, rec.Body.Len())

	rec = e.send(http.MethodGet, "/inventory/export?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, rec.Header().Get(echo.HeaderContentDisposition))
}

func TestImport(t *testing.T) {
	e := newTestEnv(t)

	rec := e.send(http.MethodPost, "/inventory/import",
		`[{"name":"Agua con Gas","type":"drink","category":"Agua","price":2500,"stock":40},{"name":""}]`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res inventory.ImportResult
	decode(t, rec, &res)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 1, res.Skipped)

	rec = e.do(http.MethodPost, "/inventory/import", "text/csv",
		[]byte("name,type,category,price,stock\nBrownie Doble,dessert,Brownie,4200,6\n"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &res)
	assert.Equal(t, 1, res.Imported)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "lista.csv")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("name,type,category,price\nWrap Veggie,food,Wrap,9000\n"))
	require.NoError(t, mw.Close())
	rec = e.do(http.MethodPost, "/inventory/import", mw.FormDataContentType(), body.Bytes())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &res)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 11, e.app.Inventory().Count())

	rec = e.send(http.MethodPost, "/inventory/import", `{"not":"a list"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "IMPORT_FAILED", decode(t, rec, nil).Error)
}

func TestResetAndClear(t *testing.T) {
	e := newTestEnv(t)

	rec := e.send(http.MethodPost, "/inventory/clear", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, e.app.Inventory().Count())

	rec = e.send(http.MethodPost, "/inventory/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 8, e.app.Inventory().Count())
}

func TestStorageAndJobs(t *testing.T) {
	e := newTestEnv(t)

	var usage struct {
		ItemCount int   `json:"itemCount"`
		Quota     int64 `json:"quota"`
	}
	decode(t, e.send(http.MethodGet, "/system/storage", ""), &usage)
	assert.Equal(t, 1, usage.ItemCount)
	assert.Equal(t, int64(5*1024*1024), usage.Quota)

	var du struct {
		Path  string `json:"path"`
		Total uint64 `json:"total"`
	}
	decode(t, e.send(http.MethodGet, "/system/storage/disk", ""), &du)
	assert.NotEmpty(t, du.Path)
	assert.NotZero(t, du.Total)

	rec := e.send(http.MethodPost, "/system/storage/backups", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]string
	decode(t, rec, &created)
	key := created["key"]
	require.NotEmpty(t, key)

	var keys []string
	decode(t, e.send(http.MethodGet, "/system/storage/backups", ""), &keys)
	assert.Equal(t, []string{key}, keys)

	require.NoError(t, e.app.Inventory().Clear())
	rec = e.send(http.MethodPost, "/system/storage/backups/"+key+"/restore", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 8, e.app.Inventory().Count())

	rec = e.send(http.MethodPost, "/system/storage/backups/backup_missing/restore", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var jobs []string
	decode(t, e.send(http.MethodGet, "/system/jobs", ""), &jobs)
	assert.Equal(t, e.app.JobNames(), jobs)

	rec = e.send(http.MethodPost, "/system/jobs/low-stock/run", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = e.send(http.MethodPost, "/system/jobs/unknown/run", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
