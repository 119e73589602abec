package adminapi

import (
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/cafestock/internal/app"
	"github.com/talkincode/cafestock/internal/webserver"
)

var initOnce sync.Once

// Init registers every admin api route with the webserver
func Init() {
	initOnce.Do(func() {
		registerProductRoutes()
		registerStorageRoutes()
		registerJobRoutes()
	})
}

// GetAppContext returns the application context injected by the webserver
func GetAppContext(c echo.Context) app.AppContext {
	appctx, _ := c.Get(webserver.AppContextKey).(app.AppContext)
	return appctx
}
