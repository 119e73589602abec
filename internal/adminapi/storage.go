package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/cafestock/internal/webserver"
)

func registerStorageRoutes() {
	webserver.ApiGET("/system/storage", getStorageUsage)
	webserver.ApiGET("/system/storage/disk", getDiskUsage)
	webserver.ApiGET("/system/storage/backups", listBackups)
	webserver.ApiPOST("/system/storage/backups", createBackup)
	webserver.ApiPOST("/system/storage/backups/:key/restore", restoreBackup)
}

func getStorageUsage(c echo.Context) error {
	return ok(c, GetAppContext(c).Store().Usage())
}

func getDiskUsage(c echo.Context) error {
	du, err := GetAppContext(c).DiskUsage()
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DISK_USAGE_FAILED", "Disk usage unavailable", err.Error())
	}
	return ok(c, du)
}

func listBackups(c echo.Context) error {
	return ok(c, GetAppContext(c).Backups())
}

func createBackup(c echo.Context) error {
	key, err := GetAppContext(c).CreateBackup()
	if err != nil {
		return fail(c, http.StatusInternalServerError, "BACKUP_FAILED", "Failed to create backup", err.Error())
	}
	return created(c, map[string]string{"key": key})
}

func restoreBackup(c echo.Context) error {
	appctx := GetAppContext(c)
	key := c.Param("key")
	found := false
	for _, k := range appctx.Backups() {
		if k == key {
			found = true
			break
		}
	}
	if !found {
		return fail(c, http.StatusNotFound, "BACKUP_NOT_FOUND", "Backup not found", nil)
	}
	if err := appctx.RestoreBackup(key); err != nil {
		return fail(c, http.StatusInternalServerError, "RESTORE_FAILED", "Failed to restore backup", err.Error())
	}
	return ok(c, map[string]interface{}{"key": key, "products": appctx.Inventory().Count()})
}
