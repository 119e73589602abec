package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/cafestock/internal/webserver"
)

// registerJobRoutes registers background job API routes
func registerJobRoutes() {
	webserver.ApiGET("/system/jobs", ListJobs)
	webserver.ApiPOST("/system/jobs/:name/run", TriggerJob)
}

// ListJobs returns the names of the scheduled jobs
func ListJobs(c echo.Context) error {
	return ok(c, GetAppContext(c).JobNames())
}

// TriggerJob triggers the job immediately
func TriggerJob(c echo.Context) error {
	if err := GetAppContext(c).RunJobNow(c.Param("name")); err != nil {
		return fail(c, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
