package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pubcask/pubcask/internal/server"
	"github.com/pubcask/pubcask/pkg/version"
)

type InfoResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}

// GetHealth reports liveness, uptime and the build version.
func GetHealth(c echo.Context, a *server.App) error {
	return c.JSON(http.StatusOK, InfoResponse{
		Status:  "ok",
		Uptime:  a.GetUptime(),
		Version: version.Version(),
	})
}
