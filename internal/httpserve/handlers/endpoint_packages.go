package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pubcask/pubcask/internal/server"
)

// GetPackage handles the version-listing endpoint.
func GetPackage(c echo.Context, a *server.App) error {
	name := c.Param("package")

	pkg, err := a.Registry.GetPackage(c.Request().Context(), name)
	if err != nil {
		return sendProtocolError(c, err)
	}
	return sendPubJSON(c, http.StatusOK, pkg)
}

// GetArchive streams one version's archive bytes.
func GetArchive(c echo.Context, a *server.App) error {
	name := c.Param("package")
	file := c.Param("archive")

	version, ok := strings.CutSuffix(file, ".tar.gz")
	if !ok || version == "" {
		return sendAPIError(c, http.StatusNotFound, "not_found", "unknown archive "+file)
	}

	data, err := a.Registry.DownloadArchive(c.Request().Context(), name, version)
	if err != nil {
		return sendProtocolError(c, err)
	}
	return c.Blob(http.StatusOK, "application/octet-stream", data)
}
