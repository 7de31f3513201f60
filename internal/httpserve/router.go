// Package httpserve wires the pub repository protocol onto an echo
// server.
package httpserve

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/pubcask/pubcask/internal/httpserve/handlers"
	"github.com/pubcask/pubcask/internal/httpserve/middleware"
	"github.com/pubcask/pubcask/internal/server"
)

// RegisterRoutes attaches the repository API to e.
func RegisterRoutes(e *echo.Echo, a *server.App) *echo.Echo {
	e.Use(middleware.RequestLogger())

	e.GET("/healthz", wrap(a, handlers.GetHealth))

	api := e.Group("/api", middleware.CheckAccept())
	api.GET("/packages/:package", wrap(a, handlers.GetPackage))

	publish := api.Group("/packages/versions", middleware.RequireToken(a))
	if a.Limiter != nil {
		publish.Use(echomw.RateLimiter(a.Limiter))
	}
	publish.GET("/new", wrap(a, handlers.GetNewVersion))
	publish.POST("/newUpload", wrap(a, handlers.PostNewUpload))
	publish.GET("/newUploadFinish", wrap(a, handlers.GetUploadFinish))

	e.GET("/packages/:package/versions/:archive", wrap(a, handlers.GetArchive))

	return e
}

func wrap(a *server.App, h func(echo.Context, *server.App) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		return h(c, a)
	}
}
