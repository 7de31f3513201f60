package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pubcask/pubcask/internal/server"
)

// DefaultMaxUploadSize caps the archive upload body when no
// publish.max_upload_size is configured.
const DefaultMaxUploadSize = 100 * 1024 * 1024 // 100MB

// GetNewVersion handles the initiate step of the publish handshake:
// it returns the upload URL and a fresh session token. Nothing is
// recorded server-side yet.
func GetNewVersion(c echo.Context, a *server.App) error {
	return sendPubJSON(c, http.StatusOK, a.Registry.InitiatePublish())
}

// PostNewUpload handles the upload step. The body is multipart-encoded
// and read raw: boundary scanning happens on bytes so the archive
// content survives untouched.
func PostNewUpload(c echo.Context, a *server.App) error {
	contentType := c.Request().Header.Get(echo.HeaderContentType)

	// Reject before reading the body when the content type is not
	// multipart at all.
	if !isMultipart(contentType) {
		return sendAPIError(c, http.StatusBadRequest, "invalid_content_type",
			"content type must be multipart/form-data")
	}

	limit := a.Config.Publish.MaxUploadBytes
	if limit <= 0 {
		limit = DefaultMaxUploadSize
	}
	c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, limit)
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return sendAPIError(c, http.StatusBadRequest, "upload_error",
			fmt.Sprintf("failed to read upload body: %v", err))
	}

	finalizeURL, err := a.Registry.HandleUpload(contentType, body)
	if err != nil {
		return sendProtocolError(c, err)
	}

	c.Response().Header().Set(echo.HeaderLocation, finalizeURL)
	return c.NoContent(http.StatusNoContent)
}

// GetUploadFinish handles the finalize step: the session token arrives
// as a query parameter and is consumed on success.
func GetUploadFinish(c echo.Context, a *server.App) error {
	token := c.QueryParam("session")

	pkg, version, err := a.Registry.FinalizePublish(c.Request().Context(), token)
	if err != nil {
		return sendProtocolError(c, err)
	}

	return sendSuccess(c, fmt.Sprintf("Successfully uploaded package %s version %s.", pkg, version))
}

func isMultipart(contentType string) bool {
	return len(contentType) >= len("multipart/form-data") &&
		contentType[:len("multipart/form-data")] == "multipart/form-data"
}
