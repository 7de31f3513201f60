package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pubcask/pubcask/internal/registry"
	"github.com/pubcask/pubcask/pkg/archive"
	"github.com/pubcask/pubcask/pkg/logger"
	"github.com/pubcask/pubcask/pkg/multipart"
)

// PubContentType is the media type of every JSON body this API emits.
const PubContentType = "application/vnd.pub.v2+json"

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type successBody struct {
	Success struct {
		Message string `json:"message"`
	} `json:"success"`
}

// sendPubJSON writes payload with the pub vendor content type, which
// echo's JSON helper would otherwise override.
func sendPubJSON(c echo.Context, status int, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.Blob(status, PubContentType, data)
}

func sendAPIError(c echo.Context, status int, code, message string) error {
	return sendPubJSON(c, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

func sendSuccess(c echo.Context, message string) error {
	var body successBody
	body.Success.Message = message
	return sendPubJSON(c, http.StatusOK, body)
}

// sendProtocolError maps the engine's error taxonomy onto the wire
// protocol's status and code pairs.
func sendProtocolError(c echo.Context, err error) error {
	var upstream *registry.UpstreamError

	switch {
	case errors.Is(err, registry.ErrBadContentType),
		errors.Is(err, multipart.ErrMissingBoundary):
		return sendAPIError(c, http.StatusBadRequest, "invalid_content_type", err.Error())
	case errors.Is(err, registry.ErrMissingFile):
		return sendAPIError(c, http.StatusBadRequest, "missing_file", err.Error())
	case errors.Is(err, archive.ErrInvalidArchive):
		return sendAPIError(c, http.StatusBadRequest, "upload_error", err.Error())
	case errors.Is(err, registry.ErrMissingSession):
		return sendAPIError(c, http.StatusBadRequest, "missing_session", err.Error())
	case errors.Is(err, registry.ErrSessionNotFound):
		return sendAPIError(c, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, registry.ErrVersionExists):
		return sendAPIError(c, http.StatusBadRequest, "publish_error", err.Error())
	case errors.Is(err, registry.ErrPackageNotFound),
		errors.Is(err, registry.ErrVersionNotFound):
		return sendAPIError(c, http.StatusNotFound, "not_found", err.Error())
	case errors.As(err, &upstream):
		logger.Error("Registry adapter failure", "error", err)
		return sendAPIError(c, http.StatusBadRequest, "publish_error", "registry adapter failure")
	default:
		logger.Error("Unhandled request error", "error", err)
		return sendAPIError(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
