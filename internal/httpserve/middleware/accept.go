package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// PubContentType is the media type of the pub repository protocol.
const PubContentType = "application/vnd.pub.v2+json"

type acceptErrorBody struct {
	Error acceptErrorDetail `json:"error"`
}

type acceptErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CheckAccept rejects API requests whose Accept header names a media
// type this server cannot produce. Uploads (POST) and requests without
// an Accept header pass through.
func CheckAccept() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method == http.MethodPost {
				return next(c)
			}
			accept := c.Request().Header.Get("Accept")
			if accept == "" || acceptable(accept) {
				return next(c)
			}
			body := acceptErrorBody{Error: acceptErrorDetail{
				Code:    "invalid_accept",
				Message: "this server only produces " + PubContentType,
			}}
			return c.JSON(http.StatusNotAcceptable, body)
		}
	}
}

func acceptable(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		media := strings.TrimSpace(part)
		if i := strings.Index(media, ";"); i >= 0 {
			media = strings.TrimSpace(media[:i])
		}
		switch media {
		case "*/*", PubContentType, "application/json", "application/octet-stream":
			return true
		}
	}
	return false
}
