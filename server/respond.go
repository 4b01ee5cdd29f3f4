package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c echo.Context, status int, v any) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.JSON(status, v)
}

func DefaultHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if he, ok := err.(*echo.HTTPError); ok {
		message := http.StatusText(he.Code)
		if text, isText := he.Message.(string); isText && text != "" {
			message = text
		}
		_ = writeJSON(c, he.Code, ErrorResponse{Error: message})
		return
	}
	_ = writeJSON(c, http.StatusInternalServerError, ErrorResponse{Error: processingFailed})
}
