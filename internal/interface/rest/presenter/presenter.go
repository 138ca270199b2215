package presenter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/zeebo/xxh3"
	"go.opentelemetry.io/otel/trace"

	"github.com/ehdrbdndns/steelart-dashboard/internal/domain"
)

type dataResponse struct {
	Data any `json:"data"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// OK wraps a successful response.
func OK(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, dataResponse{Data: payload})
}

// List writes payload with an ETag and answers 304 when the client already
// holds the same body.
func List(c echo.Context, payload any) error {
	body, err := json.Marshal(dataResponse{Data: payload})
	if err != nil {
		return InternalError(c, err)
	}

	etag := `"` + strconv.FormatUint(xxh3.Hash(body), 16) + `"`
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	c.Response().Header().Set("ETag", etag)

	if match := c.Request().Header.Get("If-None-Match"); match != "" && match == etag {
		return c.NoContent(http.StatusNotModified)
	}

	return c.JSONBlob(http.StatusOK, body)
}

func BadRequestMessage(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: errorBody{Code: domain.CodeValidation, Message: msg}})
}

func InternalError(c echo.Context, err error) error {
	ctx := c.Request().Context()
	slog.ErrorContext(
		ctx, "Internal error",
		slog.String("error", err.Error()),
		slog.String("traceID", trace.SpanContextFromContext(ctx).TraceID().String()),
		slog.String("module", "rest"),
	)
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: errorBody{
		Code:    domain.CodeInternal,
		Message: "internal server error",
	}})
}

// Error maps domain errors onto status codes and error codes. Anything it
// does not recognise is reported as an internal error.
func Error(c echo.Context, err error) error {
	var conflict domain.ConflictError
	switch {
	case errors.As(err, &conflict):
		code := conflict.Code
		if code == "" {
			code = domain.CodeConflict
		}
		return c.JSON(http.StatusConflict, errorResponse{Error: errorBody{Code: code, Message: conflict.Error()}})
	case errors.Is(err, domain.ErrValidation):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: errorBody{Code: domain.CodeValidation, Message: err.Error()}})
	case errors.Is(err, domain.ErrReference):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: errorBody{Code: domain.CodeReference, Message: err.Error()}})
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: errorBody{Code: domain.CodeNotFound, Message: err.Error()}})
	}
	return InternalError(c, err)
}
