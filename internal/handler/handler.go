package handler

import (
	"errors"
	"net/http"

	"pos/internal/lock"
	repo "pos/internal/repository"
	"pos/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

// usecaseの型付きエラーをHTTPステータスへ変換する。
// エンジン側はHTTPを知らないので、変換はここに集約する。
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}

	var ins *usecase.InsufficientStockError
	if errors.As(err, &ins) {
		return c.JSON(http.StatusConflict, ErrorResponse{Error: ins.Error()})
	}

	var busy *lock.BusyError
	if errors.As(err, &busy) {
		return c.JSON(http.StatusConflict, ErrorResponse{Error: "concurrent modification"})
	}

	var transient *repo.TransientError
	if errors.As(err, &transient) {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "temporarily unavailable"})
	}

	switch {
	case errors.Is(err, usecase.ErrValidation), errors.Is(err, usecase.ErrInvalidAdjustment):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, repo.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func getUserIDFromContext(c echo.Context) (int64, bool) {
	v := c.Get("user_id")
	if v == nil {
		return 0, false
	}

	id, ok := v.(int64)
	if !ok {
		return 0, false
	}

	return id, true
}
