package handler

import (
	"errors"
	"net/http"

	"shop/internal/domain/model"
	"shop/internal/middleware"
	"shop/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

// usecaseのエラーをJSONに変換する。
// checkoutのエラー種別はここでステータスに落とす。
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}

	if ce, ok := usecase.AsCheckoutError(err); ok {
		return c.JSON(checkoutStatus(ce.Kind), ErrorResponse{
			Error:  string(ce.Kind),
			Fields: ce.Fields,
		})
	}

	if errors.Is(err, usecase.ErrCartLimitReached) {
		return c.JSON(http.StatusConflict, ErrorResponse{Error: "CART_LIMIT_REACHED"})
	}

	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Error: he.Message})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func checkoutStatus(kind usecase.CheckoutErrorKind) int {
	switch kind {
	case usecase.CheckoutEmptyCart:
		return http.StatusConflict
	case usecase.CheckoutInsufficientStock:
		return http.StatusConflict
	case usecase.CheckoutValidationError:
		return http.StatusBadRequest
	case usecase.CheckoutCardAuthError:
		return http.StatusPaymentRequired
	case usecase.CheckoutConflictRetry:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func getUserIDFromContext(c echo.Context) (int64, bool) {
	v := c.Get(middleware.CtxUserIDKey)
	id, ok := v.(int64)
	return id, ok && id > 0
}

func getUsernameFromContext(c echo.Context) (string, bool) {
	v := c.Get(middleware.CtxUsernameKey)
	name, ok := v.(string)
	return name, ok && name != ""
}

func getRoleFromContext(c echo.Context) model.Role {
	v := c.Get(middleware.CtxUserRoleKey)
	if s, ok := v.(string); ok {
		return model.Role(s)
	}
	return ""
}
