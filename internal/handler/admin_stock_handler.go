package handler

import (
	"net/http"
	"strconv"

	"shop/internal/config"
	"shop/internal/middleware"
	"shop/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 管理者の在庫編集のHTTP
type AdminStockHandler struct {
	uc *usecase.StockUsecase
}

func NewAdminStockHandler(uc *usecase.StockUsecase) *AdminStockHandler {
	return &AdminStockHandler{uc: uc}
}

type SetStockRequest struct {
	Stock int64 `json:"stock"`
}

func (h *AdminStockHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/admin")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.AdminRoleGuard())

	g.PATCH("/products/:id/stock", h.setStock)
}

func (h *AdminStockHandler) setStock(c echo.Context) error {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req SetStockRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := h.uc.SetStock(c.Request().Context(), productID, req.Stock); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "stock updated"})
}
