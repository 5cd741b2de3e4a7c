package usecase

import (
	"context"
	"errors"
	"net/http"

	repo "shop/internal/repository"
)

// StockUsecase は管理者の在庫編集。
type StockUsecase struct {
	stockRepo repo.StockRepository
}

func NewStockUsecase(stockRepo repo.StockRepository) *StockUsecase {
	return &StockUsecase{stockRepo: stockRepo}
}

// SetStock は在庫の現在値を設定する。
// 同じ商品の進行中checkoutとは行ロックで直列化される。
func (u *StockUsecase) SetStock(ctx context.Context, productID int64, qty int64) error {
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	if qty < 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid stock")
	}

	if err := u.stockRepo.SetStock(ctx, productID, qty); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}
