package usecase

import (
	"context"
	"errors"
	"net/http"

	repo "shop/internal/repository"
)

// 1ユーザーが持てるカート明細（商品種類）数の上限
const cartLineLimit = 20

// カート明細数が上限に達している
var ErrCartLimitReached = errors.New("CART_LIMIT_REACHED")

// CartUsecase は /cart の業務ロジックです。
type CartUsecase struct {
	cartRepo    repo.CartRepository
	productRepo repo.ProductRepository
}

func NewCartUsecase(cartRepo repo.CartRepository, productRepo repo.ProductRepository) *CartUsecase {
	return &CartUsecase{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

type CartLineOutput struct {
	ProductID int64 `json:"product_id"`
	Qty       int64 `json:"qty"`
}

type CartOutput struct {
	Lines []CartLineOutput `json:"lines"`
	Total int64            `json:"total"`
}

// GetCart はカートの明細一覧と件数を返す。
func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartOutput, error) {
	if userID <= 0 {
		return CartOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	lines, err := u.cartRepo.ListByUserID(ctx, userID)
	if err != nil {
		return CartOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	out := CartOutput{Lines: make([]CartLineOutput, 0, len(lines))}
	for _, ln := range lines {
		out.Lines = append(out.Lines, CartLineOutput{ProductID: ln.ProductID, Qty: ln.Qty})
	}
	out.Total = int64(len(out.Lines))

	return out, nil
}

// CountLines は明細数だけを返す（/cart/total）。
func (u *CartUsecase) CountLines(ctx context.Context, userID int64) (int64, error) {
	if userID <= 0 {
		return 0, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	total, err := u.cartRepo.CountByUserID(ctx, userID)
	if err != nil {
		return 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return total, nil
}

// AddLine はカートに明細を追加する。既存商品なら数量を置き換える。
// 新しい商品の追加は20行の上限を超えられない。
func (u *CartUsecase) AddLine(ctx context.Context, userID int64, productID int64, qty int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	if qty < 1 {
		return NewHTTPError(http.StatusBadRequest, "invalid qty")
	}

	//商品チェック
	if _, err := u.productRepo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusBadRequest, "invalid product")
		}
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//上限チェックは新規行の追加だけに効く
	lines, err := u.cartRepo.ListByUserID(ctx, userID)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	exists := false
	for _, ln := range lines {
		if ln.ProductID == productID {
			exists = true
			break
		}
	}
	if !exists && int64(len(lines)) >= cartLineLimit {
		return ErrCartLimitReached
	}

	if err := u.cartRepo.Upsert(ctx, userID, productID, qty); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// UpdateQty は既存明細の数量を変更する。
func (u *CartUsecase) UpdateQty(ctx context.Context, userID int64, productID int64, qty int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	if qty < 1 {
		return NewHTTPError(http.StatusBadRequest, "invalid qty")
	}

	lines, err := u.cartRepo.ListByUserID(ctx, userID)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	found := false
	for _, ln := range lines {
		if ln.ProductID == productID {
			found = true
			break
		}
	}
	if !found {
		return NewHTTPError(http.StatusNotFound, "not found")
	}

	if err := u.cartRepo.Upsert(ctx, userID, productID, qty); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// RemoveLine は明細を削除する。
func (u *CartUsecase) RemoveLine(ctx context.Context, userID int64, productID int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}

	if err := u.cartRepo.Remove(ctx, userID, productID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// Validate はカート全行が現在の在庫で足りるかを返す。
// checkout前のプレビュー用で、何も書き換えない。
func (u *CartUsecase) Validate(ctx context.Context, userID int64) (bool, error) {
	if userID <= 0 {
		return false, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	snapshot, err := u.cartRepo.SnapshotByUserID(ctx, userID)
	if err != nil {
		return false, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	for _, ln := range snapshot {
		p, err := u.productRepo.FindByID(ctx, ln.ProductID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return false, nil
			}
			return false, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if ln.Qty > p.Stock {
			return false, nil
		}
	}
	return true, nil
}
