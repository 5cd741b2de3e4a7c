package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"shop/internal/domain/model"
	repo "shop/internal/repository"
)

// OrderUsecase は注文の参照系。注文は追記専用なので
// ここに更新系の操作はない。
type OrderUsecase struct {
	orderRepo repo.OrderRepository
}

func NewOrderUsecase(orderRepo repo.OrderRepository) *OrderUsecase {
	return &OrderUsecase{orderRepo: orderRepo}
}

type OrderDetailOutput struct {
	Order model.Order       `json:"order"`
	Lines []model.OrderLine `json:"lines"`
}

// 検索条件の入力。nil/空は条件なし。
type ListOrdersInput struct {
	Keyword     string
	OrderID     *int64
	Username    string
	ProductName string
	BrandID     *int64
	CategoryID  *int64
	StartTime   *time.Time
	EndTime     *time.Time
	Page        int
	PageSize    int
}

// GetOrder は注文ヘッダと明細を返す。
// 他人の注文は管理者以外に見せない。
func (u *OrderUsecase) GetOrder(ctx context.Context, userID int64, role model.Role, orderID int64) (OrderDetailOutput, error) {
	if userID <= 0 {
		return OrderDetailOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderDetailOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	o, lines, err := u.orderRepo.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return OrderDetailOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return OrderDetailOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if o.UserID != userID && role != model.RoleAdmin {
		return OrderDetailOutput{}, NewHTTPError(http.StatusForbidden, "forbidden")
	}

	return OrderDetailOutput{Order: o, Lines: lines}, nil
}

// ListOrders は条件検索。管理者以外は自分のusernameに固定される。
func (u *OrderUsecase) ListOrders(ctx context.Context, callerUsername string, role model.Role, in ListOrdersInput) ([]repo.OrderRow, error) {
	filters, err := buildOrderFilters(callerUsername, role, in)
	if err != nil {
		return nil, err
	}

	rows, err := u.orderRepo.Query(ctx, repo.OrderQuery{
		Filters:  filters,
		Page:     in.Page,
		PageSize: in.PageSize,
	})
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return rows, nil
}

// CountOrders は条件に一致する行数。
func (u *OrderUsecase) CountOrders(ctx context.Context, callerUsername string, role model.Role, in ListOrdersInput) (int64, error) {
	filters, err := buildOrderFilters(callerUsername, role, in)
	if err != nil {
		return 0, err
	}

	total, err := u.orderRepo.Count(ctx, filters)
	if err != nil {
		return 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return total, nil
}

// 入力を型付きフィルタ列に変換する。
func buildOrderFilters(callerUsername string, role model.Role, in ListOrdersInput) ([]repo.OrderFilter, error) {
	if callerUsername == "" {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var filters []repo.OrderFilter

	if kw := strings.TrimSpace(in.Keyword); kw != "" {
		filters = append(filters, repo.FilterKeyword(kw))
	}
	if in.OrderID != nil {
		filters = append(filters, repo.FilterOrderID(*in.OrderID))
	}

	//管理者だけが任意のusernameで検索できる
	if role == model.RoleAdmin {
		if un := strings.TrimSpace(in.Username); un != "" {
			filters = append(filters, repo.FilterUsername(un))
		}
	} else {
		filters = append(filters, repo.FilterUsername(callerUsername))
	}

	if pn := strings.TrimSpace(in.ProductName); pn != "" {
		filters = append(filters, repo.FilterProductName(pn))
	}
	if in.BrandID != nil {
		filters = append(filters, repo.FilterBrandID(*in.BrandID))
	}
	if in.CategoryID != nil {
		filters = append(filters, repo.FilterCategoryID(*in.CategoryID))
	}
	if in.StartTime != nil {
		filters = append(filters, repo.FilterPlacedFrom(*in.StartTime))
	}
	if in.EndTime != nil {
		filters = append(filters, repo.FilterPlacedUntil(*in.EndTime))
	}

	return filters, nil
}
