package repository

import (
	"context"
	"time"

	"shop/internal/domain/model"
)

// 注文検索の条件。フィールドごとのタグ付きバリアントで表現し、
// 文字列連結でSQLを組み立てない。
type OrderFilterKind int

const (
	FilterByKeyword OrderFilterKind = iota + 1
	FilterByOrderID
	FilterByUsername
	FilterByProductName
	FilterByBrandID
	FilterByCategoryID
	FilterByPlacedFrom
	FilterByPlacedUntil
)

type OrderFilter struct {
	Kind OrderFilterKind
	Text string
	ID   int64
	Time time.Time
}

func FilterKeyword(s string) OrderFilter      { return OrderFilter{Kind: FilterByKeyword, Text: s} }
func FilterOrderID(id int64) OrderFilter      { return OrderFilter{Kind: FilterByOrderID, ID: id} }
func FilterUsername(s string) OrderFilter     { return OrderFilter{Kind: FilterByUsername, Text: s} }
func FilterProductName(s string) OrderFilter  { return OrderFilter{Kind: FilterByProductName, Text: s} }
func FilterBrandID(id int64) OrderFilter      { return OrderFilter{Kind: FilterByBrandID, ID: id} }
func FilterCategoryID(id int64) OrderFilter   { return OrderFilter{Kind: FilterByCategoryID, ID: id} }
func FilterPlacedFrom(t time.Time) OrderFilter  { return OrderFilter{Kind: FilterByPlacedFrom, Time: t} }
func FilterPlacedUntil(t time.Time) OrderFilter { return OrderFilter{Kind: FilterByPlacedUntil, Time: t} }

type OrderQuery struct {
	Filters  []OrderFilter
	Page     int
	PageSize int
}

// 注文明細とヘッダをjoinした検索結果の1行
type OrderRow struct {
	OrderID      int64     `json:"order_id"`
	PlacedAt     time.Time `json:"placed_at"`
	UserID       int64     `json:"user_id"`
	Username     string    `json:"username"`
	ProductID    int64     `json:"product_id"`
	ProductName  string    `json:"product_name"`
	ProductPrice int64     `json:"product_price"`
	ProductURL   string    `json:"product_url"`
	CategoryID   int64     `json:"category_id"`
	BrandID      int64     `json:"brand_id"`
	Qty          int64     `json:"qty"`
}

// 追記専用。更新・削除の操作は存在しない。
type OrderRepository interface {
	// ヘッダ1件と明細N件を作成して注文IDを返す
	Create(ctx context.Context, header model.Order, lines []model.OrderLine) (int64, error)

	// ヘッダと明細を取得
	FindByID(ctx context.Context, orderID int64) (model.Order, []model.OrderLine, error)

	// 条件検索。既定は新しい注文順。
	Query(ctx context.Context, q OrderQuery) ([]OrderRow, error)

	// 条件に一致する行数
	Count(ctx context.Context, filters []OrderFilter) (int64, error)
}
