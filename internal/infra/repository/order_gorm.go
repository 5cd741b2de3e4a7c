package repository

import (
	"context"
	"errors"
	"strings"

	"shop/internal/domain/model"
	repo "shop/internal/repository"

	"gorm.io/gorm"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

// ヘッダ1件＋明細一括作成
func (r *OrderGormRepository) Create(ctx context.Context, header model.Order, lines []model.OrderLine) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&header).Error; err != nil {
		return 0, err
	}

	if len(lines) > 0 {
		for i := range lines {
			lines[i].OrderID = header.ID
		}
		if err := r.db.WithContext(ctx).Create(&lines).Error; err != nil {
			return 0, err
		}
	}

	return header.ID, nil
}

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID int64) (model.Order, []model.OrderLine, error) {
	var o model.Order
	err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, nil, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, nil, err
	}

	var lines []model.OrderLine
	err = r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id asc").
		Find(&lines).Error
	if err != nil {
		return model.Order{}, nil, err
	}

	return o, lines, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// キーワード中の%や_をリテラル一致にする
func escapeLikePattern(s string) string {
	return likeEscaper.Replace(s)
}

// フィルタのバリアントをWHERE句に変換する。
// 値は全てプレースホルダ経由で渡す。
func orderFilterClause(f repo.OrderFilter) (string, []any) {
	switch f.Kind {
	case repo.FilterByKeyword:
		kw := "%" + escapeLikePattern(f.Text) + "%"
		return "(o.username ILIKE ? OR l.product_name ILIKE ?)", []any{kw, kw}
	case repo.FilterByOrderID:
		return "o.id = ?", []any{f.ID}
	case repo.FilterByUsername:
		return "LOWER(o.username) = LOWER(?)", []any{f.Text}
	case repo.FilterByProductName:
		return "LOWER(l.product_name) = LOWER(?)", []any{f.Text}
	case repo.FilterByBrandID:
		return "l.brand_id = ?", []any{f.ID}
	case repo.FilterByCategoryID:
		return "l.category_id = ?", []any{f.ID}
	case repo.FilterByPlacedFrom:
		return "o.placed_at >= ?", []any{f.Time}
	case repo.FilterByPlacedUntil:
		return "o.placed_at <= ?", []any{f.Time}
	}
	return "", nil
}

func (r *OrderGormRepository) joined(ctx context.Context, filters []repo.OrderFilter) *gorm.DB {
	q := r.db.WithContext(ctx).
		Table("orders AS o").
		Joins("JOIN order_lines AS l ON l.order_id = o.id")

	for _, f := range filters {
		cond, args := orderFilterClause(f)
		if cond == "" {
			continue
		}
		q = q.Where(cond, args...)
	}

	return q
}

// 条件検索。新しい注文順。
func (r *OrderGormRepository) Query(ctx context.Context, q repo.OrderQuery) ([]repo.OrderRow, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PageSize <= 0 || q.PageSize > 100 {
		q.PageSize = 20
	}

	var rows []repo.OrderRow
	err := r.joined(ctx, q.Filters).
		Select("o.id AS order_id, o.placed_at, o.user_id, o.username, l.product_id, l.product_name, l.product_price, l.product_url, l.category_id, l.brand_id, l.qty").
		Order("o.placed_at desc").
		Limit(q.PageSize).
		Offset((q.Page - 1) * q.PageSize).
		Scan(&rows).Error
	if err != nil {
		return []repo.OrderRow{}, err
	}

	return rows, nil
}

func (r *OrderGormRepository) Count(ctx context.Context, filters []repo.OrderFilter) (int64, error) {
	var total int64
	if err := r.joined(ctx, filters).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
