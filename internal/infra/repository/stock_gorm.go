package repository

import (
	"context"
	"errors"
	"sort"

	"shop/internal/domain/model"
	repo "shop/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StockGormRepository struct {
	db *gorm.DB
}

func NewStockGormRepository(db *gorm.DB) *StockGormRepository {
	return &StockGormRepository{db: db}
}

// 同じ商品が複数行に出ても合算して1回で検査・減算するための集計
func sumQtyByProduct(lines []repo.StockLine) (map[int64]int64, error) {
	need := make(map[int64]int64, len(lines))
	for _, ln := range lines {
		if ln.Qty <= 0 {
			return nil, errors.New("invalid quantity")
		}
		need[ln.ProductID] += ln.Qty
	}
	return need, nil
}

// バッチ全体を検査して、全行が足りるときだけ全行を減算する。
// 行ロックは商品ID昇順で取る。checkout同士が商品を共有しても
// デッドロックしないための固定順。
func (r *StockGormRepository) CheckAndDecrement(ctx context.Context, lines []repo.StockLine) (bool, error) {
	if len(lines) == 0 {
		return true, nil
	}

	need, err := sumQtyByProduct(lines)
	if err != nil {
		return false, err
	}

	ids := make([]int64, 0, len(need))
	for id := range need {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	// 対象行をID昇順でロック
	var products []model.Product
	err = r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id asc").
		Find(&products).Error
	if err != nil {
		return false, err
	}

	stockByID := make(map[int64]int64, len(products))
	for _, p := range products {
		stockByID[p.ID] = p.Stock
	}

	// 合算した必要量で全商品を検査。商品が消えていた場合も不足扱い。
	for _, id := range ids {
		stock, ok := stockByID[id]
		if !ok || stock < need[id] {
			return false, nil
		}
	}

	// 全商品通ったのでまとめて減算
	for _, id := range ids {
		res := r.db.WithContext(ctx).
			Model(&model.Product{}).
			Where("id = ? AND stock >= ?", id, need[id]).
			Update("stock", gorm.Expr("stock - ?", need[id]))

		if res.Error != nil {
			return false, res.Error
		}
		if res.RowsAffected == 0 {
			// ロック済みなのでここには来ないはずだが、
			// 来たら減算は適用しない判定にしてトランザクション
			// ごと失敗させる
			return false, errors.New("stock changed under lock")
		}
	}

	return true, nil
}

// 在庫の現在値を設定。行ロックを取るUPDATEなので、
// 同じ商品のCheckAndDecrementとは自然に直列化される。
func (r *StockGormRepository) SetStock(ctx context.Context, productID int64, qty int64) error {
	if qty < 0 {
		return errors.New("negative stock")
	}

	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", productID).
		Update("stock", qty)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
