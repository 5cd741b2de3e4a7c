package repository

import (
	"context"
	"errors"
	"time"

	"shop/internal/domain/model"
	repo "shop/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

// カート明細を一覧取得
func (r *CartGormRepository) ListByUserID(ctx context.Context, userID int64) ([]model.CartLine, error) {
	var lines []model.CartLine

	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("product_id asc").
		Find(&lines).Error; err != nil {
		return []model.CartLine{}, err
	}

	return lines, nil
}

// 明細数
func (r *CartGormRepository) CountByUserID(ctx context.Context, userID int64) (int64, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&model.CartLine{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// 明細を追加、既にあれば数量を置き換える
func (r *CartGormRepository) Upsert(ctx context.Context, userID int64, productID int64, qty int64) error {
	if qty <= 0 {
		return errors.New("invalid quantity")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var line model.CartLine

		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND product_id = ?", userID, productID).
			First(&line).Error

		if err == nil {
			// 既存あり。数量は最後の書き込みが勝つ。
			res := tx.Model(&model.CartLine{}).
				Where("id = ?", line.ID).
				Update("qty", qty)

			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return repo.ErrNotFound
			}
			return nil
		}

		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		//無い場合は新規作成
		now := time.Now()
		newLine := model.CartLine{
			UserID:    userID,
			ProductID: productID,
			Qty:       qty,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := tx.Create(&newLine).Error; err != nil {
			return err
		}

		return nil
	})
}

// 明細を削除
func (r *CartGormRepository) Remove(ctx context.Context, userID int64, productID int64) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&model.CartLine{})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// スナップショットに入っている(product_id, qty)の行だけ削除する。
// クリア時点の再読込はしない。数量まで一致させるので、
// checkout中に変更された行は残る。
func (r *CartGormRepository) ClearExact(ctx context.Context, userID int64, snapshot []repo.SnapshotLine) error {
	for _, ln := range snapshot {
		res := r.db.WithContext(ctx).
			Where("user_id = ? AND product_id = ? AND qty = ?", userID, ln.ProductID, ln.Qty).
			Delete(&model.CartLine{})

		if res.Error != nil {
			return res.Error
		}
	}
	return nil
}

// カートと商品カタログをjoinしてスナップショットを作る
func (r *CartGormRepository) SnapshotByUserID(ctx context.Context, userID int64) ([]repo.SnapshotLine, error) {
	var lines []repo.SnapshotLine

	err := r.db.WithContext(ctx).
		Table("cart_lines AS c").
		Select("c.product_id, c.qty, p.name AS product_name, p.price AS product_price, p.url AS product_url, p.category_id, p.brand_id").
		Joins("JOIN products AS p ON p.id = c.product_id").
		Where("c.user_id = ?", userID).
		Order("c.product_id asc").
		Scan(&lines).Error
	if err != nil {
		return []repo.SnapshotLine{}, err
	}

	return lines, nil
}
