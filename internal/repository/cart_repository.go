package repository

import (
	"context"

	"shop/internal/domain/model"
)

// checkout開始時に取るカートのスナップショット1行。
// 商品情報はスナップショット時点のカタログ値。
type SnapshotLine struct {
	ProductID    int64  `json:"product_id"`
	Qty          int64  `json:"qty"`
	ProductName  string `json:"product_name"`
	ProductPrice int64  `json:"product_price"`
	ProductURL   string `json:"product_url"`
	CategoryID   int64  `json:"category_id"`
	BrandID      int64  `json:"brand_id"`
}

type CartRepository interface {
	// ユーザーのカート明細を一覧
	ListByUserID(ctx context.Context, userID int64) ([]model.CartLine, error)

	// 明細数（20行上限の判定に使う）
	CountByUserID(ctx context.Context, userID int64) (int64, error)

	// 明細を追加、既にあれば数量を置き換える
	Upsert(ctx context.Context, userID int64, productID int64, qty int64) error

	// 明細を削除
	Remove(ctx context.Context, userID int64, productID int64) error

	// スナップショットに入っている明細だけを削除する。
	// クリア時点のカートを読み直してはいけない。checkout中に
	// 追加・変更された行はそのまま残る。
	ClearExact(ctx context.Context, userID int64, snapshot []SnapshotLine) error

	// カート明細と商品カタログをjoinしたスナップショットを取る
	SnapshotByUserID(ctx context.Context, userID int64) ([]SnapshotLine, error)
}
