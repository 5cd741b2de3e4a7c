package repository

import "context"

// 在庫減算の対象1件
type StockLine struct {
	ProductID int64
	Qty       int64
}

type StockRepository interface {
	// バッチ全体を単一の一貫したビューで検査し、全行が足りる
	// ときだけ全行を減算する。1行でも不足なら何も減らさず
	// falseを返す。部分的な減算は起こらない。
	// 行ロックは商品ID昇順で取る。
	CheckAndDecrement(ctx context.Context, lines []StockLine) (bool, error)

	// 在庫の現在値を設定（管理者操作）。
	// 同じ商品に対するCheckAndDecrementとは行ロックで直列化される。
	SetStock(ctx context.Context, productID int64, qty int64) error
}
