package repository

import "context"

// トランザクション内で使う約束
type TxRepos interface {
	Carts() CartRepository
	Stock() StockRepository
	Orders() OrderRepository
	Products() ProductRepository
}

// UsecaseからTxの開始/commit/rollbackを隠す。
// WithinSerializableTxはcheckoutの不可分単位用で、
// 直列化失敗はErrConflictとして返る。
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
	WithinSerializableTx(ctx context.Context, fn func(r TxRepos) error) error
}
