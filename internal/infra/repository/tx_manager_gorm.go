package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	repo "shop/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type txReposGorm struct {
	carts    repo.CartRepository
	stock    repo.StockRepository
	orders   repo.OrderRepository
	products repo.ProductRepository
}

func (r *txReposGorm) Carts() repo.CartRepository       { return r.carts }
func (r *txReposGorm) Stock() repo.StockRepository      { return r.stock }
func (r *txReposGorm) Orders() repo.OrderRepository     { return r.orders }
func (r *txReposGorm) Products() repo.ProductRepository { return r.products }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.run(ctx, fn, nil)
}

// checkoutの不可分単位用。SERIALIZABLEで実行し、
// 直列化失敗・デッドロックはErrConflictに変換して返す。
// 呼び出し側は単位ごと作り直してリトライする。
func (tm *TxManagerGorm) WithinSerializableTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.run(ctx, fn, &sql.TxOptions{Isolation: sql.LevelSerializable})
}

func (tm *TxManagerGorm) run(ctx context.Context, fn func(r repo.TxRepos) error, opts *sql.TxOptions) error {
	exec := func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			carts:    NewCartGormRepository(tx),
			stock:    NewStockGormRepository(tx),
			orders:   NewOrderGormRepository(tx),
			products: NewProductGormRepository(tx),
		}
		return fn(r)
	}

	var err error
	if opts != nil {
		err = tm.db.WithContext(ctx).Transaction(exec, opts)
	} else {
		err = tm.db.WithContext(ctx).Transaction(exec)
	}

	if err != nil && isRetryableConflict(err) {
		return fmt.Errorf("%w: %v", repo.ErrConflict, err)
	}
	return err
}

// SQLSTATE 40001 = serialization_failure, 40P01 = deadlock_detected
func isRetryableConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
