package usecase

import (
	"context"
	"errors"
	"time"

	"shop/internal/domain/model"
	repo "shop/internal/repository"
)

// checkoutの直列化衝突をやり直す回数
const checkoutMaxAttempts = 3

type Clock interface {
	Now() time.Time
}

// checkout入力の配送先
type ShippingAddress struct {
	Street   string `json:"street"`
	City     string `json:"city"`
	Province string `json:"province"`
	Country  string `json:"country"`
	ZipCode  string `json:"zip_code"`
}

// checkout入力の支払い。カード番号は受け取らない。
type PaymentMethod struct {
	Type       string `json:"type"`
	Last4      string `json:"last4_digits"`
	ExpiryDate string `json:"expiry_date"`
	Provider   string `json:"provider"`
}

type CheckoutInput struct {
	UserID   int64
	Username string
	Address  ShippingAddress
	Payment  PaymentMethod
}

// 入力の構造検証。不正フィールド名の一覧を返す。
type CheckoutValidator interface {
	Validate(addr ShippingAddress, payment PaymentMethod) []string
}

// CheckoutUsecase はカートを注文に変換するTransactor。
// カートのスナップショット、在庫のset-wise検査と減算、注文の作成、
// スナップショット分のカート削除を1つの不可分単位として実行する。
type CheckoutUsecase struct {
	tx        repo.TransactionManager
	gate      AuthorizationGate
	validator CheckoutValidator
	clock     Clock

	// 不可分単位1回あたりの制限時間
	attemptTimeout time.Duration
}

func NewCheckoutUsecase(
	tx repo.TransactionManager,
	gate AuthorizationGate,
	validator CheckoutValidator,
	clock Clock,
	attemptTimeout time.Duration,
) *CheckoutUsecase {
	return &CheckoutUsecase{
		tx:             tx,
		gate:           gate,
		validator:      validator,
		clock:          clock,
		attemptTimeout: attemptTimeout,
	}
}

// Checkout はカートを注文に変換して注文IDを返す。
// 失敗時（どの種別でも）在庫・カート・注文は呼び出し前と同一。
func (u *CheckoutUsecase) Checkout(ctx context.Context, in CheckoutInput) (int64, error) {
	if in.UserID <= 0 || in.Username == "" {
		return 0, NewHTTPError(401, "unauthorized")
	}

	//構造検証
	if fields := u.validator.Validate(in.Address, in.Payment); len(fields) > 0 {
		return 0, &CheckoutError{Kind: CheckoutValidationError, Fields: fields}
	}

	//支払い認可ゲート。不可分単位の前なので副作用ゼロ。
	if err := u.gate.Authorize(ctx, in.UserID, in.Payment); err != nil {
		return 0, NewCheckoutError(CheckoutCardAuthError)
	}

	//直列化衝突は単位ごと作り直してやり直す
	for attempt := 0; attempt < checkoutMaxAttempts; attempt++ {
		orderID, err := u.runAtomicUnit(ctx, in)
		if err == nil {
			return orderID, nil
		}

		if !isConflict(err) {
			return 0, err
		}

		//呼び出し側がキャンセル済みなら衝突扱いにせずそのまま返す
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
	}

	return 0, NewCheckoutError(CheckoutConflictRetry)
}

// 不可分単位1回分。SERIALIZABLEトランザクションで実行し、
// 途中で失敗したら全効果がロールバックされる。
func (u *CheckoutUsecase) runAtomicUnit(ctx context.Context, in CheckoutInput) (int64, error) {
	actx, cancel := context.WithTimeout(ctx, u.attemptTimeout)
	defer cancel()

	//注文のタイムスタンプはスナップショット開始時点で固定
	placedAt := u.clock.Now()

	var orderID int64

	err := u.tx.WithinSerializableTx(actx, func(r repo.TxRepos) error {
		//1. カート明細×商品カタログのスナップショット。
		//   これが注文明細の唯一のソースになる。
		snapshot, err := r.Carts().SnapshotByUserID(actx, in.UserID)
		if err != nil {
			return err
		}

		//2. 空なら効果なしで失敗
		if len(snapshot) == 0 {
			return NewCheckoutError(CheckoutEmptyCart)
		}

		//3. set-wiseの検査と減算。1行でも不足なら全行そのまま。
		stockLines := make([]repo.StockLine, 0, len(snapshot))
		for _, ln := range snapshot {
			stockLines = append(stockLines, repo.StockLine{ProductID: ln.ProductID, Qty: ln.Qty})
		}
		ok, err := r.Stock().CheckAndDecrement(actx, stockLines)
		if err != nil {
			return err
		}
		if !ok {
			return NewCheckoutError(CheckoutInsufficientStock)
		}

		//4-5. スナップショット値でヘッダと明細を作成
		header := model.Order{
			PlacedAt: placedAt,
			UserID:   in.UserID,
			Username: in.Username,

			ShippingStreet:   in.Address.Street,
			ShippingCity:     in.Address.City,
			ShippingProvince: in.Address.Province,
			ShippingCountry:  in.Address.Country,
			ShippingZipCode:  in.Address.ZipCode,

			PaymentType:       in.Payment.Type,
			PaymentLast4:      in.Payment.Last4,
			PaymentExpiryDate: in.Payment.ExpiryDate,
			PaymentProvider:   in.Payment.Provider,
		}

		lines := make([]model.OrderLine, 0, len(snapshot))
		for _, ln := range snapshot {
			lines = append(lines, model.OrderLine{
				ProductID:    ln.ProductID,
				ProductName:  ln.ProductName,
				ProductPrice: ln.ProductPrice,
				ProductURL:   ln.ProductURL,
				CategoryID:   ln.CategoryID,
				BrandID:      ln.BrandID,
				Qty:          ln.Qty,
			})
		}

		orderID, err = r.Orders().Create(actx, header, lines)
		if err != nil {
			return err
		}

		//6. スナップショットに入っていた行だけ削除。
		//   checkout中に追加された行は落とさない。
		return r.Carts().ClearExact(actx, in.UserID, snapshot)
	})

	if err != nil {
		return 0, err
	}
	return orderID, nil
}

// 単位ごとやり直せば通る可能性のある失敗か
func isConflict(err error) bool {
	return errors.Is(err, repo.ErrConflict) || errors.Is(err, context.DeadlineExceeded)
}
