package usecase_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"shop/internal/domain/model"
	repo "shop/internal/repository"
	"shop/internal/usecase"
	"shop/internal/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =====================
// Mocks（衝突回避の命名）
// =====================

type CoCartRepoMock struct{ mock.Mock }

func (m *CoCartRepoMock) ListByUserID(ctx context.Context, userID int64) ([]model.CartLine, error) {
	panic("not used in CheckoutUsecase tests")
}

func (m *CoCartRepoMock) CountByUserID(ctx context.Context, userID int64) (int64, error) {
	panic("not used in CheckoutUsecase tests")
}

func (m *CoCartRepoMock) Upsert(ctx context.Context, userID int64, productID int64, qty int64) error {
	panic("not used in CheckoutUsecase tests")
}

func (m *CoCartRepoMock) Remove(ctx context.Context, userID int64, productID int64) error {
	panic("not used in CheckoutUsecase tests")
}

func (m *CoCartRepoMock) ClearExact(ctx context.Context, userID int64, snapshot []repo.SnapshotLine) error {
	args := m.Called(ctx, userID, snapshot)
	return args.Error(0)
}

func (m *CoCartRepoMock) SnapshotByUserID(ctx context.Context, userID int64) ([]repo.SnapshotLine, error) {
	args := m.Called(ctx, userID)
	lines, _ := args.Get(0).([]repo.SnapshotLine)
	return lines, args.Error(1)
}

type CoStockRepoMock struct{ mock.Mock }

func (m *CoStockRepoMock) CheckAndDecrement(ctx context.Context, lines []repo.StockLine) (bool, error) {
	args := m.Called(ctx, lines)
	return args.Bool(0), args.Error(1)
}

func (m *CoStockRepoMock) SetStock(ctx context.Context, productID int64, qty int64) error {
	panic("not used in CheckoutUsecase tests")
}

type CoOrderRepoMock struct{ mock.Mock }

func (m *CoOrderRepoMock) Create(ctx context.Context, header model.Order, lines []model.OrderLine) (int64, error) {
	args := m.Called(ctx, header, lines)
	return args.Get(0).(int64), args.Error(1)
}

func (m *CoOrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, []model.OrderLine, error) {
	panic("not used in CheckoutUsecase tests")
}

func (m *CoOrderRepoMock) Query(ctx context.Context, q repo.OrderQuery) ([]repo.OrderRow, error) {
	panic("not used in CheckoutUsecase tests")
}

func (m *CoOrderRepoMock) Count(ctx context.Context, filters []repo.OrderFilter) (int64, error) {
	panic("not used in CheckoutUsecase tests")
}

type CoProductRepoMock struct{ mock.Mock }

func (m *CoProductRepoMock) FindByID(ctx context.Context, productID int64) (model.Product, error) {
	panic("not used in CheckoutUsecase tests")
}

// トランザクション境界のスタブ。conflictsの回数だけ
// ErrConflictを返してから中身を実行する。
type coTxRepos struct {
	carts    *CoCartRepoMock
	stock    *CoStockRepoMock
	orders   *CoOrderRepoMock
	products *CoProductRepoMock
}

func (r *coTxRepos) Carts() repo.CartRepository       { return r.carts }
func (r *coTxRepos) Stock() repo.StockRepository      { return r.stock }
func (r *coTxRepos) Orders() repo.OrderRepository     { return r.orders }
func (r *coTxRepos) Products() repo.ProductRepository { return r.products }

type coTxManagerStub struct {
	repos     *coTxRepos
	conflicts int
	calls     int

	//conflictsの回数だけ返すエラー。nilならErrConflictのラップ。
	conflictErr error

	//各呼び出しの先頭で実行するフック
	onCall func()
}

func (m *coTxManagerStub) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return fn(m.repos)
}

func (m *coTxManagerStub) WithinSerializableTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	m.calls++
	if m.onCall != nil {
		m.onCall()
	}
	if m.calls <= m.conflicts {
		if m.conflictErr != nil {
			return m.conflictErr
		}
		return fmt.Errorf("serialization failure: %w", repo.ErrConflict)
	}
	return fn(m.repos)
}

// 制限時間まで中身を実行せずブロックするトランザクション境界。
// 1回も書き込みが起きないままタイムアウトする状況を再現する。
type coBlockingTxManager struct{ calls int }

func (m *coBlockingTxManager) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return m.WithinSerializableTx(ctx, fn)
}

func (m *coBlockingTxManager) WithinSerializableTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	m.calls++
	<-ctx.Done()
	return ctx.Err()
}

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

type approveGate struct{}

func (g *approveGate) Authorize(ctx context.Context, userID int64, payment usecase.PaymentMethod) error {
	return nil
}

type declineGate struct{}

func (g *declineGate) Authorize(ctx context.Context, userID int64, payment usecase.PaymentMethod) error {
	return usecase.ErrCardAuthDeclined
}

// =====================
// Fixtures
// =====================

var testPlacedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func validAddress() usecase.ShippingAddress {
	return usecase.ShippingAddress{
		Street:   "1 Main St",
		City:     "Springfield",
		Province: "ON",
		Country:  "CA",
		ZipCode:  "K1A 0A1",
	}
}

func validPayment() usecase.PaymentMethod {
	return usecase.PaymentMethod{
		Type:       "credit",
		Last4:      "4242",
		ExpiryDate: "12/28",
		Provider:   "visa",
	}
}

func newCheckoutFixture(conflicts int, gate usecase.AuthorizationGate) (*usecase.CheckoutUsecase, *coTxManagerStub) {
	tm := &coTxManagerStub{
		repos: &coTxRepos{
			carts:    new(CoCartRepoMock),
			stock:    new(CoStockRepoMock),
			orders:   new(CoOrderRepoMock),
			products: new(CoProductRepoMock),
		},
		conflicts: conflicts,
	}
	uc := usecase.NewCheckoutUsecase(tm, gate, validator.NewCheckoutValidator(), &fixedClock{t: testPlacedAt}, time.Second)
	return uc, tm
}

// =====================
// Tests
// =====================

func TestCheckout_Success(t *testing.T) {
	ctx := context.Background()
	uc, tm := newCheckoutFixture(0, &approveGate{})

	snapshot := []repo.SnapshotLine{
		{ProductID: 10, Qty: 2, ProductName: "Coffee Beans", ProductPrice: 1500, ProductURL: "/p/10", CategoryID: 3, BrandID: 4},
	}
	tm.repos.carts.On("SnapshotByUserID", mock.Anything, int64(1)).Return(snapshot, nil)
	tm.repos.stock.On("CheckAndDecrement", mock.Anything, []repo.StockLine{{ProductID: 10, Qty: 2}}).Return(true, nil)

	var createdHeader model.Order
	var createdLines []model.OrderLine
	tm.repos.orders.On("Create", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			createdHeader = args.Get(1).(model.Order)
			createdLines = args.Get(2).([]model.OrderLine)
		}).
		Return(int64(7), nil)
	tm.repos.carts.On("ClearExact", mock.Anything, int64(1), snapshot).Return(nil)

	orderID, err := uc.Checkout(ctx, usecase.CheckoutInput{
		UserID:   1,
		Username: "alice",
		Address:  validAddress(),
		Payment:  validPayment(),
	})

	require.NoError(t, err)
	assert.Equal(t, int64(7), orderID)

	//ヘッダはスナップショット開始時点のタイムスタンプと入力の写しを持つ
	assert.Equal(t, testPlacedAt, createdHeader.PlacedAt)
	assert.Equal(t, "alice", createdHeader.Username)
	assert.Equal(t, "4242", createdHeader.PaymentLast4)
	assert.Equal(t, "Springfield", createdHeader.ShippingCity)

	//明細はスナップショットの商品情報と数量をそのまま持つ
	require.Len(t, createdLines, 1)
	assert.Equal(t, int64(10), createdLines[0].ProductID)
	assert.Equal(t, int64(1500), createdLines[0].ProductPrice)
	assert.Equal(t, int64(2), createdLines[0].Qty)

	tm.repos.carts.AssertExpectations(t)
	tm.repos.stock.AssertExpectations(t)
	tm.repos.orders.AssertExpectations(t)
}

func TestCheckout_EmptyCart(t *testing.T) {
	ctx := context.Background()
	uc, tm := newCheckoutFixture(0, &approveGate{})

	tm.repos.carts.On("SnapshotByUserID", mock.Anything, int64(1)).Return([]repo.SnapshotLine{}, nil)

	_, err := uc.Checkout(ctx, usecase.CheckoutInput{
		UserID:   1,
		Username: "alice",
		Address:  validAddress(),
		Payment:  validPayment(),
	})

	ce, ok := usecase.AsCheckoutError(err)
	require.True(t, ok)
	assert.Equal(t, usecase.CheckoutEmptyCart, ce.Kind)

	//在庫にも注文にも触らない
	tm.repos.stock.AssertNotCalled(t, "CheckAndDecrement", mock.Anything, mock.Anything)
	tm.repos.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckout_InsufficientStock(t *testing.T) {
	ctx := context.Background()
	uc, tm := newCheckoutFixture(0, &approveGate{})

	snapshot := []repo.SnapshotLine{{ProductID: 10, Qty: 6, ProductName: "Coffee Beans", ProductPrice: 1500}}
	tm.repos.carts.On("SnapshotByUserID", mock.Anything, int64(1)).Return(snapshot, nil)
	tm.repos.stock.On("CheckAndDecrement", mock.Anything, mock.Anything).Return(false, nil)

	_, err := uc.Checkout(ctx, usecase.CheckoutInput{
		UserID:   1,
		Username: "alice",
		Address:  validAddress(),
		Payment:  validPayment(),
	})

	ce, ok := usecase.AsCheckoutError(err)
	require.True(t, ok)
	assert.Equal(t, usecase.CheckoutInsufficientStock, ce.Kind)

	tm.repos.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	tm.repos.carts.AssertNotCalled(t, "ClearExact", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckout_ValidationError(t *testing.T) {
	ctx := context.Background()
	uc, tm := newCheckoutFixture(0, &approveGate{})

	payment := validPayment()
	payment.Last4 = "42424242" //下4桁ではない

	addr := validAddress()
	addr.City = ""

	_, err := uc.Checkout(ctx, usecase.CheckoutInput{
		UserID:   1,
		Username: "alice",
		Address:  addr,
		Payment:  payment,
	})

	ce, ok := usecase.AsCheckoutError(err)
	require.True(t, ok)
	assert.Equal(t, usecase.CheckoutValidationError, ce.Kind)
	assert.Contains(t, ce.Fields, "city")
	assert.Contains(t, ce.Fields, "last4_digits")

	//トランザクションは始まってすらいない
	assert.Equal(t, 0, tm.calls)
}

func TestCheckout_GateDeclined(t *testing.T) {
	ctx := context.Background()
	uc, tm := newCheckoutFixture(0, &declineGate{})

	_, err := uc.Checkout(ctx, usecase.CheckoutInput{
		UserID:   1,
		Username: "alice",
		Address:  validAddress(),
		Payment:  validPayment(),
	})

	ce, ok := usecase.AsCheckoutError(err)
	require.True(t, ok)
	assert.Equal(t, usecase.CheckoutCardAuthError, ce.Kind)
	assert.True(t, ce.Retryable())

	//ゲート却下はコア状態への副作用ゼロ
	assert.Equal(t, 0, tm.calls)
}

func TestCheckout_ConflictRetriedThenSucceeds(t *testing.T) {
	ctx := context.Background()
	uc, tm := newCheckoutFixture(2, &approveGate{})

	snapshot := []repo.SnapshotLine{{ProductID: 10, Qty: 1, ProductName: "Coffee Beans", ProductPrice: 1500}}
	tm.repos.carts.On("SnapshotByUserID", mock.Anything, int64(1)).Return(snapshot, nil)
	tm.repos.stock.On("CheckAndDecrement", mock.Anything, mock.Anything).Return(true, nil)
	tm.repos.orders.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(int64(9), nil)
	tm.repos.carts.On("ClearExact", mock.Anything, int64(1), snapshot).Return(nil)

	orderID, err := uc.Checkout(ctx, usecase.CheckoutInput{
		UserID:   1,
		Username: "alice",
		Address:  validAddress(),
		Payment:  validPayment(),
	})

	require.NoError(t, err)
	assert.Equal(t, int64(9), orderID)
	assert.Equal(t, 3, tm.calls)
}

func TestCheckout_ConflictRetriesExhausted(t *testing.T) {
	ctx := context.Background()
	uc, tm := newCheckoutFixture(10, &approveGate{})

	_, err := uc.Checkout(ctx, usecase.CheckoutInput{
		UserID:   1,
		Username: "alice",
		Address:  validAddress(),
		Payment:  validPayment(),
	})

	ce, ok := usecase.AsCheckoutError(err)
	require.True(t, ok)
	assert.Equal(t, usecase.CheckoutConflictRetry, ce.Kind)
	assert.True(t, ce.Retryable())
	assert.Equal(t, 3, tm.calls)
}

// 制限時間超過は衝突と同じ扱いで、単位ごとやり直される。
func TestCheckout_TimeoutRetriedThenSucceeds(t *testing.T) {
	ctx := context.Background()
	uc, tm := newCheckoutFixture(1, &approveGate{})
	tm.conflictErr = context.DeadlineExceeded

	snapshot := []repo.SnapshotLine{{ProductID: 10, Qty: 1, ProductName: "Coffee Beans", ProductPrice: 1500}}
	tm.repos.carts.On("SnapshotByUserID", mock.Anything, int64(1)).Return(snapshot, nil)
	tm.repos.stock.On("CheckAndDecrement", mock.Anything, mock.Anything).Return(true, nil)
	tm.repos.orders.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(int64(11), nil)
	tm.repos.carts.On("ClearExact", mock.Anything, int64(1), snapshot).Return(nil)

	orderID, err := uc.Checkout(ctx, usecase.CheckoutInput{
		UserID:   1,
		Username: "alice",
		Address:  validAddress(),
		Payment:  validPayment(),
	})

	require.NoError(t, err)
	assert.Equal(t, int64(11), orderID)
	assert.Equal(t, 2, tm.calls)
}

// 毎回タイムアウトするとCONFLICT_RETRYで打ち切られ、
// 在庫にも注文にも一切触らない。
func TestCheckout_TimeoutRetriesExhausted(t *testing.T) {
	ctx := context.Background()
	uc, tm := newCheckoutFixture(10, &approveGate{})
	tm.conflictErr = context.DeadlineExceeded

	_, err := uc.Checkout(ctx, usecase.CheckoutInput{
		UserID:   1,
		Username: "alice",
		Address:  validAddress(),
		Payment:  validPayment(),
	})

	ce, ok := usecase.AsCheckoutError(err)
	require.True(t, ok)
	assert.Equal(t, usecase.CheckoutConflictRetry, ce.Kind)
	assert.True(t, ce.Retryable())
	assert.Equal(t, 3, tm.calls)

	tm.repos.stock.AssertNotCalled(t, "CheckAndDecrement", mock.Anything, mock.Anything)
	tm.repos.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	tm.repos.carts.AssertNotCalled(t, "ClearExact", mock.Anything, mock.Anything, mock.Anything)
}

// 不可分単位が制限時間内に終わらない場合も部分書き込みなしで
// 中断され、リトライ可能エラーになる。
func TestCheckout_AttemptTimeoutAborts(t *testing.T) {
	ctx := context.Background()
	tm := &coBlockingTxManager{}
	uc := usecase.NewCheckoutUsecase(tm, &approveGate{}, validator.NewCheckoutValidator(), &fixedClock{t: testPlacedAt}, 10*time.Millisecond)

	_, err := uc.Checkout(ctx, usecase.CheckoutInput{
		UserID:   1,
		Username: "alice",
		Address:  validAddress(),
		Payment:  validPayment(),
	})

	ce, ok := usecase.AsCheckoutError(err)
	require.True(t, ok)
	assert.Equal(t, usecase.CheckoutConflictRetry, ce.Kind)
	assert.True(t, ce.Retryable())
	assert.Equal(t, 3, tm.calls)
}

// 呼び出し側がキャンセルしたら、リトライせずキャンセルを返す。
func TestCheckout_CallerCanceledMidRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	uc, tm := newCheckoutFixture(10, &approveGate{})
	tm.onCall = cancel

	_, err := uc.Checkout(ctx, usecase.CheckoutInput{
		UserID:   1,
		Username: "alice",
		Address:  validAddress(),
		Payment:  validPayment(),
	})

	assert.ErrorIs(t, err, context.Canceled)
	_, isCheckoutErr := usecase.AsCheckoutError(err)
	assert.False(t, isCheckoutErr)
	assert.Equal(t, 1, tm.calls)
}

func TestCheckout_Unauthorized(t *testing.T) {
	ctx := context.Background()
	uc, _ := newCheckoutFixture(0, &approveGate{})

	_, err := uc.Checkout(ctx, usecase.CheckoutInput{
		UserID:   0,
		Username: "",
		Address:  validAddress(),
		Payment:  validPayment(),
	})

	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, 401, he.Status)
}
