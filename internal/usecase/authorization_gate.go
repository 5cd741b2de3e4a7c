package usecase

import (
	"context"
	"errors"
	"sync"
)

// 支払い認可を拒否された
var ErrCardAuthDeclined = errors.New("card authentication declined")

// 支払い認可のpass/failゲート。Transactorの前に呼ばれ、
// コア状態への副作用は持たない。
type AuthorizationGate interface {
	Authorize(ctx context.Context, userID int64, payment PaymentMethod) error
}

// 常に通すゲート
type ApproveAllGate struct{}

func NewApproveAllGate() *ApproveAllGate { return &ApproveAllGate{} }

func (g *ApproveAllGate) Authorize(ctx context.Context, userID int64, payment PaymentMethod) error {
	return nil
}

// N回に1回落とすゲート。カード認証失敗のシミュレーション用。
// カウンタはプロセス共有のグローバルではなく、このゲートを
// 注入した所だけが持つ。
type FailEveryNGate struct {
	mu    sync.Mutex
	n     int
	count int
}

func NewFailEveryNGate(n int) *FailEveryNGate {
	return &FailEveryNGate{n: n}
}

func (g *FailEveryNGate) Authorize(ctx context.Context, userID int64, payment PaymentMethod) error {
	if g.n <= 0 {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.count++
	if g.count >= g.n {
		g.count = 0
		return ErrCardAuthDeclined
	}
	return nil
}
