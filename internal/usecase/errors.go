package usecase

import (
	"errors"
	"fmt"
	"strings"
)

type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// checkoutのエラー種別
type CheckoutErrorKind string

const (
	// カートが空。呼び出し側はno-op扱いでよい。
	CheckoutEmptyCart CheckoutErrorKind = "EMPTY_CART"

	// バッチの在庫検査に失敗。カート・在庫の表示を更新させる。
	CheckoutInsufficientStock CheckoutErrorKind = "INSUFFICIENT_STOCK"

	// 住所・支払いの形式不正。Fieldsに対象フィールド名が入る。
	CheckoutValidationError CheckoutErrorKind = "VALIDATION_ERROR"

	// ゲートによる却下。不可分単位の前に起きるので副作用ゼロ。
	CheckoutCardAuthError CheckoutErrorKind = "CARD_AUTHENTICATION_ERROR"

	// 直列化衝突のリトライ上限超過。再試行すれば通る可能性がある。
	CheckoutConflictRetry CheckoutErrorKind = "CONFLICT_RETRY"
)

// checkoutが返すエラー。どの種別でも部分的な副作用は残らない。
type CheckoutError struct {
	Kind   CheckoutErrorKind
	Fields []string // VALIDATION_ERRORのときだけ
}

func (e *CheckoutError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s: %s", e.Kind, strings.Join(e.Fields, ", "))
	}
	return string(e.Kind)
}

// 呼び出し側がそのまま再試行してよいか
func (e *CheckoutError) Retryable() bool {
	return e.Kind == CheckoutCardAuthError || e.Kind == CheckoutConflictRetry
}

func NewCheckoutError(kind CheckoutErrorKind) error {
	return &CheckoutError{Kind: kind}
}

func AsCheckoutError(err error) (*CheckoutError, bool) {
	var ce *CheckoutError
	ok := errors.As(err, &ce)
	return ce, ok
}
