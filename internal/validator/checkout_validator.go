package validator

import (
	"regexp"
	"strings"

	"shop/internal/usecase"
)

var (
	last4Re  = regexp.MustCompile(`^\d{4}$`)
	expiryRe = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
)

type checkoutValidator struct{}

// Usecaseは interface を依存注入
func NewCheckoutValidator() usecase.CheckoutValidator {
	return &checkoutValidator{}
}

// 住所と支払いの構造検証。不正フィールド名の一覧を返す。
func (v *checkoutValidator) Validate(addr usecase.ShippingAddress, payment usecase.PaymentMethod) []string {
	var fields []string

	// 必須チェック
	if strings.TrimSpace(addr.Street) == "" {
		fields = append(fields, "street")
	}
	if strings.TrimSpace(addr.City) == "" {
		fields = append(fields, "city")
	}
	if strings.TrimSpace(addr.Province) == "" {
		fields = append(fields, "province")
	}
	if strings.TrimSpace(addr.Country) == "" {
		fields = append(fields, "country")
	}
	if strings.TrimSpace(addr.ZipCode) == "" {
		fields = append(fields, "zip_code")
	}

	if strings.TrimSpace(payment.Type) == "" {
		fields = append(fields, "type")
	}

	// 下4桁だけを受け取る。カード番号全体は来ない。
	if !last4Re.MatchString(payment.Last4) {
		fields = append(fields, "last4_digits")
	}

	// MM/YY
	if !expiryRe.MatchString(payment.ExpiryDate) {
		fields = append(fields, "expiry_date")
	}

	if strings.TrimSpace(payment.Provider) == "" {
		fields = append(fields, "provider")
	}

	return fields
}
