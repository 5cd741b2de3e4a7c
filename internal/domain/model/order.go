package model

import "time"

// 注文ヘッダ。作成後は不変（update/deleteは存在しない）。
// 配送先と支払いは購入時点のスナップショットを保存する。
// カード番号そのものは持たず下4桁だけ。
type Order struct {
	ID       int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PlacedAt time.Time `gorm:"not null;index" json:"placed_at"`
	UserID   int64     `gorm:"not null;index" json:"user_id"`
	Username string    `gorm:"type:varchar(255);not null;index" json:"username"`

	ShippingStreet   string `gorm:"type:varchar(255);not null" json:"shipping_street"`
	ShippingCity     string `gorm:"type:varchar(255);not null" json:"shipping_city"`
	ShippingProvince string `gorm:"type:varchar(255);not null" json:"shipping_province"`
	ShippingCountry  string `gorm:"type:varchar(255);not null" json:"shipping_country"`
	ShippingZipCode  string `gorm:"type:varchar(20);not null" json:"shipping_zip_code"`

	PaymentType       string `gorm:"type:varchar(50);not null" json:"payment_type"`
	PaymentLast4      string `gorm:"type:varchar(4);not null;column:payment_last4_digits" json:"payment_last4_digits"`
	PaymentExpiryDate string `gorm:"type:varchar(10);not null" json:"payment_expiry_date"`
	PaymentProvider   string `gorm:"type:varchar(50);not null" json:"payment_provider"`
}
