package model

import "time"

// 商品。stockは管理者のset-stockとcheckoutの減算だけで変わる。
type Product struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Price       int64     `gorm:"not null" json:"price"`
	Stock       int64     `gorm:"not null" json:"stock"`
	URL         string    `gorm:"type:varchar(512);column:url" json:"url"`
	CategoryID  int64     `gorm:"not null;index" json:"category_id"`
	BrandID     int64     `gorm:"not null;index" json:"brand_id"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
