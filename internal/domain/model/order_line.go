package model

// 注文明細。商品情報は購入時点のコピーなので、
// 後からカタログを編集しても過去の注文は変わらない。
type OrderLine struct {
	ID           int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID      int64  `gorm:"not null;index" json:"order_id"`
	ProductID    int64  `gorm:"not null;index" json:"product_id"`
	ProductName  string `gorm:"type:varchar(255);not null" json:"product_name"`
	ProductPrice int64  `gorm:"not null" json:"product_price"`
	ProductURL   string `gorm:"type:varchar(512);column:product_url" json:"product_url"`
	CategoryID   int64  `gorm:"not null" json:"category_id"`
	BrandID      int64  `gorm:"not null" json:"brand_id"`
	Qty          int64  `gorm:"not null" json:"qty"`
}
