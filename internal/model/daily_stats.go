package model

type DailyStat struct {
	BaseModel
	LinkID uint   `gorm:"index"`
	Date   string `gorm:"size:10;index"` // YYYY-MM-DD
	Clicks int64  `gorm:"default:0"`
}
