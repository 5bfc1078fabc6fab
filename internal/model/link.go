package model

// Link 短链记录
// Clicks 只允许跳转路径通过原子自增修改，其余字段创建后不再变更
type Link struct {
	BaseModel
	ShortID     string  `gorm:"uniqueIndex;size:32;not null" json:"shortId"`
	OriginalURL string  `gorm:"size:2048;not null" json:"originalUrl"`
	UserID      *string `gorm:"size:64;index" json:"userId,omitempty"` // 匿名创建时为 NULL
	Clicks      int64   `gorm:"default:0" json:"clicks"`
}
