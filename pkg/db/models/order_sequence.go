package models

import "time"

// OrderSequence holds the per-day counter behind ORD-YYMMDD-NNNN order numbers.
type OrderSequence struct {
	Day       string    `gorm:"column:day;type:text;primaryKey"`
	Value     int64     `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
