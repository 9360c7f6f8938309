package models

// OrderCounter backs the per-year order number sequence.
type OrderCounter struct {
	Year  int   `gorm:"column:year;primaryKey"`
	Value int64 `gorm:"column:value;not null;default:0"`
}
