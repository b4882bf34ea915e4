package models

import "gorm.io/gorm"

// One logged consumption event. FoodID/ServingID reference foods and
// servings rows; the food log service guarantees both exist before a
// row is written.
type FoodLog struct {
	gorm.Model
	UserID    uint    `gorm:"not null;index" json:"user_id"`
	FoodID    int64   `gorm:"column:food_id;not null" json:"food_id"`
	ServingID int64   `gorm:"column:serving_id;not null" json:"serving_id"`
	Quantity  float64 `gorm:"not null" json:"quantity"`
	// YYYY-MM-DD
	Date string `gorm:"not null;index" json:"date"`
}

func (FoodLog) TableName() string { return "food_logs" }
