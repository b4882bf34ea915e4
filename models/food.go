package models

// A catalog entry mirrored from FatSecret. The primary key is the
// provider-assigned food id, so a row can come from either the search
// backfill or an on-demand detail fetch without renumbering.
type FoodItem struct {
	FoodID    int64   `gorm:"column:food_id;primaryKey" json:"food_id"`
	FoodName  string  `gorm:"not null" json:"food_name"`
	BrandName *string `json:"brand_name"`
	FoodType  string  `gorm:"not null" json:"food_type"`
	FoodURL   string  `json:"food_url"`
	// JSON-encoded list, e.g. `["Cheeseburgers","Burgers"]`
	FoodSubCategories string `json:"food_sub_categories"`
}

func (FoodItem) TableName() string { return "foods" }
