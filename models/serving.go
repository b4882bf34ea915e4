package models

// Serving sizes & nutrition details for a food, keyed by the
// provider-assigned serving id. Nutrient columns stay as the provider's
// text values (units differ per field); nil means the provider omitted
// the field, which is not the same as "0".
type Serving struct {
	ServingID              int64   `gorm:"column:serving_id;primaryKey" json:"serving_id"`
	FoodID                 int64   `gorm:"column:food_id;not null;index" json:"food_id"`
	ServingDescription     string  `gorm:"not null" json:"serving_description"`
	ServingURL             string  `json:"serving_url"`
	MetricServingAmount    *string `json:"metric_serving_amount"`
	MetricServingUnit      *string `json:"metric_serving_unit"`
	NumberOfUnits          *string `json:"number_of_units"`
	MeasurementDescription *string `json:"measurement_description"`
	IsDefault              bool    `json:"is_default"`

	Calories           *string `json:"calories"`
	Carbohydrate       *string `json:"carbohydrate"`
	Protein            *string `json:"protein"`
	Fat                *string `json:"fat"`
	SaturatedFat       *string `json:"saturated_fat"`
	PolyunsaturatedFat *string `json:"polyunsaturated_fat"`
	MonounsaturatedFat *string `json:"monounsaturated_fat"`
	TransFat           *string `json:"trans_fat"`
	Cholesterol        *string `json:"cholesterol"`
	Sodium             *string `json:"sodium"`
	Potassium          *string `json:"potassium"`
	Fiber              *string `json:"fiber"`
	Sugar              *string `json:"sugar"`
	AddedSugars        *string `json:"added_sugars"`
	VitaminD           *string `json:"vitamin_d"`
	VitaminA           *string `json:"vitamin_a"`
	VitaminC           *string `json:"vitamin_c"`
	Calcium            *string `json:"calcium"`
	Iron               *string `json:"iron"`
}

func (Serving) TableName() string { return "servings" }
