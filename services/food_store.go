package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dylanreedx/bite/logger"
	"github.com/dylanreedx/bite/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FoodStore is the persistence adapter for foods and servings. All
// writes are conflict-keyed upserts, so concurrent duplicate writers
// collapse into one effective write without any in-process locking.
type FoodStore struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFoodStore(db *gorm.DB, baseLog *logger.Logger) *FoodStore {
	return &FoodStore{db: db, log: baseLog.With("component", "FoodStore")}
}

// GetFoodByID returns nil (not an error) when the id is unknown locally.
func (s *FoodStore) GetFoodByID(ctx context.Context, foodID int64) (*models.FoodItem, error) {
	var rows []models.FoodItem
	err := s.db.WithContext(ctx).
		Where("food_id = ?", foodID).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: get food %d: %w", foodID, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// UpsertFood inserts the food or, when the id already exists, refreshes
// its descriptive fields. Descriptive data can legitimately improve as
// fuller provider records arrive.
func (s *FoodStore) UpsertFood(ctx context.Context, food *models.FoodItem) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "food_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"food_name", "brand_name", "food_type", "food_url", "food_sub_categories",
			}),
		}).
		Create(food).Error
	if err != nil {
		return fmt.Errorf("store: upsert food %d: %w", food.FoodID, err)
	}
	return nil
}

// InsertFoodsIgnore inserts search-discovered foods, silently skipping
// ids that already exist. Used by the backfill path, which must never
// clobber a fuller local record with a thin search hit.
func (s *FoodStore) InsertFoodsIgnore(ctx context.Context, foods []models.FoodItem) error {
	if len(foods) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "food_id"}},
			DoNothing: true,
		}).
		Create(&foods).Error
	if err != nil {
		return fmt.Errorf("store: backfill %d foods: %w", len(foods), err)
	}
	return nil
}

func (s *FoodStore) GetServingsByFoodID(ctx context.Context, foodID int64) ([]models.Serving, error) {
	var servings []models.Serving
	err := s.db.WithContext(ctx).
		Where("food_id = ?", foodID).
		Find(&servings).Error
	if err != nil {
		return nil, fmt.Errorf("store: get servings for food %d: %w", foodID, err)
	}
	return servings, nil
}

// InsertServings bulk-inserts with insert-or-ignore on serving_id.
// Nutrient rows are immutable once recorded; a concurrent duplicate
// writer's rows are simply discarded by the conflict rule.
func (s *FoodStore) InsertServings(ctx context.Context, servings []models.Serving) error {
	if len(servings) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "serving_id"}},
			DoNothing: true,
		}).
		Create(&servings).Error
	if err != nil {
		return fmt.Errorf("store: insert %d servings: %w", len(servings), err)
	}
	return nil
}

// GetServingForFood returns nil when the serving does not exist or
// belongs to a different food.
func (s *FoodStore) GetServingForFood(ctx context.Context, foodID, servingID int64) (*models.Serving, error) {
	var rows []models.Serving
	err := s.db.WithContext(ctx).
		Where("serving_id = ? AND food_id = ?", servingID, foodID).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: get serving %d: %w", servingID, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// FoodSearchRow is a local search hit joined with its default serving's
// calories, when one is flagged.
type FoodSearchRow struct {
	FoodID    int64   `json:"food_id"`
	FoodName  string  `json:"food_name"`
	BrandName *string `json:"brand_name"`
	FoodType  string  `json:"food_type"`
	FoodURL   string  `json:"food_url"`
	Calories  *string `json:"calories"`
}

// SearchByName is a case-insensitive contains search over food names.
func (s *FoodStore) SearchByName(ctx context.Context, query string, limit int) ([]FoodSearchRow, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	var rows []FoodSearchRow
	err := s.db.WithContext(ctx).
		Table("foods").
		Select("foods.food_id, foods.food_name, foods.brand_name, foods.food_type, foods.food_url, servings.calories").
		Joins("LEFT JOIN servings ON servings.food_id = foods.food_id AND servings.is_default = ?", true).
		Where("LOWER(foods.food_name) LIKE ?", pattern).
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: search %q: %w", query, err)
	}
	return rows, nil
}
