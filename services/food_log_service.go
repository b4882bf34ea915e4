package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dylanreedx/bite/logger"
	"github.com/dylanreedx/bite/models"

	"gorm.io/gorm"
)

// FoodLogService writes and reads logged consumption events. A log row
// is only ever written after the resolver has materialized both the
// food and its servings locally, so the row's references always hold.
type FoodLogService struct {
	db       *gorm.DB
	store    *FoodStore
	resolver *FoodResolver
	log      *logger.Logger
}

func NewFoodLogService(db *gorm.DB, store *FoodStore, resolver *FoodResolver, baseLog *logger.Logger) *FoodLogService {
	return &FoodLogService{
		db:       db,
		store:    store,
		resolver: resolver,
		log:      baseLog.With("component", "FoodLogService"),
	}
}

// AddLog resolves the food and its servings, verifies the requested
// serving actually belongs to the food, then inserts the log row dated
// today. ErrInvalidReference means the user asked for a serving the
// provider does not have; nothing is written in that case.
func (s *FoodLogService) AddLog(ctx context.Context, userID uint, foodID, servingID int64, quantity float64) (*models.FoodLog, error) {
	if _, err := s.resolver.ResolveFood(ctx, foodID); err != nil {
		if errors.Is(err, ErrNoProviderData) {
			return nil, fmt.Errorf("%w: food %d", ErrInvalidReference, foodID)
		}
		return nil, err
	}
	if _, err := s.resolver.ResolveServings(ctx, foodID); err != nil {
		return nil, err
	}

	serving, err := s.store.GetServingForFood(ctx, foodID, servingID)
	if err != nil {
		return nil, err
	}
	if serving == nil {
		return nil, fmt.Errorf("%w: serving %d for food %d", ErrInvalidReference, servingID, foodID)
	}

	entry := &models.FoodLog{
		UserID:    userID,
		FoodID:    foodID,
		ServingID: servingID,
		Quantity:  quantity,
		Date:      time.Now().Format("2006-01-02"),
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("store: create food log: %w", err)
	}
	return entry, nil
}

// DeleteLog removes one log row, scoped to its owner.
func (s *FoodLogService) DeleteLog(ctx context.Context, logID, userID uint) error {
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", logID, userID).
		Delete(&models.FoodLog{}).Error
	if err != nil {
		return fmt.Errorf("store: delete food log %d: %w", logID, err)
	}
	return nil
}

// FoodLogEntry is a log row joined with its food and serving for the
// daily view.
type FoodLogEntry struct {
	ID                 uint    `json:"id"`
	Quantity           float64 `json:"quantity"`
	FoodName           string  `json:"food_name"`
	ServingDescription string  `json:"serving_description"`
	Calories           *string `json:"calories"`
	Protein            *string `json:"protein"`
	Carbohydrate       *string `json:"carbohydrate"`
	Fat                *string `json:"fat"`
}

// ListToday returns the user's log entries for the current date.
func (s *FoodLogService) ListToday(ctx context.Context, userID uint) ([]FoodLogEntry, error) {
	today := time.Now().Format("2006-01-02")
	var entries []FoodLogEntry
	err := s.db.WithContext(ctx).
		Table("food_logs").
		Select(`food_logs.id, food_logs.quantity, foods.food_name,
			servings.serving_description, servings.calories, servings.protein,
			servings.carbohydrate, servings.fat`).
		Joins("INNER JOIN foods ON foods.food_id = food_logs.food_id").
		Joins("INNER JOIN servings ON servings.serving_id = food_logs.serving_id").
		Where("food_logs.date = ? AND food_logs.user_id = ? AND food_logs.deleted_at IS NULL", today, userID).
		Scan(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("store: list food logs: %w", err)
	}
	return entries, nil
}
