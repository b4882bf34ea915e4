package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dylanreedx/bite/logger"
	"github.com/dylanreedx/bite/models"
)

// NutritionProvider is what the resolver needs from the external
// provider client. Satisfied by *FatSecretService; tests substitute a
// call-counting fake.
type NutritionProvider interface {
	Search(ctx context.Context, query string, maxResults int) ([]SearchHit, error)
	GetFood(ctx context.Context, foodID int64) (*FoodDetails, error)
}

// FoodResolver materializes foods and servings on demand: local store
// first, provider fetch on a miss, idempotent write-back. After a
// successful resolve the row is guaranteed to exist locally.
type FoodResolver struct {
	store    *FoodStore
	provider NutritionProvider
	retry    RetryPolicy
	log      *logger.Logger
}

func NewFoodResolver(store *FoodStore, provider NutritionProvider, baseLog *logger.Logger) *FoodResolver {
	return &FoodResolver{
		store:    store,
		provider: provider,
		retry:    DefaultRetryPolicy,
		log:      baseLog.With("component", "FoodResolver"),
	}
}

// WithRetryPolicy overrides the default provider retry policy.
func (r *FoodResolver) WithRetryPolicy(policy RetryPolicy) *FoodResolver {
	r.retry = policy
	return r
}

// ResolveFood returns the local food row for foodID, fetching and
// persisting it from the provider on a miss. A cache hit makes no
// external call and no refresh; descriptive fields are only refreshed
// when a fetch happens anyway.
func (r *FoodResolver) ResolveFood(ctx context.Context, foodID int64) (*models.FoodItem, error) {
	food, err := r.store.GetFoodByID(ctx, foodID)
	if err != nil {
		return nil, err
	}
	if food != nil {
		return food, nil
	}

	details, err := r.fetchDetails(ctx, foodID)
	if err != nil {
		return nil, fmt.Errorf("resolve food %d: %w", foodID, err)
	}

	food = foodFromDetails(foodID, details)
	if food == nil {
		return nil, fmt.Errorf("resolve food %d: %w", foodID, ErrNoProviderData)
	}
	if err := r.store.UpsertFood(ctx, food); err != nil {
		return nil, err
	}
	return food, nil
}

// ResolveServings returns all locally persisted servings for foodID,
// fetching them from the provider when none exist yet. Any serving row
// at all counts as fully cached; this path never does incremental
// backfill. A food the provider knows no servings for resolves to an
// empty slice, which is a valid terminal state.
func (r *FoodResolver) ResolveServings(ctx context.Context, foodID int64) ([]models.Serving, error) {
	food, err := r.store.GetFoodByID(ctx, foodID)
	if err != nil {
		return nil, err
	}
	if food == nil {
		if _, err := r.ResolveFood(ctx, foodID); err != nil {
			if errors.Is(err, ErrNoProviderData) {
				// No parent food means no servings are possible.
				return []models.Serving{}, nil
			}
			return nil, err
		}
	}

	servings, err := r.store.GetServingsByFoodID(ctx, foodID)
	if err != nil {
		return nil, err
	}
	if len(servings) > 0 {
		return servings, nil
	}

	details, err := r.fetchDetails(ctx, foodID)
	if err != nil {
		return nil, fmt.Errorf("resolve servings for food %d: %w", foodID, err)
	}
	if len(details.Servings) == 0 {
		r.log.Warn("provider returned no servings", "food_id", foodID)
		return []models.Serving{}, nil
	}

	// The fetch already happened, so refresh the parent's descriptive
	// fields from the same response.
	if refreshed := foodFromDetails(foodID, details); refreshed != nil {
		if err := r.store.UpsertFood(ctx, refreshed); err != nil {
			return nil, err
		}
	}

	if err := r.store.InsertServings(ctx, servingsFromDetails(foodID, details, r.log)); err != nil {
		return nil, err
	}

	// Re-read so every concurrent resolver converges on the same
	// persisted set, whichever writer won.
	return r.store.GetServingsByFoodID(ctx, foodID)
}

func (r *FoodResolver) fetchDetails(ctx context.Context, foodID int64) (*FoodDetails, error) {
	return ExecuteWithRetry(ctx, r.retry, func() (*FoodDetails, error) {
		return r.provider.GetFood(ctx, foodID)
	})
}

// foodFromDetails maps a provider detail payload onto a food row.
// Returns nil when the payload carries no name, the one field a food
// row cannot exist without.
func foodFromDetails(foodID int64, details *FoodDetails) *models.FoodItem {
	if details == nil || details.Name == "" {
		return nil
	}
	food := &models.FoodItem{
		FoodID:            foodID,
		FoodName:          details.Name,
		FoodType:          details.Type,
		FoodURL:           details.URL,
		FoodSubCategories: "[]",
	}
	if food.FoodType == "" {
		food.FoodType = "generic"
	}
	if details.BrandName != "" {
		brand := details.BrandName
		food.BrandName = &brand
	}
	return food
}

func servingsFromDetails(foodID int64, details *FoodDetails, log *logger.Logger) []models.Serving {
	out := make([]models.Serving, 0, len(details.Servings))
	for _, s := range details.Servings {
		if s.ID == 0 {
			log.Warn("skipping serving without id", "food_id", foodID)
			continue
		}
		out = append(out, models.Serving{
			ServingID:              int64(s.ID),
			FoodID:                 foodID,
			ServingDescription:     s.Description,
			ServingURL:             s.URL,
			MetricServingAmount:    s.MetricServingAmount.stringPtr(),
			MetricServingUnit:      s.MetricServingUnit.stringPtr(),
			NumberOfUnits:          s.NumberOfUnits.stringPtr(),
			MeasurementDescription: s.MeasurementDescription.stringPtr(),
			IsDefault:              bool(s.IsDefault),
			Calories:               s.Calories.stringPtr(),
			Carbohydrate:           s.Carbohydrate.stringPtr(),
			Protein:                s.Protein.stringPtr(),
			Fat:                    s.Fat.stringPtr(),
			SaturatedFat:           s.SaturatedFat.stringPtr(),
			PolyunsaturatedFat:     s.PolyunsaturatedFat.stringPtr(),
			MonounsaturatedFat:     s.MonounsaturatedFat.stringPtr(),
			TransFat:               s.TransFat.stringPtr(),
			Cholesterol:            s.Cholesterol.stringPtr(),
			Sodium:                 s.Sodium.stringPtr(),
			Potassium:              s.Potassium.stringPtr(),
			Fiber:                  s.Fiber.stringPtr(),
			Sugar:                  s.Sugar.stringPtr(),
			AddedSugars:            s.AddedSugars.stringPtr(),
			VitaminD:               s.VitaminD.stringPtr(),
			VitaminA:               s.VitaminA.stringPtr(),
			VitaminC:               s.VitaminC.stringPtr(),
			Calcium:                s.Calcium.stringPtr(),
			Iron:                   s.Iron.stringPtr(),
		})
	}
	return out
}
