package services

import (
	"context"
	"sync"
	"testing"

	"github.com/dylanreedx/bite/logger"
	"github.com/dylanreedx/bite/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func oatmealDetails() *FoodDetails {
	return &FoodDetails{
		ID:   42,
		Name: "Oatmeal",
		Type: "Generic",
		URL:  "https://example.com/oatmeal",
		Servings: []ProviderServing{
			{ID: 1001, Description: "1 cup cooked", Calories: fs("166"), Protein: fs("5.94"), IsDefault: true},
			{ID: 1002, Description: "100 g", Calories: fs("71")},
			{ID: 1003, Description: "1 oz dry", Calories: fs("108"), Sodium: fs("1")},
		},
	}
}

func TestResolveFoodFetchesOnceThenHitsCache(t *testing.T) {
	store := newTestStore(t)
	provider := &fakeProvider{details: map[int64]*FoodDetails{42: oatmealDetails()}}
	resolver := NewFoodResolver(store, provider, logger.NewNop()).WithRetryPolicy(quickRetry)

	first, err := resolver.ResolveFood(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "Oatmeal", first.FoodName)

	second, err := resolver.ResolveFood(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, first.FoodID, second.FoodID)

	assert.Equal(t, 1, provider.getFoodCount())

	persisted, err := store.GetFoodByID(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.Equal(t, "Oatmeal", persisted.FoodName)
}

func TestResolveFoodDefaultsMissingType(t *testing.T) {
	store := newTestStore(t)
	provider := &fakeProvider{details: map[int64]*FoodDetails{7: {ID: 7, Name: "Mystery Stew"}}}
	resolver := NewFoodResolver(store, provider, logger.NewNop()).WithRetryPolicy(quickRetry)

	food, err := resolver.ResolveFood(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "generic", food.FoodType)
	assert.Equal(t, "[]", food.FoodSubCategories)
	assert.Nil(t, food.BrandName)
}

func TestResolveFoodNoUsableData(t *testing.T) {
	store := newTestStore(t)
	provider := &fakeProvider{details: map[int64]*FoodDetails{9: {ID: 9}}}
	resolver := NewFoodResolver(store, provider, logger.NewNop()).WithRetryPolicy(quickRetry)

	_, err := resolver.ResolveFood(context.Background(), 9)
	require.ErrorIs(t, err, ErrNoProviderData)

	// Nothing was persisted for the failed resolve.
	food, err := store.GetFoodByID(context.Background(), 9)
	require.NoError(t, err)
	assert.Nil(t, food)
}

func TestResolveFoodRateLimitExhaustion(t *testing.T) {
	store := newTestStore(t)
	provider := &fakeProvider{getErr: &ProviderError{StatusCode: 429, Message: "rate limited"}}
	resolver := NewFoodResolver(store, provider, logger.NewNop()).WithRetryPolicy(quickRetry)

	_, err := resolver.ResolveFood(context.Background(), 42)
	require.ErrorIs(t, err, ErrRateLimitExhausted)
	assert.Equal(t, quickRetry.MaxAttempts, provider.getFoodCount())
}

func TestResolveServingsCachedMakesNoExternalCall(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.UpsertFood(ctx, &models.FoodItem{FoodID: 42, FoodName: "Oatmeal", FoodType: "Generic"}))
	require.NoError(t, store.InsertServings(ctx, []models.Serving{
		{ServingID: 1001, FoodID: 42, ServingDescription: "1 cup cooked", Calories: strPtr("166")},
	}))

	provider := &fakeProvider{}
	resolver := NewFoodResolver(store, provider, logger.NewNop()).WithRetryPolicy(quickRetry)

	servings, err := resolver.ResolveServings(ctx, 42)
	require.NoError(t, err)
	require.Len(t, servings, 1)
	assert.Equal(t, 0, provider.getFoodCount())
}

func TestResolveServingsFetchesAndPersists(t *testing.T) {
	store := newTestStore(t)
	provider := &fakeProvider{details: map[int64]*FoodDetails{42: oatmealDetails()}}
	resolver := NewFoodResolver(store, provider, logger.NewNop()).WithRetryPolicy(quickRetry)

	servings, err := resolver.ResolveServings(context.Background(), 42)
	require.NoError(t, err)
	assert.Len(t, servings, 3)

	// The parent food row was materialized and refreshed from the same
	// response.
	food, err := store.GetFoodByID(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, food)
	assert.Equal(t, "Oatmeal", food.FoodName)

	// Missing nutrients stay nil rather than becoming zero.
	for _, s := range servings {
		if s.ServingID == 1002 {
			assert.Nil(t, s.Protein)
			require.NotNil(t, s.Calories)
			assert.Equal(t, "71", *s.Calories)
		}
	}
}

func TestResolveServingsEmptyProviderSetIsTerminal(t *testing.T) {
	store := newTestStore(t)
	provider := &fakeProvider{details: map[int64]*FoodDetails{5: {ID: 5, Name: "Water", Type: "Generic"}}}
	resolver := NewFoodResolver(store, provider, logger.NewNop()).WithRetryPolicy(quickRetry)

	servings, err := resolver.ResolveServings(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, servings)
}

func TestResolveServingsConcurrentCallersConverge(t *testing.T) {
	store := newTestStore(t)
	provider := &fakeProvider{details: map[int64]*FoodDetails{42: oatmealDetails()}}
	resolver := NewFoodResolver(store, provider, logger.NewNop()).WithRetryPolicy(quickRetry)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	counts := make([]int, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			servings, err := resolver.ResolveServings(context.Background(), 42)
			errs[i] = err
			counts[i] = len(servings)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i], "caller %d", i)
		assert.Equal(t, 3, counts[i], "caller %d", i)
	}

	// Duplicate writers collapsed into exactly the provider's set.
	persisted, err := store.GetServingsByFoodID(context.Background(), 42)
	require.NoError(t, err)
	assert.Len(t, persisted, 3)
}
