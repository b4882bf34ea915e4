package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/dylanreedx/bite/logger"
	"github.com/dylanreedx/bite/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedFoods(t *testing.T, store *FoodStore, names ...string) {
	t.Helper()
	for i, name := range names {
		require.NoError(t, store.UpsertFood(context.Background(), &models.FoodItem{
			FoodID:            int64(i + 1),
			FoodName:          name,
			FoodType:          "Generic",
			FoodSubCategories: "[]",
		}))
	}
}

func TestSearchEmptyQueryShortCircuits(t *testing.T) {
	store := newTestStore(t)
	provider := &fakeProvider{}
	svc := NewSearchService(store, provider, logger.NewNop()).WithRetryPolicy(quickRetry)
	defer svc.Close()

	results, err := svc.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0, provider.searchCount())
}

func TestSearchEnoughLocalHitsSkipsProvider(t *testing.T) {
	store := newTestStore(t)
	seedFoods(t, store,
		"Apple", "Apple Pie", "Apple Juice", "Apple Sauce", "Apple Butter", "Candy Apple")
	provider := &fakeProvider{}
	svc := NewSearchService(store, provider, logger.NewNop()).WithRetryPolicy(quickRetry)
	defer svc.Close()

	results, err := svc.Search(context.Background(), "apple")
	require.NoError(t, err)
	assert.Len(t, results, 6)
	assert.Equal(t, 0, provider.searchCount())
	for _, r := range results {
		assert.Equal(t, "local", r.Source)
	}
}

func TestSearchMergesDedupsAndPrioritizesLocal(t *testing.T) {
	store := newTestStore(t)
	seedFoods(t, store, "Banana", "Banana Bread")
	provider := &fakeProvider{searchHits: []SearchHit{
		{ID: 1, Name: "Banana (FatSecret)", Type: "Generic"}, // same id as local "Banana"
		{ID: 301, Name: "Banana Chips", Type: "Generic"},
		{ID: 302, Name: "Banana Smoothie", BrandName: "Jamba", Type: "Brand"},
	}}
	svc := NewSearchService(store, provider, logger.NewNop()).WithRetryPolicy(quickRetry)

	results, err := svc.Search(context.Background(), "banana")
	require.NoError(t, err)
	svc.Close()

	require.Len(t, results, 4)
	assert.Equal(t, 1, provider.searchCount())

	byID := make(map[int64]SearchResult, len(results))
	for _, r := range results {
		byID[r.FoodID] = r
	}

	// The shared id kept the local row's data.
	assert.Equal(t, "local", byID[1].Source)
	assert.Equal(t, "Banana", byID[1].FoodName)
	assert.Equal(t, "fatsecret", byID[301].Source)
	assert.Nil(t, byID[301].Calories)

	// Sorted by display name.
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].FoodName, results[i].FoodName)
	}

	// Backfill persisted only the genuinely new external foods.
	for _, id := range []int64{301, 302} {
		food, err := store.GetFoodByID(context.Background(), id)
		require.NoError(t, err)
		require.NotNil(t, food, "food %d should be backfilled", id)
	}
	banana, err := store.GetFoodByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Banana", banana.FoodName, "local row must not be clobbered")
}

func TestSearchProviderFailureDegradesToLocal(t *testing.T) {
	store := newTestStore(t)
	seedFoods(t, store, "Cherry")
	provider := &fakeProvider{searchErr: fmt.Errorf("connect: connection refused")}
	svc := NewSearchService(store, provider, logger.NewNop()).WithRetryPolicy(quickRetry)
	defer svc.Close()

	results, err := svc.Search(context.Background(), "cherry")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "local", results[0].Source)
}

func TestSearchRateLimitedProviderRetriesThenDegrades(t *testing.T) {
	store := newTestStore(t)
	provider := &fakeProvider{searchErr: &ProviderError{StatusCode: 429, Message: "rate limited"}}
	svc := NewSearchService(store, provider, logger.NewNop()).WithRetryPolicy(quickRetry)
	defer svc.Close()

	results, err := svc.Search(context.Background(), "durian")
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, quickRetry.MaxAttempts, provider.searchCount())
}

func TestSearchExternalTypeDefaults(t *testing.T) {
	store := newTestStore(t)
	provider := &fakeProvider{searchHits: []SearchHit{{ID: 900, Name: "Mystery Snack"}}}
	svc := NewSearchService(store, provider, logger.NewNop()).WithRetryPolicy(quickRetry)

	results, err := svc.Search(context.Background(), "mystery")
	require.NoError(t, err)
	svc.Close()

	require.Len(t, results, 1)
	assert.Equal(t, "unknown", results[0].FoodType)

	food, err := store.GetFoodByID(context.Background(), 900)
	require.NoError(t, err)
	require.NotNil(t, food)
	assert.Equal(t, "unknown", food.FoodType)
}
