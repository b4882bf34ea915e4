package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dylanreedx/bite/logger"
	"github.com/dylanreedx/bite/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// quickRetry keeps retry semantics but drops the cool-down so tests
// don't sleep.
var quickRetry = RetryPolicy{MaxAttempts: 4, Delay: time.Millisecond}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A named shared-cache memory DB so every pooled connection sees the
	// same data; one open connection serializes sqlite writers.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.FoodItem{},
		&models.Serving{},
		&models.FoodLog{},
	))
	return db
}

func newTestStore(t *testing.T) *FoodStore {
	return NewFoodStore(newTestDB(t), logger.NewNop())
}

// fakeProvider is a call-counting NutritionProvider stand-in.
type fakeProvider struct {
	mu sync.Mutex

	searchHits []SearchHit
	searchErr  error
	details    map[int64]*FoodDetails
	getErr     error

	searchCalls  int
	getFoodCalls int
}

func (f *fakeProvider) Search(ctx context.Context, query string, maxResults int) ([]SearchHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchHits, nil
}

func (f *fakeProvider) GetFood(ctx context.Context, foodID int64) (*FoodDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getFoodCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	if d, ok := f.details[foodID]; ok {
		return d, nil
	}
	return &FoodDetails{ID: foodID}, nil
}

func (f *fakeProvider) searchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searchCalls
}

func (f *fakeProvider) getFoodCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getFoodCalls
}

func fs(v string) *flexString {
	s := flexString(v)
	return &s
}

func strPtr(v string) *string { return &v }
