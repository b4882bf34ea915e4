package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/dylanreedx/bite/logger"
	"github.com/dylanreedx/bite/models"
)

const (
	// Below this many local hits, the external provider is consulted.
	thinResultsThreshold = 5
	searchResultLimit    = 20
	backfillQueueSize    = 16
)

// SearchResult is one merged search hit. Source tells the client where
// the row came from; external hits never carry calories.
type SearchResult struct {
	FoodID    int64   `json:"food_id"`
	FoodName  string  `json:"food_name"`
	BrandName *string `json:"brand_name"`
	FoodType  string  `json:"food_type"`
	FoodURL   string  `json:"food_url"`
	Calories  *string `json:"calories"`
	Source    string  `json:"source"`
}

const (
	sourceLocal    = "local"
	sourceExternal = "fatsecret"
)

// SearchService merges the local substring search with the provider's
// keyword search. Newly discovered external foods are queued for a
// background worker that grows the local cache; the response never
// waits on that write and never sees its failures.
type SearchService struct {
	store    *FoodStore
	provider NutritionProvider
	retry    RetryPolicy
	log      *logger.Logger

	backfillCh chan []models.FoodItem
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

func NewSearchService(store *FoodStore, provider NutritionProvider, baseLog *logger.Logger) *SearchService {
	s := &SearchService{
		store:      store,
		provider:   provider,
		retry:      DefaultRetryPolicy,
		log:        baseLog.With("component", "SearchService"),
		backfillCh: make(chan []models.FoodItem, backfillQueueSize),
	}
	s.wg.Add(1)
	go s.runBackfill()
	return s
}

// WithRetryPolicy overrides the default provider retry policy.
func (s *SearchService) WithRetryPolicy(policy RetryPolicy) *SearchService {
	s.retry = policy
	return s
}

// Close drains the backfill queue and stops the worker.
func (s *SearchService) Close() {
	s.closeOnce.Do(func() { close(s.backfillCh) })
	s.wg.Wait()
}

// Search merges local and external results for query. External failures
// degrade to local-only results; only a local store failure fails the
// request.
func (s *SearchService) Search(ctx context.Context, query string) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []SearchResult{}, nil
	}

	localRows, err := s.store.SearchByName(ctx, query, searchResultLimit)
	if err != nil {
		return nil, err
	}
	results := make([]SearchResult, 0, len(localRows))
	localIDs := make(map[int64]bool, len(localRows))
	for _, row := range localRows {
		localIDs[row.FoodID] = true
		results = append(results, SearchResult{
			FoodID:    row.FoodID,
			FoodName:  row.FoodName,
			BrandName: row.BrandName,
			FoodType:  row.FoodType,
			FoodURL:   row.FoodURL,
			Calories:  row.Calories,
			Source:    sourceLocal,
		})
	}

	if len(localRows) < thinResultsThreshold {
		hits, err := ExecuteWithRetry(ctx, s.retry, func() ([]SearchHit, error) {
			return s.provider.Search(ctx, query, searchResultLimit)
		})
		if err != nil {
			s.log.Warn("external search failed, returning local results only",
				"query", query, "error", err)
		} else {
			for _, hit := range hits {
				results = append(results, searchResultFromHit(hit))
			}
		}
	}

	// Dedup by food id, first occurrence wins: local rows were appended
	// first, so local data wins ties with external hits.
	merged := results[:0]
	seen := make(map[int64]bool, len(results))
	for _, item := range results {
		if seen[item.FoodID] {
			continue
		}
		seen[item.FoodID] = true
		merged = append(merged, item)
	}

	s.enqueueBackfill(merged, localIDs)

	sort.Slice(merged, func(i, j int) bool {
		return strings.ToLower(merged[i].FoodName) < strings.ToLower(merged[j].FoodName)
	})
	return merged, nil
}

func searchResultFromHit(hit SearchHit) SearchResult {
	result := SearchResult{
		FoodID:   int64(hit.ID),
		FoodName: hit.Name,
		FoodType: hit.Type,
		FoodURL:  hit.URL,
		Source:   sourceExternal,
	}
	if result.FoodType == "" {
		result.FoodType = "unknown"
	}
	if hit.BrandName != "" {
		brand := hit.BrandName
		result.BrandName = &brand
	}
	return result
}

// enqueueBackfill hands externally discovered foods to the worker. A
// full queue drops the batch; the cache just grows a little slower.
func (s *SearchService) enqueueBackfill(merged []SearchResult, localIDs map[int64]bool) {
	var fresh []models.FoodItem
	for _, item := range merged {
		if item.Source != sourceExternal || localIDs[item.FoodID] {
			continue
		}
		fresh = append(fresh, models.FoodItem{
			FoodID:            item.FoodID,
			FoodName:          item.FoodName,
			BrandName:         item.BrandName,
			FoodType:          item.FoodType,
			FoodURL:           item.FoodURL,
			FoodSubCategories: "[]",
		})
	}
	if len(fresh) == 0 {
		return
	}

	select {
	case s.backfillCh <- fresh:
	default:
		s.log.Warn("backfill queue full, dropping batch", "count", len(fresh))
	}
}

func (s *SearchService) runBackfill() {
	defer s.wg.Done()
	for batch := range s.backfillCh {
		// Not the request's context: the response has already been sent.
		if err := s.store.InsertFoodsIgnore(context.Background(), batch); err != nil {
			s.log.Error("backfill failed", "count", len(batch), "error", err)
		} else {
			s.log.Info("backfilled foods from search", "count", len(batch))
		}
	}
}
