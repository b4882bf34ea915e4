package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"
)

// FatSecretService talks to the FatSecret proxy (the proxy holds the
// OAuth credentials and the whitelisted IP). It does no retrying itself;
// callers wrap these methods with ExecuteWithRetry so the retry policy
// lives in one place.
type FatSecretService struct {
	baseURL string
	client  *http.Client
}

func NewFatSecretService() *FatSecretService {
	return &FatSecretService{
		baseURL: os.Getenv("FATSECRET_PROXY_URL"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// NewFatSecretServiceWithURL is the constructor tests use to point the
// client at a stand-in server.
func NewFatSecretServiceWithURL(baseURL string) *FatSecretService {
	return &FatSecretService{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// flexInt64 decodes a JSON number or numeric string; FatSecret is
// inconsistent about which one ids arrive as.
type flexInt64 int64

func (f *flexInt64) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("numeric id expected, got %q", b)
	}
	*f = flexInt64(n)
	return nil
}

// flexString keeps a scalar as text whether it arrived quoted or bare.
// Nutrient amounts show up both ways depending on the endpoint.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var v string
	if err := json.Unmarshal(b, &v); err == nil {
		*s = flexString(v)
		return nil
	}
	*s = flexString(bytes.Trim(b, `"`))
	return nil
}

func (s *flexString) stringPtr() *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

// flexBool accepts true/false, 0/1, and their quoted forms; the default
// flag arrives differently depending on the endpoint.
type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	switch string(bytes.Trim(b, `"`)) {
	case "true", "1":
		*f = true
	default:
		*f = false
	}
	return nil
}

// SearchHit is one row of a provider keyword search. Search responses
// carry no nutrient data.
type SearchHit struct {
	ID        flexInt64 `json:"id"`
	Name      string    `json:"name"`
	BrandName string    `json:"brandName"`
	Type      string    `json:"type"`
	URL       string    `json:"url"`
}

type searchResponse struct {
	Foods []SearchHit `json:"foods"`
}

// ProviderServing is one serving record from a detail response, already
// flattened out of whichever nesting the provider chose.
type ProviderServing struct {
	ID                     flexInt64   `json:"id"`
	Description            string      `json:"description"`
	URL                    string      `json:"url"`
	MetricServingAmount    *flexString `json:"metricServingAmount"`
	MetricServingUnit      *flexString `json:"metricServingUnit"`
	NumberOfUnits          *flexString `json:"numberOfUnits"`
	MeasurementDescription *flexString `json:"measurementDescription"`
	IsDefault              flexBool    `json:"isDefault"`

	Calories           *flexString `json:"calories"`
	Carbohydrate       *flexString `json:"carbohydrate"`
	Protein            *flexString `json:"protein"`
	Fat                *flexString `json:"fat"`
	SaturatedFat       *flexString `json:"saturatedFat"`
	PolyunsaturatedFat *flexString `json:"polyunsaturatedFat"`
	MonounsaturatedFat *flexString `json:"monounsaturatedFat"`
	TransFat           *flexString `json:"transFat"`
	Cholesterol        *flexString `json:"cholesterol"`
	Sodium             *flexString `json:"sodium"`
	Potassium          *flexString `json:"potassium"`
	Fiber              *flexString `json:"fiber"`
	Sugar              *flexString `json:"sugar"`
	AddedSugars        *flexString `json:"addedSugars"`
	VitaminD           *flexString `json:"vitaminD"`
	VitaminA           *flexString `json:"vitaminA"`
	VitaminC           *flexString `json:"vitaminC"`
	Calcium            *flexString `json:"calcium"`
	Iron               *flexString `json:"iron"`
}

// servingList accepts every nesting the provider has been seen to use:
// a flat array, {"serving": [...]}, or {"serving": {...}} when a food
// has a single serving.
type servingList struct {
	Servings []ProviderServing
}

func (l *servingList) UnmarshalJSON(b []byte) error {
	var flat []ProviderServing
	if err := json.Unmarshal(b, &flat); err == nil {
		l.Servings = flat
		return nil
	}

	var wrapped struct {
		Serving json.RawMessage `json:"serving"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return err
	}
	if len(wrapped.Serving) == 0 || string(wrapped.Serving) == "null" {
		return nil
	}

	var arr []ProviderServing
	if err := json.Unmarshal(wrapped.Serving, &arr); err == nil {
		l.Servings = arr
		return nil
	}
	var one ProviderServing
	if err := json.Unmarshal(wrapped.Serving, &one); err != nil {
		return err
	}
	l.Servings = []ProviderServing{one}
	return nil
}

// FoodDetails is the single normalized shape the resolver sees,
// regardless of which variant the provider sent.
type FoodDetails struct {
	ID        int64
	Name      string
	BrandName string
	Type      string
	URL       string
	Servings  []ProviderServing
}

type rawFood struct {
	ID        flexInt64   `json:"id"`
	Name      string      `json:"name"`
	BrandName string      `json:"brandName"`
	Type      string      `json:"type"`
	URL       string      `json:"url"`
	Servings  servingList `json:"servings"`
}

// Search calls the proxy's keyword search endpoint.
func (s *FatSecretService) Search(ctx context.Context, query string, maxResults int) ([]SearchHit, error) {
	u := fmt.Sprintf("%s/search?q=%s&max_results=%d",
		s.baseURL, url.QueryEscape(query), maxResults)

	body, err := s.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}
	return sr.Foods, nil
}

// GetFood calls the proxy's detail endpoint and normalizes the payload.
// The food summary may arrive bare or wrapped under "food", and servings
// may sit next to the summary or inside it.
func (s *FatSecretService) GetFood(ctx context.Context, foodID int64) (*FoodDetails, error) {
	u := fmt.Sprintf("%s/get-food?id=%d", s.baseURL, foodID)

	body, err := s.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var wrapper struct {
		Food     *rawFood     `json:"food"`
		Servings *servingList `json:"servings"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("failed to parse food response: %w", err)
	}

	var rf rawFood
	if wrapper.Food != nil {
		rf = *wrapper.Food
	} else if err := json.Unmarshal(body, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse food response: %w", err)
	}
	if len(rf.Servings.Servings) == 0 && wrapper.Servings != nil {
		rf.Servings = *wrapper.Servings
	}

	details := &FoodDetails{
		ID:        int64(rf.ID),
		Name:      rf.Name,
		BrandName: rf.BrandName,
		Type:      rf.Type,
		URL:       rf.URL,
		Servings:  rf.Servings.Servings,
	}
	if details.ID == 0 {
		details.ID = foodID
	}
	return details, nil
}

func (s *FatSecretService) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call provider: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Message: string(body)}
	}
	return body, nil
}
