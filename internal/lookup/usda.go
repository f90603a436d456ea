// internal/lookup/usda.go
package lookup

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"meal-estimator/internal/models"
)

const (
	DefaultUSDABaseURL = "https://api.nal.usda.gov/fdc/v1"
	usdaTimeout        = 8 * time.Second
)

// USDA nutrient names, matched case-insensitively.
const (
	energyNutrient  = "Energy"
	carbsNutrient   = "Carbohydrate, by difference"
	proteinNutrient = "Protein"
	fatNutrient     = "Total lipid (fat)"
	fiberNutrient   = "Fiber, total dietary"
)

type USDAConfig struct {
	APIKey        string
	BaseURL       string
	RatePerSecond float64
}

// USDAClient searches FoodData Central and falls back to a static table when
// the search has no hits.
type USDAClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	fallback   Source
	logger     *zap.SugaredLogger
}

func NewUSDAClient(cfg USDAConfig, fallback Source, logger *zap.SugaredLogger) *USDAClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultUSDABaseURL
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &USDAClient{
		httpClient: &http.Client{
			Timeout: usdaTimeout,
		},
		baseURL:  baseURL,
		apiKey:   cfg.APIKey,
		limiter:  rate.NewLimiter(limit, 1),
		fallback: fallback,
		logger:   logger,
	}
}

func (c *USDAClient) Lookup(ctx context.Context, name string) (models.Food, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return models.Food{}, fmt.Errorf("usda rate limit: %w", err)
	}

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("query", name)
	params.Set("pageSize", "1")
	params.Set("requireAllWords", "true")
	u := fmt.Sprintf("%s/foods/search?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return models.Food{}, fmt.Errorf("failed to create USDA request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Food{}, fmt.Errorf("USDA request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Food{}, fmt.Errorf("failed to read USDA response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return models.Food{}, fmt.Errorf("USDA search failed with status %d: %s", resp.StatusCode, string(body))
	}
	if !gjson.ValidBytes(body) {
		return models.Food{}, fmt.Errorf("USDA response is not valid JSON")
	}

	food := gjson.GetBytes(body, "foods.0")
	if !food.Exists() {
		c.logger.Debugw("no USDA hit, using fallback table", "food", name)
		return c.fallback.Lookup(ctx, name)
	}

	description := food.Get("description").String()
	if description == "" {
		description = name
	}
	return models.Food{
		Description: description,
		Nutrients:   extractNutrients(food.Get("foodNutrients")),
		Source:      models.USDAFoodSource,
	}, nil
}

func extractNutrients(list gjson.Result) models.NutrientsPer100g {
	get := func(nutrientName string) float64 {
		value := 0.0
		list.ForEach(func(_, entry gjson.Result) bool {
			if strings.EqualFold(entry.Get("nutrientName").String(), nutrientName) {
				value = entry.Get("value").Float()
				return false
			}
			return true
		})
		return value
	}
	return models.NutrientsPer100g{
		Calories: get(energyNutrient),
		Carbs:    get(carbsNutrient),
		Protein:  get(proteinNutrient),
		Fat:      get(fatNutrient),
		Fiber:    get(fiberNutrient),
	}
}
