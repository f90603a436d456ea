// internal/nutrition/nutrition.go

// Package nutrition converts portions into nutrient quantities with
// confidence-derived uncertainty bands and sums them into meal totals.
package nutrition

import (
	"math"

	"github.com/pkg/errors"

	"meal-estimator/internal/apperr"
	"meal-estimator/internal/models"
)

const (
	// BaseSpread is the band half-width at full confidence.
	BaseSpread = 0.15
	// ConfidenceSpread is added to BaseSpread as confidence drops to zero.
	ConfidenceSpread = 0.35

	GramsUnit = "g"
)

// Spread returns the fractional half-width of the band for a confidence,
// from 0.15 at confidence 1 to 0.50 at confidence 0.
func Spread(confidence float64) float64 {
	c := math.Min(1, math.Max(0, confidence))
	return BaseSpread + (1-c)*ConfidenceSpread
}

// Range builds the [min, value, max] band around value.
func Range(value, confidence float64) models.NutrientRange {
	spread := Spread(confidence)
	return models.NutrientRange{
		Value: value,
		Min:   math.Max(0, value*(1-spread)),
		Max:   value * (1 + spread),
	}
}

// Quantity scales an amount per 100 g to the given portion.
func Quantity(per100g, grams float64) float64 {
	return per100g * grams / 100
}

// BuildItem computes the nutrient ranges of one portioned item.
func BuildItem(p models.PortionedItem, n models.NutrientsPer100g) models.MealItem {
	carbs := Quantity(n.Carbs, p.Grams)
	fiber := Quantity(n.Fiber, p.Grams)
	netCarbs := math.Max(0, carbs-fiber)
	c := p.Confidence

	return models.MealItem{
		ID:         p.ID,
		Name:       p.Name,
		Grams:      p.Grams,
		Unit:       GramsUnit,
		Confidence: c,
		Carbs:      Range(carbs, c),
		NetCarbs:   Range(netCarbs, c),
		Protein:    Range(Quantity(n.Protein, p.Grams), c),
		Fat:        Range(Quantity(n.Fat, p.Grams), c),
		Calories:   Range(Quantity(n.Calories, p.Grams), c),
	}
}

// Totals holds the meal-level range of each tracked nutrient.
type Totals struct {
	Carbs    models.NutrientRange
	NetCarbs models.NutrientRange
	Protein  models.NutrientRange
	Fat      models.NutrientRange
	Calories models.NutrientRange
}

func add(a, b models.NutrientRange) models.NutrientRange {
	return models.NutrientRange{Value: a.Value + b.Value, Min: a.Min + b.Min, Max: a.Max + b.Max}
}

// Aggregate sums value, min and max independently across items and returns the
// mean item confidence. Bounds are added directly, not propagated statistically.
func Aggregate(items []models.MealItem) (Totals, float64, error) {
	if len(items) == 0 {
		return Totals{}, 0, apperr.ErrEmptyMeal
	}
	var t Totals
	confidence := 0.0
	for _, it := range items {
		t.Carbs = add(t.Carbs, it.Carbs)
		t.NetCarbs = add(t.NetCarbs, it.NetCarbs)
		t.Protein = add(t.Protein, it.Protein)
		t.Fat = add(t.Fat, it.Fat)
		t.Calories = add(t.Calories, it.Calories)
		confidence += it.Confidence
	}
	return t, confidence / float64(len(items)), nil
}

// BuildEstimate assembles the immutable estimate for one analysis request.
func BuildEstimate(imageHash string, mode models.Mode, items []models.MealItem) (*models.MealEstimate, error) {
	totals, confidence, err := Aggregate(items)
	if err != nil {
		return nil, errors.Wrapf(err, "estimate %s", imageHash)
	}
	owned := make([]models.MealItem, len(items))
	copy(owned, items)
	return &models.MealEstimate{
		ImageHash:     imageHash,
		Items:         owned,
		TotalCarbs:    totals.Carbs,
		TotalNetCarbs: totals.NetCarbs,
		TotalProtein:  totals.Protein,
		TotalFat:      totals.Fat,
		TotalCalories: totals.Calories,
		Confidence:    confidence,
		Mode:          mode,
	}, nil
}
