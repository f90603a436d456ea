// internal/lookup/static.go

// Package lookup resolves food names to nutrient tables per 100 g.
package lookup

import (
	"context"
	"strings"

	"meal-estimator/internal/models"
)

// Source resolves a food name to its nutrients per 100 g.
type Source interface {
	Lookup(ctx context.Context, name string) (models.Food, error)
}

// StaticTable is an immutable fallback table. Unknown names resolve to the
// table's default entry.
type StaticTable struct {
	foods      map[string]models.NutrientsPer100g
	defaultKey string
}

// NewStaticTable copies foods into a table keyed by lower-cased name.
// defaultKey must name one of the entries.
func NewStaticTable(foods map[string]models.NutrientsPer100g, defaultKey string) *StaticTable {
	m := make(map[string]models.NutrientsPer100g, len(foods))
	for name, n := range foods {
		m[normalize(name)] = n
	}
	return &StaticTable{foods: m, defaultKey: normalize(defaultKey)}
}

// DefaultStaticTable returns the built-in table used when no external source is configured.
func DefaultStaticTable() *StaticTable {
	return NewStaticTable(map[string]models.NutrientsPer100g{
		"chicken breast": {Calories: 165, Carbs: 0, Protein: 31, Fat: 3.6, Fiber: 0},
		"white rice":     {Calories: 130, Carbs: 28, Protein: 2.7, Fat: 0.3, Fiber: 0.4},
		"salad":          {Calories: 33, Carbs: 3.6, Protein: 2.0, Fat: 0.4, Fiber: 1.6},
		"apple":          {Calories: 52, Carbs: 13.8, Protein: 0.3, Fat: 0.2, Fiber: 2.4},
	}, "salad")
}

func (s *StaticTable) Lookup(_ context.Context, name string) (models.Food, error) {
	n, ok := s.foods[normalize(name)]
	if !ok {
		n = s.foods[s.defaultKey]
	}
	return models.Food{Description: name, Nutrients: n, Source: models.StaticFoodSource}, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
