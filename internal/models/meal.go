// internal/models/meal.go
package models

import (
	"time"
)

// RecognizedItem is a food candidate produced by the recognizer.
type RecognizedItem struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// PortionedItem is a recognized item with an estimated mass attached.
type PortionedItem struct {
	RecognizedItem
	Grams float64 `json:"grams"`
}

// NutrientsPer100g holds the amounts of the tracked nutrients per 100 g of food.
type NutrientsPer100g struct {
	Calories float64 `json:"calories"`
	Carbs    float64 `json:"carbs"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Fiber    float64 `json:"fiber"`
}

// Food is a nutrient table entry as returned by a lookup source.
type Food struct {
	Description string           `json:"description"`
	Nutrients   NutrientsPer100g `json:"nutrients"`
	Source      FoodSource       `json:"source,omitempty"`
}

// FoodSource records where a Food came from.
type FoodSource string

const (
	USDAFoodSource   FoodSource = "usda"
	StaticFoodSource FoodSource = "static"
	StoredFoodSource FoodSource = "stored"
)

// NutrientRange is a nutrient quantity with its uncertainty band.
type NutrientRange struct {
	Value float64 `json:"value"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

type MealItem struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Grams      float64       `json:"grams"`
	Unit       string        `json:"unit"`
	Confidence float64       `json:"confidence"`
	Carbs      NutrientRange `json:"carbs"`
	NetCarbs   NutrientRange `json:"netCarbs"`
	Protein    NutrientRange `json:"protein"`
	Fat        NutrientRange `json:"fat"`
	Calories   NutrientRange `json:"calories"`
}

type MealEstimate struct {
	ImageHash     string        `json:"imageHash"`
	Items         []MealItem    `json:"items"`
	TotalCarbs    NutrientRange `json:"totalCarbs"`
	TotalNetCarbs NutrientRange `json:"totalNetCarbs"`
	TotalProtein  NutrientRange `json:"totalProtein"`
	TotalFat      NutrientRange `json:"totalFat"`
	TotalCalories NutrientRange `json:"totalCalories"`
	Confidence    float64       `json:"confidence"`
	Mode          Mode          `json:"mode"`
}

// StoredEstimate is a persisted estimate with its bookkeeping fields.
type StoredEstimate struct {
	ID        string        `json:"id"`
	Estimate  *MealEstimate `json:"estimate"`
	CreatedAt time.Time     `json:"created_at"`
}

// Mode is the capture mode reported by the client.
type Mode string

const (
	QuickPhotoMode Mode = "quick_photo"
	DepthMode      Mode = "depth"
	MultiAngleMode Mode = "multi_angle"
)

// Correction is a user-confirmed adjustment of one item.
type Correction struct {
	ID    string  `json:"id"`
	Grams float64 `json:"grams"`
	Unit  string  `json:"unit"`
}
