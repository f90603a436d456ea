// internal/storage/sqlite.go
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"meal-estimator/internal/apperr"
	"meal-estimator/internal/models"
)

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	storage := &SQLiteStorage{db: db}
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) initSchema() error {
	schema := `
    PRAGMA foreign_keys = ON;

    CREATE TABLE IF NOT EXISTS foods (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        fdc_id INTEGER,
        query TEXT NOT NULL,
        description TEXT NOT NULL,
        data_type TEXT,
        brand_owner TEXT,
        ingredients TEXT,
        created_at TEXT NOT NULL
    );

    CREATE TABLE IF NOT EXISTS nutrients (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        food_id INTEGER NOT NULL,
        nutrient_name TEXT NOT NULL,
        unit TEXT NOT NULL,
        amount_per_100g REAL NOT NULL,
        FOREIGN KEY (food_id) REFERENCES foods(id) ON DELETE CASCADE
    );

    CREATE TABLE IF NOT EXISTS serving_units (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        food_id INTEGER NOT NULL,
        unit TEXT NOT NULL,
        grams_per_unit REAL NOT NULL,
        FOREIGN KEY (food_id) REFERENCES foods(id) ON DELETE CASCADE
    );

    CREATE TABLE IF NOT EXISTS estimates (
        id TEXT PRIMARY KEY,
        image_hash TEXT NOT NULL,
        mode TEXT NOT NULL,
        confidence REAL NOT NULL,
        total_carbs REAL NOT NULL,
        total_net_carbs REAL NOT NULL,
        payload TEXT NOT NULL,
        created_at TEXT NOT NULL
    );

    CREATE TABLE IF NOT EXISTS estimate_items (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        estimate_id TEXT NOT NULL,
        item_id TEXT NOT NULL,
        name TEXT NOT NULL,
        grams REAL NOT NULL,
        confidence REAL NOT NULL,
        carbs REAL NOT NULL,
        net_carbs REAL NOT NULL,
        FOREIGN KEY (estimate_id) REFERENCES estimates(id) ON DELETE CASCADE
    );

    CREATE INDEX IF NOT EXISTS idx_foods_query ON foods(query);
    CREATE INDEX IF NOT EXISTS idx_nutrients_food_id ON nutrients(food_id);
    CREATE INDEX IF NOT EXISTS idx_estimates_image_hash ON estimates(image_hash);
    CREATE INDEX IF NOT EXISTS idx_estimates_created_at ON estimates(created_at);
    CREATE INDEX IF NOT EXISTS idx_estimate_items_estimate_id ON estimate_items(estimate_id);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// SaveFood stores a looked-up nutrient table under the query that produced it.
func (s *SQLiteStorage) SaveFood(query string, food models.Food) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO foods (query, description, created_at) VALUES (?, ?, ?)`,
		normalizeQuery(query), food.Description, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to insert food: %w", err)
	}
	foodID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read food id: %w", err)
	}

	nutrientQuery := `
        INSERT INTO nutrients (food_id, nutrient_name, unit, amount_per_100g)
        VALUES (?, ?, ?, ?)
    `
	for _, n := range nutrientRows(food.Nutrients) {
		if _, err := tx.Exec(nutrientQuery, foodID, n.name, n.unit, n.amount); err != nil {
			return fmt.Errorf("failed to insert nutrient %s: %w", n.name, err)
		}
	}

	return tx.Commit()
}

// GetFood returns the most recently stored nutrient table for a query.
func (s *SQLiteStorage) GetFood(query string) (*models.Food, error) {
	var foodID int64
	food := &models.Food{Source: models.StoredFoodSource}
	err := s.db.QueryRow(
		`SELECT id, description FROM foods WHERE query = ? ORDER BY id DESC LIMIT 1`,
		normalizeQuery(query)).Scan(&foodID, &food.Description)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("food %q: %w", query, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query food: %w", err)
	}

	rows, err := s.db.Query(`SELECT nutrient_name, amount_per_100g FROM nutrients WHERE food_id = ?`, foodID)
	if err != nil {
		return nil, fmt.Errorf("failed to query nutrients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var amount float64
		if err := rows.Scan(&name, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan nutrient: %w", err)
		}
		switch name {
		case "calories":
			food.Nutrients.Calories = amount
		case "carbs":
			food.Nutrients.Carbs = amount
		case "protein":
			food.Nutrients.Protein = amount
		case "fat":
			food.Nutrients.Fat = amount
		case "fiber":
			food.Nutrients.Fiber = amount
		}
	}
	return food, rows.Err()
}

func (s *SQLiteStorage) SaveEstimate(est *models.MealEstimate) (string, error) {
	payload, err := json.Marshal(est)
	if err != nil {
		return "", fmt.Errorf("failed to encode estimate: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	id := uuid.NewString()
	estimateQuery := `
        INSERT INTO estimates (id, image_hash, mode, confidence, total_carbs, total_net_carbs, payload, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err = tx.Exec(estimateQuery,
		id, est.ImageHash, string(est.Mode), est.Confidence, est.TotalCarbs.Value,
		est.TotalNetCarbs.Value, string(payload), time.Now().UTC().Format(timeLayout))
	if err != nil {
		return "", fmt.Errorf("failed to insert estimate: %w", err)
	}

	itemQuery := `
        INSERT INTO estimate_items (estimate_id, item_id, name, grams, confidence, carbs, net_carbs)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `
	for _, item := range est.Items {
		_, err = tx.Exec(itemQuery,
			id, item.ID, item.Name, item.Grams, item.Confidence,
			item.Carbs.Value, item.NetCarbs.Value)
		if err != nil {
			return "", fmt.Errorf("failed to insert estimate item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit estimate: %w", err)
	}
	return id, nil
}

func (s *SQLiteStorage) GetEstimates(limit int) ([]*models.StoredEstimate, error) {
	query := `
        SELECT id, payload, created_at
        FROM estimates
        ORDER BY created_at DESC, rowid DESC
        LIMIT ?
    `
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query estimates: %w", err)
	}
	defer rows.Close()

	var out []*models.StoredEstimate
	for rows.Next() {
		stored, err := scanEstimate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, stored)
	}
	return out, rows.Err()
}

// GetEstimate returns the latest estimate stored for an image hash.
func (s *SQLiteStorage) GetEstimate(imageHash string) (*models.StoredEstimate, error) {
	row := s.db.QueryRow(`
        SELECT id, payload, created_at
        FROM estimates
        WHERE image_hash = ?
        ORDER BY created_at DESC, rowid DESC
        LIMIT 1
    `, imageHash)
	stored, err := scanEstimate(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("estimate %q: %w", imageHash, apperr.ErrNotFound)
	}
	return stored, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEstimate(row scanner) (*models.StoredEstimate, error) {
	stored := &models.StoredEstimate{}
	var payload, createdAtStr string
	if err := row.Scan(&stored.ID, &payload, &createdAtStr); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan estimate: %w", err)
	}

	var err error
	if stored.CreatedAt, err = time.Parse(timeLayout, createdAtStr); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	stored.Estimate = &models.MealEstimate{}
	if err := json.Unmarshal([]byte(payload), stored.Estimate); err != nil {
		return nil, fmt.Errorf("failed to decode estimate %s: %w", stored.ID, err)
	}
	return stored, nil
}

type nutrientRow struct {
	name   string
	unit   string
	amount float64
}

func nutrientRows(n models.NutrientsPer100g) []nutrientRow {
	return []nutrientRow{
		{"calories", "kcal", n.Calories},
		{"carbs", "g", n.Carbs},
		{"protein", "g", n.Protein},
		{"fat", "g", n.Fat},
		{"fiber", "g", n.Fiber},
	}
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}
