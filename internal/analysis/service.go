// internal/analysis/service.go

// Package analysis runs a meal photo through recognition, portioning and
// nutrient lookup, and remembers the result per image hash.
package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"meal-estimator/internal/apperr"
	"meal-estimator/internal/cache"
	"meal-estimator/internal/depth"
	"meal-estimator/internal/lookup"
	"meal-estimator/internal/models"
	"meal-estimator/internal/nutrition"
	"meal-estimator/internal/portion"
	"meal-estimator/internal/recognition"
)

// EstimateStore persists finished estimates. *storage.SQLiteStorage satisfies it.
type EstimateStore interface {
	SaveEstimate(est *models.MealEstimate) (string, error)
}

// Request is one analysis call.
type Request struct {
	// ImageHash keys the idempotency cache. Derived from Image when empty.
	ImageHash      string
	Mode           models.Mode
	Image          []byte
	Extra          [][]byte
	Depth          depth.Payload
	IntrinsicsJSON string
}

// ConfirmResult acknowledges a batch of user corrections.
type ConfirmResult struct {
	Status string `json:"status"`
	Items  int    `json:"items"`
}

type Service struct {
	recognizer recognition.Recognizer
	foods      lookup.Source
	estimator  *portion.Estimator
	meals      *cache.TTLCache[*models.MealEstimate]
	store      EstimateStore
	logger     *zap.SugaredLogger
}

// NewService wires the pipeline. store may be nil, in which case estimates are
// only cached.
func NewService(
	recognizer recognition.Recognizer,
	foods lookup.Source,
	estimator *portion.Estimator,
	meals *cache.TTLCache[*models.MealEstimate],
	store EstimateStore,
	logger *zap.SugaredLogger,
) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{
		recognizer: recognizer,
		foods:      foods,
		estimator:  estimator,
		meals:      meals,
		store:      store,
		logger:     logger,
	}
}

// HashImage is the image hash used when a client does not send one.
func HashImage(image []byte) string {
	sum := sha256.Sum256(image)
	return hex.EncodeToString(sum[:])
}

// Analyze returns the estimate for req. A cached estimate for the same image
// hash is returned as is, whatever the rest of req says.
func (s *Service) Analyze(ctx context.Context, req Request) (*models.MealEstimate, error) {
	if len(req.Image) == 0 {
		return nil, apperr.Malformedf("image is required")
	}
	hash := req.ImageHash
	if hash == "" {
		hash = HashImage(req.Image)
	}
	if cached, ok := s.meals.Get(hash); ok {
		s.logger.Debugw("estimate served from cache", "image_hash", hash)
		return cached, nil
	}

	mode := req.Mode
	if mode == "" {
		mode = models.QuickPhotoMode
	}

	recognized, err := s.recognizer.Recognize(ctx, req.Image, req.Extra)
	if err != nil {
		return nil, errors.Wrap(err, "recognize foods")
	}
	dm, err := depth.Decode(req.Depth)
	if err != nil {
		return nil, err
	}
	intrinsics, err := portion.ParseIntrinsics(req.IntrinsicsJSON)
	if err != nil {
		return nil, err
	}

	var portioned []models.PortionedItem
	if dm != nil && intrinsics != nil {
		s.logger.Debugw("depth decoded",
			"image_hash", hash,
			"width", dm.Width(),
			"height", dm.Height(),
			"max_depth_m", dm.Max(),
		)
		portioned, err = s.estimator.EstimateWithDepth(dm, intrinsics, recognized)
		if err != nil {
			return nil, err
		}
	} else {
		portioned = s.estimator.EstimateWithoutDepth(recognized)
	}

	items := make([]models.MealItem, 0, len(portioned))
	for _, p := range portioned {
		food, err := s.foods.Lookup(ctx, p.Name)
		if err != nil {
			return nil, errors.Wrapf(err, "nutrients for %s", p.ID)
		}
		items = append(items, nutrition.BuildItem(p, food.Nutrients))
	}

	est, err := nutrition.BuildEstimate(hash, mode, items)
	if err != nil {
		return nil, err
	}

	if s.store != nil {
		if id, err := s.store.SaveEstimate(est); err != nil {
			s.logger.Warnw("failed to persist estimate", "image_hash", hash, "error", err)
		} else {
			s.logger.Debugw("estimate persisted", "image_hash", hash, "id", id)
		}
	}
	s.meals.Set(hash, est)

	s.logger.Infow("meal analyzed",
		"image_hash", hash,
		"mode", mode,
		"items", len(items),
		"depth", dm != nil && intrinsics != nil,
		"total_carbs", est.TotalCarbs.Value,
	)
	return est, nil
}

// ConfirmCorrections acknowledges user corrections and keeps the estimate for
// imageHash cached for another full TTL. The corrections are not applied.
func (s *Service) ConfirmCorrections(imageHash string, corrections []models.Correction) ConfirmResult {
	if imageHash != "" && s.meals.Touch(imageHash) {
		s.logger.Debugw("cached estimate refreshed", "image_hash", imageHash, "corrections", len(corrections))
	}
	return ConfirmResult{Status: "ok", Items: len(corrections)}
}
