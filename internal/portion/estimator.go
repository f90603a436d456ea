// internal/portion/estimator.go

// Package portion estimates the mass of each recognized item on a plate from a
// depth map, or assigns a nominal mass when no usable depth is available.
package portion

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"meal-estimator/internal/apperr"
	"meal-estimator/internal/models"
)

// Estimator turns recognized items into portioned items. It holds no mutable
// state and is safe for concurrent use.
type Estimator struct {
	densities   DensityTable
	partitioner Partitioner
	policy      Policy
	logger      *zap.SugaredLogger
}

type Option func(*Estimator)

func WithDensities(t DensityTable) Option {
	return func(e *Estimator) { e.densities = t }
}

func WithPartitioner(p Partitioner) Option {
	return func(e *Estimator) { e.partitioner = p }
}

func WithPolicy(p Policy) Option {
	return func(e *Estimator) { e.policy = p }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(e *Estimator) { e.logger = l }
}

func NewEstimator(opts ...Option) *Estimator {
	e := &Estimator{
		densities:   DefaultDensities(),
		partitioner: EqualSlabs{},
		policy:      DefaultPolicy(),
		logger:      zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Estimator) Policy() Policy { return e.policy }

// EstimateWithDepth assigns each item the mass of the volume under its region.
// An empty depth map or missing intrinsics fall back to EstimateWithoutDepth.
func (e *Estimator) EstimateWithDepth(dm *DepthMap, in *CameraIntrinsics, items []models.RecognizedItem) ([]models.PortionedItem, error) {
	if dm.Empty() || in == nil {
		e.logger.Debugw("no usable depth, using nominal portions", "items", len(items))
		return e.EstimateWithoutDepth(items), nil
	}
	if err := in.CheckValid(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []models.PortionedItem{}, nil
	}

	plane := PlaneDepth(dm)
	masks, err := e.partitioner.Partition(dm.Height(), dm.Width(), len(items))
	if err != nil {
		return nil, errors.Wrap(err, "partition depth map")
	}
	if len(masks) != len(items) {
		return nil, errors.Errorf("partitioner returned %d masks for %d items", len(masks), len(items))
	}

	out := make([]models.PortionedItem, 0, len(items))
	for i, item := range items {
		volume, valid, err := Volume(dm, plane, *in, masks[i])
		if err != nil {
			return nil, errors.Wrapf(err, "volume of item %s", item.ID)
		}
		if valid == 0 {
			if e.policy.Strict {
				return nil, errors.Wrapf(apperr.ErrDegenerateGeometry, "item %s has no depth above plane %.4f m", item.ID, plane)
			}
			volume = e.policy.EpsilonVolumeM3
		}

		density := e.densities.Lookup(item.Name)
		grams := math.Max(e.policy.MinGrams, volume*cubicCentimetersPerCubicMeter*density)
		e.logger.Debugw("portion from depth",
			"item", item.ID, "name", item.Name, "plane_m", plane,
			"valid_px", valid, "volume_m3", volume, "density", density, "grams", grams)

		out = append(out, models.PortionedItem{RecognizedItem: item, Grams: grams})
	}
	return out, nil
}

// EstimateWithoutDepth gives every item the policy's fallback mass.
func (e *Estimator) EstimateWithoutDepth(items []models.RecognizedItem) []models.PortionedItem {
	out := make([]models.PortionedItem, 0, len(items))
	for _, item := range items {
		out = append(out, models.PortionedItem{RecognizedItem: item, Grams: e.policy.FallbackGrams})
	}
	return out
}
