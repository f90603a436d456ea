// internal/portion/volume.go
package portion

import (
	"math"

	"meal-estimator/internal/apperr"
)

// Volume integrates height above the plane times pixel footprint over the mask
// and returns the volume in cubic meters together with the number of pixels
// that contributed.
//
// A pixel contributes when plane-depth minus its depth is finite and strictly
// positive; pixels behind the plane count as zero height. The footprint of one
// pixel is depth^2/(fx*fy). This omits the principal point and off-axis
// foreshortening, so it is only accurate near the image center.
func Volume(dm *DepthMap, plane float64, in CameraIntrinsics, mask *Mask) (float64, int, error) {
	if dm.Empty() {
		return 0, 0, nil
	}
	if mask == nil || mask.Height() != dm.Height() || mask.Width() != dm.Width() {
		return 0, 0, apperr.Malformedf("mask shape does not match %dx%d depth map", dm.Height(), dm.Width())
	}

	focal := in.Fx * in.Fy
	volume, valid := 0.0, 0
	for r := 0; r < dm.Height(); r++ {
		for c, d := range dm.row(r) {
			if !mask.Contains(r, c) {
				continue
			}
			height := math.Max(0, plane-d)
			if math.IsNaN(height) || math.IsInf(height, 0) || height <= 0 {
				continue
			}
			volume += height * (d * d / focal)
			valid++
		}
	}
	return volume, valid, nil
}
