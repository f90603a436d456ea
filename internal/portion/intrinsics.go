// internal/portion/intrinsics.go
package portion

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"meal-estimator/internal/apperr"
)

// CameraIntrinsics holds the pinhole parameters of the depth camera, in pixels.
// Cx and Cy are carried for completeness; the volume formula does not use them.
type CameraIntrinsics struct {
	Fx float64 `json:"fx"`
	Fy float64 `json:"fy"`
	Cx float64 `json:"cx"`
	Cy float64 `json:"cy"`
}

// CheckValid checks that the focal lengths are positive and every field is finite.
func (in *CameraIntrinsics) CheckValid() error {
	if in == nil {
		return apperr.Malformedf("intrinsics do not exist")
	}
	for _, f := range []struct {
		name string
		val  float64
	}{{"fx", in.Fx}, {"fy", in.Fy}, {"cx", in.Cx}, {"cy", in.Cy}} {
		if math.IsNaN(f.val) || math.IsInf(f.val, 0) {
			return apperr.Malformedf("intrinsics %s = %v is not finite", f.name, f.val)
		}
	}
	if in.Fx <= 0 {
		return apperr.Malformedf("invalid focal length fx = %v", in.Fx)
	}
	if in.Fy <= 0 {
		return apperr.Malformedf("invalid focal length fy = %v", in.Fy)
	}
	if in.Cx < 0 {
		return apperr.Malformedf("invalid principal point cx = %v", in.Cx)
	}
	if in.Cy < 0 {
		return apperr.Malformedf("invalid principal point cy = %v", in.Cy)
	}
	return nil
}

// ParseIntrinsics reads a JSON object with keys fx, fy, cx and cy.
// An empty payload yields nil intrinsics and no error, which routes the caller
// to the no-depth path. Anything else that is not a complete, numeric object is
// rejected rather than defaulted.
func ParseIntrinsics(payload string) (*CameraIntrinsics, error) {
	if strings.TrimSpace(payload) == "" {
		return nil, nil
	}
	if !gjson.Valid(payload) {
		return nil, apperr.Malformedf("intrinsics payload is not valid JSON")
	}
	root := gjson.Parse(payload)
	if !root.IsObject() {
		return nil, apperr.Malformedf("intrinsics payload must be an object")
	}

	var vals [4]float64
	for i, key := range [4]string{"fx", "fy", "cx", "cy"} {
		v, err := numberField(root, key)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}

	in := &CameraIntrinsics{Fx: vals[0], Fy: vals[1], Cx: vals[2], Cy: vals[3]}
	if err := in.CheckValid(); err != nil {
		return nil, err
	}
	return in, nil
}

func numberField(root gjson.Result, key string) (float64, error) {
	field := root.Get(key)
	switch field.Type {
	case gjson.Number:
		return field.Num, nil
	case gjson.String:
		v, err := strconv.ParseFloat(strings.TrimSpace(field.Str), 64)
		if err != nil {
			return 0, apperr.Malformedf("intrinsics %s = %q is not numeric", key, field.Str)
		}
		return v, nil
	default:
		if !field.Exists() {
			return 0, apperr.Malformedf("intrinsics missing key %q", key)
		}
		return 0, apperr.Malformedf("intrinsics %s has non-numeric value %s", key, field.Raw)
	}
}
