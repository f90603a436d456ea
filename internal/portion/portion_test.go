package portion

import (
	"math"
	"testing"

	"go.viam.com/test"

	"meal-estimator/internal/apperr"
	"meal-estimator/internal/models"
)

func items(names ...string) []models.RecognizedItem {
	out := make([]models.RecognizedItem, 0, len(names))
	for i, n := range names {
		out = append(out, models.RecognizedItem{ID: string(rune('a' + i)), Name: n, Confidence: 0.8})
	}
	return out
}

func mustDepthMap(t *testing.T, rows [][]float64) *DepthMap {
	t.Helper()
	dm, err := NewDepthMap(rows)
	test.That(t, err, test.ShouldBeNil)
	return dm
}

func flatRows(h, w int, d float64) [][]float64 {
	rows := make([][]float64, h)
	for r := range rows {
		rows[r] = make([]float64, w)
		for c := range rows[r] {
			rows[r][c] = d
		}
	}
	return rows
}

func TestNewDepthMap(t *testing.T) {
	dm := mustDepthMap(t, [][]float64{{1, 2, 3}, {4, 5, 6}})
	test.That(t, dm.Height(), test.ShouldEqual, 2)
	test.That(t, dm.Width(), test.ShouldEqual, 3)
	test.That(t, dm.At(1, 2), test.ShouldEqual, 6.0)
	test.That(t, dm.Max(), test.ShouldEqual, 6.0)

	_, err := NewDepthMap([][]float64{{1, 2}, {3}})
	test.That(t, apperr.IsMalformed(err), test.ShouldBeTrue)

	empty := mustDepthMap(t, nil)
	test.That(t, empty.Empty(), test.ShouldBeTrue)
	test.That(t, empty.Width(), test.ShouldEqual, 0)

	_, err = NewDepthMapFromValues(2, 2, []float64{1, 2, 3})
	test.That(t, apperr.IsMalformed(err), test.ShouldBeTrue)

	src := []float64{1, 2, 3, 4}
	dm, err = NewDepthMapFromValues(2, 2, src)
	test.That(t, err, test.ShouldBeNil)
	src[0] = 99
	test.That(t, dm.At(0, 0), test.ShouldEqual, 1.0)
}

func TestPlaneDepth(t *testing.T) {
	t.Run("2x2 border is whole grid", func(t *testing.T) {
		dm := mustDepthMap(t, [][]float64{{0.55, 0.62}, {0.58, 0.60}})
		test.That(t, PlaneDepth(dm), test.ShouldAlmostEqual, 0.59, 1e-12)
	})

	t.Run("interior ignored", func(t *testing.T) {
		rows := flatRows(5, 5, 0.7)
		rows[2][2] = 0.1
		rows[1][2] = 0.2
		test.That(t, PlaneDepth(mustDepthMap(t, rows)), test.ShouldEqual, 0.7)
	})

	t.Run("nan skipped", func(t *testing.T) {
		rows := flatRows(3, 3, 0.5)
		rows[0][0] = math.NaN()
		rows[0][1] = math.NaN()
		test.That(t, PlaneDepth(mustDepthMap(t, rows)), test.ShouldEqual, 0.5)
	})

	t.Run("all nan border", func(t *testing.T) {
		rows := flatRows(3, 3, math.NaN())
		rows[1][1] = 0.4
		test.That(t, math.IsNaN(PlaneDepth(mustDepthMap(t, rows))), test.ShouldBeTrue)
	})
}

func TestEqualSlabs(t *testing.T) {
	masks, err := EqualSlabs{}.Partition(4, 10, 3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, masks, test.ShouldHaveLength, 3)

	wantCols := [][2]int{{0, 3}, {3, 6}, {6, 10}}
	for i, m := range masks {
		for r := 0; r < 4; r++ {
			for c := 0; c < 10; c++ {
				inSlab := c >= wantCols[i][0] && c < wantCols[i][1]
				test.That(t, m.Contains(r, c), test.ShouldEqual, inSlab)
			}
		}
	}

	for r := 0; r < 4; r++ {
		for c := 0; c < 10; c++ {
			owners := 0
			for _, m := range masks {
				if m.Contains(r, c) {
					owners++
				}
			}
			test.That(t, owners, test.ShouldEqual, 1)
		}
	}

	single, err := EqualSlabs{}.Partition(3, 7, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, single[0].Count(), test.ShouldEqual, 21)

	narrow, err := EqualSlabs{}.Partition(1, 2, 4)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, narrow, test.ShouldHaveLength, 4)
	total := 0
	for _, m := range narrow {
		total += m.Count()
	}
	test.That(t, total, test.ShouldEqual, 2)

	_, err = EqualSlabs{}.Partition(4, 10, 0)
	test.That(t, apperr.IsMalformed(err), test.ShouldBeTrue)
}

func TestVolume(t *testing.T) {
	in := CameraIntrinsics{Fx: 600, Fy: 600, Cx: 1, Cy: 1}
	dm := mustDepthMap(t, [][]float64{{0.55, 0.62}, {0.58, 0.60}})
	full, _ := EqualSlabs{}.Partition(2, 2, 1)

	vol, valid, err := Volume(dm, PlaneDepth(dm), in, full[0])
	test.That(t, err, test.ShouldBeNil)
	test.That(t, valid, test.ShouldEqual, 2)
	want := (0.04*0.55*0.55 + 0.01*0.58*0.58) / (600 * 600)
	test.That(t, vol, test.ShouldAlmostEqual, want, 1e-15)

	_, _, err = Volume(dm, 0.59, in, NewMask(3, 2))
	test.That(t, apperr.IsMalformed(err), test.ShouldBeTrue)

	rows := [][]float64{{0.5, math.NaN()}, {math.Inf(1), 0.9}}
	vol, valid, err = Volume(mustDepthMap(t, rows), 0.6, in, full[0])
	test.That(t, err, test.ShouldBeNil)
	test.That(t, valid, test.ShouldEqual, 1)
	test.That(t, vol, test.ShouldAlmostEqual, 0.1*0.25/(600*600), 1e-15)
}

func TestEstimateWithDepthRegression(t *testing.T) {
	dm := mustDepthMap(t, [][]float64{{0.55, 0.62}, {0.58, 0.60}})
	in := &CameraIntrinsics{Fx: 600, Fy: 600, Cx: 1, Cy: 1}

	e := NewEstimator()
	out, err := e.EstimateWithDepth(dm, in, items("mystery"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldHaveLength, 1)
	// 4.3e-8 m3 is far below the floor.
	test.That(t, out[0].Grams, test.ShouldEqual, 30.0)

	again, err := e.EstimateWithDepth(dm, in, items("mystery"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, again, test.ShouldResemble, out)
}

func TestEstimateWithDepthMeasuredPortion(t *testing.T) {
	// 10x10 table at 0.5 m with a 4x4 mound 2 cm tall on the left half.
	rows := flatRows(10, 10, 0.5)
	for r := 3; r < 7; r++ {
		for c := 1; c < 5; c++ {
			rows[r][c] = 0.48
		}
	}
	dm := mustDepthMap(t, rows)
	in := &CameraIntrinsics{Fx: 10, Fy: 10, Cx: 5, Cy: 5}

	out, err := NewEstimator().EstimateWithDepth(dm, in, items("white rice", "salad"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldHaveLength, 2)

	volume := 16 * 0.02 * (0.48 * 0.48 / 100)
	test.That(t, out[0].Grams, test.ShouldAlmostEqual, volume*1e6*0.85, 1e-6)
	test.That(t, out[0].Name, test.ShouldEqual, "white rice")
	// the right slab is flat, so salad takes the epsilon volume at density 0.3
	test.That(t, out[1].Grams, test.ShouldAlmostEqual, 30.0, 1e-9)
}

func TestEstimateFlatScene(t *testing.T) {
	dm := mustDepthMap(t, flatRows(6, 9, 0.6))
	in := &CameraIntrinsics{Fx: 500, Fy: 500, Cx: 4, Cy: 3}

	out, err := NewEstimator().EstimateWithDepth(dm, in, items("salad", "Chicken Breast", "unknown"))
	test.That(t, err, test.ShouldBeNil)
	densities := DefaultDensities()
	for _, it := range out {
		want := math.Max(MinGrams, EpsilonVolumeM3*1e6*densities.Lookup(it.Name))
		test.That(t, it.Grams, test.ShouldAlmostEqual, want, 1e-9)
		test.That(t, it.Grams, test.ShouldBeGreaterThanOrEqualTo, MinGrams)
	}
	test.That(t, out[0].Grams, test.ShouldAlmostEqual, 30.0, 1e-9)
	test.That(t, out[1].Grams, test.ShouldAlmostEqual, 105.0, 1e-9)
	test.That(t, out[2].Grams, test.ShouldAlmostEqual, 100.0, 1e-9)
}

func TestEstimateStrictPolicy(t *testing.T) {
	dm := mustDepthMap(t, flatRows(4, 4, 0.6))
	in := &CameraIntrinsics{Fx: 500, Fy: 500}
	_, err := NewEstimator(WithPolicy(StrictPolicy())).EstimateWithDepth(dm, in, items("salad"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, apperr.HTTPStatus(err), test.ShouldEqual, 422)
}

func TestEstimateFallbacks(t *testing.T) {
	e := NewEstimator()
	in := &CameraIntrinsics{Fx: 500, Fy: 500}

	out, err := e.EstimateWithDepth(&DepthMap{}, in, items("salad", "pasta"))
	test.That(t, err, test.ShouldBeNil)
	for _, it := range out {
		test.That(t, it.Grams, test.ShouldEqual, FallbackGrams)
	}

	out, err = e.EstimateWithDepth(mustDepthMap(t, flatRows(2, 2, 0.5)), nil, items("salad"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out[0].Grams, test.ShouldEqual, FallbackGrams)

	_, err = e.EstimateWithDepth(mustDepthMap(t, flatRows(2, 2, 0.5)), &CameraIntrinsics{Fx: 0, Fy: 1}, items("salad"))
	test.That(t, apperr.IsMalformed(err), test.ShouldBeTrue)

	none, err := e.EstimateWithDepth(mustDepthMap(t, flatRows(2, 2, 0.5)), in, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, none, test.ShouldBeEmpty)
}

func TestEstimateWithoutDepth(t *testing.T) {
	in := []models.RecognizedItem{
		{ID: "1", Name: "salmon", Confidence: 1},
		{ID: "2", Name: "", Confidence: 0},
		{ID: "3", Name: "pasta", Confidence: 0.3},
	}
	out := NewEstimator().EstimateWithoutDepth(in)
	test.That(t, out, test.ShouldHaveLength, 3)
	for i, it := range out {
		test.That(t, it.Grams, test.ShouldEqual, 150.0)
		test.That(t, it.RecognizedItem, test.ShouldResemble, in[i])
	}
}

type leftColumn struct{}

func (leftColumn) Partition(h, w, n int) ([]*Mask, error) {
	out := make([]*Mask, n)
	for i := range out {
		out[i] = NewMask(h, w)
	}
	for r := 0; r < h; r++ {
		out[0].Set(r, 0, true)
	}
	return out, nil
}

func TestCustomPartitioner(t *testing.T) {
	rows := flatRows(4, 4, 0.5)
	rows[1][0] = 0.4
	in := &CameraIntrinsics{Fx: 1, Fy: 1}

	out, err := NewEstimator(WithPartitioner(leftColumn{})).EstimateWithDepth(mustDepthMap(t, rows), in, items("x", "y"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out[0].Grams, test.ShouldAlmostEqual, 0.1*0.16*1e6, 1e-6)
	test.That(t, out[1].Grams, test.ShouldAlmostEqual, 100.0, 1e-9)
}

func TestDensityTable(t *testing.T) {
	d := DefaultDensities()
	test.That(t, d.Lookup("White Rice"), test.ShouldEqual, 0.85)
	test.That(t, d.Lookup("lasagna"), test.ShouldEqual, DefaultDensity)

	custom := NewDensityTable(map[string]float64{"Soup": 1.02}, 0)
	test.That(t, custom.Lookup("soup"), test.ShouldEqual, 1.02)
	test.That(t, custom.Lookup("bread"), test.ShouldEqual, DefaultDensity)
}

func TestPolicyByName(t *testing.T) {
	test.That(t, PolicyByName("STRICT").Strict, test.ShouldBeTrue)
	test.That(t, PolicyByName("").Strict, test.ShouldBeFalse)
	test.That(t, PolicyByName("anything"), test.ShouldResemble, DefaultPolicy())
	test.That(t, NewEstimator(WithPolicy(PolicyByName("strict"))).Policy().Name, test.ShouldEqual, "strict")
	test.That(t, NewEstimator().Policy().Name, test.ShouldEqual, "fallback")
}
