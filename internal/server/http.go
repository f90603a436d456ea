// internal/server/http.go
package server

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"meal-estimator/internal/analysis"
	"meal-estimator/internal/apperr"
	"meal-estimator/internal/depth"
	"meal-estimator/internal/models"
)

const maxUploadBytes = 64 << 20

// handleAnalyzeMeal accepts the multipart upload sent by the capture apps.
func (s *EstimatorServer) handleAnalyzeMeal(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := r.ParseMultipartForm(s.maxBodyBytes); err != nil {
		s.writeError(w, apperr.Malformedf("multipart form: %v", err))
		return
	}

	req, err := analysisRequest(r.MultipartForm)
	if err != nil {
		s.writeError(w, err)
		return
	}

	est, err := s.analysis.Analyze(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, est)
}

func analysisRequest(form *multipart.Form) (analysis.Request, error) {
	image, err := formFile(form, "image")
	if err != nil {
		return analysis.Request{}, err
	}
	if image == nil {
		return analysis.Request{}, apperr.Malformedf("image is required")
	}
	width, err := formInt(form, "width")
	if err != nil {
		return analysis.Request{}, err
	}
	height, err := formInt(form, "height")
	if err != nil {
		return analysis.Request{}, err
	}
	png16, err := formFile(form, "depth_png16")
	if err != nil {
		return analysis.Request{}, err
	}
	f32, err := formFile(form, "depth_f32")
	if err != nil {
		return analysis.Request{}, err
	}

	var extra [][]byte
	for _, fh := range form.File["extra_images"] {
		data, err := readPart(fh)
		if err != nil {
			return analysis.Request{}, err
		}
		extra = append(extra, data)
	}

	return analysis.Request{
		ImageHash: formValue(form, "image_hash"),
		Mode:      models.Mode(formValue(form, "mode")),
		Image:     image,
		Extra:     extra,
		Depth: depth.Payload{
			PNG16:    png16,
			F32:      f32,
			Encoding: formValue(form, "depth_encoding"),
			Width:    width,
			Height:   height,
		},
		IntrinsicsJSON: formValue(form, "intrinsics_json"),
	}, nil
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

func formInt(form *multipart.Form, key string) (int, error) {
	v := formValue(form, key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Malformedf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

// formFile returns the first upload under key, or nil when there is none.
func formFile(form *multipart.Form, key string) ([]byte, error) {
	files := form.File[key]
	if len(files) == 0 {
		return nil, nil
	}
	return readPart(files[0])
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "open upload %s", fh.Filename)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read upload %s", fh.Filename)
	}
	return data, nil
}

// handleConfirmCorrections takes {"image_hash": ..., "items": [...]}. Items are
// counted and decoded leniently.
func (s *EstimatorServer) handleConfirmCorrections(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		s.writeError(w, apperr.Malformedf("read body: %v", err))
		return
	}
	if !gjson.ValidBytes(body) {
		s.writeError(w, apperr.Malformedf("body is not valid JSON"))
		return
	}
	payload := gjson.ParseBytes(body)
	if !payload.IsObject() {
		s.writeError(w, apperr.Malformedf("body must be a JSON object"))
		return
	}

	hash := payload.Get("image_hash").String()
	corrections := parseCorrections(payload.Get("items"))
	s.writeJSON(w, http.StatusOK, s.analysis.ConfirmCorrections(hash, corrections))
}

func parseCorrections(items gjson.Result) []models.Correction {
	if !items.IsArray() {
		return nil
	}
	list := items.Array()
	out := make([]models.Correction, 0, len(list))
	for _, item := range list {
		out = append(out, models.Correction{
			ID:    item.Get("id").String(),
			Grams: item.Get("grams").Float(),
			Unit:  item.Get("unit").String(),
		})
	}
	return out
}
