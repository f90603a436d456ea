// internal/server/tools.go
package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"

	"meal-estimator/internal/analysis"
	"meal-estimator/internal/apperr"
	"meal-estimator/internal/depth"
	"meal-estimator/internal/models"
)

const defaultEstimateLimit = 20

type AnalyzeMealParams struct {
	Image          []byte   `json:"image" description:"Base64-encoded meal photo"`
	ImageHash      string   `json:"image_hash,omitempty" description:"Client hash of the photo (defaults to its SHA-256)"`
	Mode           string   `json:"mode,omitempty" description:"quick_photo, depth or multi_angle"`
	Width          int      `json:"width,omitempty" description:"Depth plane width in pixels"`
	Height         int      `json:"height,omitempty" description:"Depth plane height in pixels"`
	DepthPNG16     []byte   `json:"depth_png16,omitempty" description:"Base64-encoded 16-bit depth PNG"`
	DepthF32       []byte   `json:"depth_f32,omitempty" description:"Base64-encoded gzip float32 depth plane"`
	DepthEncoding  string   `json:"depth_encoding,omitempty" description:"Encoding of depth_f32 (f32_gzip)"`
	IntrinsicsJSON string   `json:"intrinsics_json,omitempty" description:"Camera intrinsics as JSON {fx, fy, cx, cy}"`
	ExtraImages    [][]byte `json:"extra_images,omitempty" description:"Base64-encoded additional angles"`
}

type GetEstimatesParams struct {
	ImageHash string `json:"image_hash,omitempty" description:"Return only the latest estimate for this hash"`
	Limit     int    `json:"limit,omitempty" description:"Maximum number of estimates to return"`
}

type ConfirmCorrectionsParams struct {
	ImageHash string              `json:"image_hash" description:"Hash of the analyzed photo"`
	Items     []models.Correction `json:"items" description:"User-confirmed item portions"`
}

type toolHandler func(*protocol.CallToolRequest, *http.Request) (*protocol.CallToolResult, error)

func (s *EstimatorServer) tools() map[string]toolHandler {
	return map[string]toolHandler{
		"analyze_meal":        s.handleAnalyzeMealTool,
		"get_estimates":       s.handleGetEstimates,
		"confirm_corrections": s.handleConfirmCorrectionsTool,
	}
}

// handleMCP serves tool calls posted as a bare CallToolRequest.
func (s *EstimatorServer) handleMCP(w http.ResponseWriter, r *http.Request) {
	var request protocol.CallToolRequest
	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&request); err != nil {
		s.writeError(w, apperr.Malformedf("invalid JSON: %v", err))
		return
	}

	handler, ok := s.tools()[request.Name]
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("unknown tool: %s", request.Name)})
		return
	}

	result, err := handler(&request, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// extractParams safely extracts parameters from the request arguments
func extractParams(req *protocol.CallToolRequest, target interface{}) error {
	// Convert the Arguments map to JSON bytes, then unmarshal to target
	jsonBytes, err := json.Marshal(req.Arguments)
	if err != nil {
		return apperr.Malformedf("failed to marshal arguments: %v", err)
	}

	if err := json.Unmarshal(jsonBytes, target); err != nil {
		return apperr.Malformedf("failed to unmarshal parameters: %v", err)
	}

	return nil
}

func (s *EstimatorServer) handleAnalyzeMealTool(req *protocol.CallToolRequest, r *http.Request) (*protocol.CallToolResult, error) {
	var params AnalyzeMealParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	est, err := s.analysis.Analyze(r.Context(), analysis.Request{
		ImageHash: params.ImageHash,
		Mode:      models.Mode(params.Mode),
		Image:     params.Image,
		Extra:     params.ExtraImages,
		Depth: depth.Payload{
			PNG16:    params.DepthPNG16,
			F32:      params.DepthF32,
			Encoding: params.DepthEncoding,
			Width:    params.Width,
			Height:   params.Height,
		},
		IntrinsicsJSON: params.IntrinsicsJSON,
	})
	if err != nil {
		return nil, err
	}
	return s.createJSONResponse(est)
}

func (s *EstimatorServer) handleGetEstimates(req *protocol.CallToolRequest, _ *http.Request) (*protocol.CallToolResult, error) {
	var params GetEstimatesParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	if params.ImageHash != "" {
		stored, err := s.storage.GetEstimate(params.ImageHash)
		if err != nil {
			return nil, err
		}
		return s.createJSONResponse(stored)
	}

	// Set defaults
	if params.Limit <= 0 {
		params.Limit = defaultEstimateLimit
	}

	estimates, err := s.storage.GetEstimates(params.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve estimates: %w", err)
	}
	if estimates == nil {
		estimates = []*models.StoredEstimate{}
	}
	return s.createJSONResponse(estimates)
}

func (s *EstimatorServer) handleConfirmCorrectionsTool(req *protocol.CallToolRequest, _ *http.Request) (*protocol.CallToolResult, error) {
	var params ConfirmCorrectionsParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	return s.createJSONResponse(s.analysis.ConfirmCorrections(params.ImageHash, params.Items))
}

func (s *EstimatorServer) createJSONResponse(data interface{}) (*protocol.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}

	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: string(jsonBytes),
			},
		},
	}, nil
}
