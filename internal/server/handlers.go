package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ironsheep/sign-finder-mcp/internal/config"
	"github.com/ironsheep/sign-finder-mcp/internal/finder"
	"github.com/ironsheep/sign-finder-mcp/internal/geometry"
	"github.com/ironsheep/sign-finder-mcp/internal/imaging"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "finder_locate").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		logger().Warn().Err(err).Str("tool", params.Name).Msg("tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Overlays per-call options on the server configuration
//  3. Loads images from cache as needed
//  4. Calls the appropriate finder/geometry/imaging function
//  5. Returns the result or error
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "finder_locate":
		return s.handleLocate(ctx, args)
	case "finder_candidates":
		return s.handleCandidates(ctx, args)
	case "finder_reconstruct":
		return s.handleReconstruct(args)
	case "finder_binarize":
		return s.handleBinarize(args)
	case "finder_config":
		return s.cfg, nil
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// pipelineOptions are the per-call overrides accepted by the image tools.
type pipelineOptions struct {
	Methods              []string `json:"methods,omitempty"`
	PerspectiveTolerant  *bool    `json:"perspective_tolerant,omitempty"`
	ProximityMergeRadius *float64 `json:"proximity_merge_radius,omitempty"`
	ConfidenceThreshold  *float64 `json:"confidence_threshold,omitempty"`
}

// apply overlays the options on base and validates the result.
func (o pipelineOptions) apply(base config.Config) (config.Config, error) {
	cfg := base
	if len(o.Methods) > 0 {
		cfg.Methods = o.Methods
	}
	if o.PerspectiveTolerant != nil {
		cfg.PerspectiveTolerant = *o.PerspectiveTolerant
	}
	if o.ProximityMergeRadius != nil {
		cfg.ProximityMergeRadius = *o.ProximityMergeRadius
	}
	if o.ConfidenceThreshold != nil {
		cfg.ConfidenceThreshold = *o.ConfidenceThreshold
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid options: %w", err)
	}
	return cfg, nil
}

// === Pipeline Handlers ===

type locateArgs struct {
	Path string `json:"path"`
	pipelineOptions
}

func (s *Server) handleLocate(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a locateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	cfg, err := a.apply(s.cfg)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return finder.Locate(ctx, img, cfg)
}

type candidatesArgs struct {
	Path        string `json:"path"`
	OnlyPassing bool   `json:"only_passing"`
	pipelineOptions
}

type candidatesResult struct {
	Total      int                      `json:"total"`
	Passing    int                      `json:"passing"`
	Accepted   int                      `json:"accepted"`
	Candidates []finder.CandidateReport `json:"candidates"`
}

func (s *Server) handleCandidates(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a candidatesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	cfg, err := a.apply(s.cfg)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	reports, err := finder.Inspect(ctx, img, cfg)
	if err != nil {
		return nil, err
	}

	res := candidatesResult{Total: len(reports), Candidates: make([]finder.CandidateReport, 0, len(reports))}
	for _, r := range reports {
		if r.Scores != nil {
			res.Passing++
			if r.Scores.Accepted {
				res.Accepted++
			}
		}
		if a.OnlyPassing && r.Scores == nil {
			continue
		}
		res.Candidates = append(res.Candidates, r)
	}
	return res, nil
}

type reconstructArgs struct {
	Points []geometry.Marker `json:"points"`
}

type reconstructResult struct {
	Status finder.Status `json:"status"`
	*geometry.Reconstruction
	Error      string                            `json:"error,omitempty"`
	Degenerate *geometry.DegenerateGeometryError `json:"degenerate,omitempty"`
}

func (s *Server) handleReconstruct(args json.RawMessage) (interface{}, error) {
	var a reconstructArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	rebuilt, err := geometry.Reconstruct(a.Points, s.cfg)
	var insufficient *geometry.InsufficientDetectionsError
	var degenerate *geometry.DegenerateGeometryError
	switch {
	case err == nil:
		return reconstructResult{Status: finder.StatusLocated, Reconstruction: rebuilt}, nil
	case errors.As(err, &insufficient):
		return reconstructResult{Status: finder.StatusInsufficientDetections, Error: err.Error()}, nil
	case errors.As(err, &degenerate):
		return reconstructResult{Status: finder.StatusDegenerateGeometry, Error: err.Error(), Degenerate: degenerate}, nil
	default:
		return nil, err
	}
}

type binarizeArgs struct {
	Path   string  `json:"path"`
	Method string  `json:"method"`
	Scale  float64 `json:"scale"`
}

type binarizeResult struct {
	Method string `json:"method"`
	*imaging.EncodedImage
}

func (s *Server) handleBinarize(args json.RawMessage) (interface{}, error) {
	var a binarizeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Method == "" {
		a.Method = config.MethodOtsu
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	bm, err := imaging.BinarizeMethod(img, a.Method, s.cfg)
	if err != nil {
		return nil, err
	}
	enc, err := imaging.EncodePNG(bm.Image, a.Scale)
	if err != nil {
		return nil, err
	}
	return binarizeResult{Method: bm.Method, EncodedImage: enc}, nil
}
