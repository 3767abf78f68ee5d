package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var pathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Absolute path to the image file",
}

// pipelineProperties returns the per-call overrides shared by the image
// tools, merged with extra.
func pipelineProperties(extra map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{
		"path": pathProperty,
		"methods": map[string]interface{}{
			"type":        "array",
			"items":       map[string]interface{}{"type": "string"},
			"description": "Binarization methods to run: otsu, otsu_clean, otsu_original, adaptive, equalized, median, lightness, fixed. Default: all",
		},
		"perspective_tolerant": map[string]interface{}{
			"type":        "boolean",
			"description": "Sample ratio profiles every 15° instead of 0/45/90/135. Default from server config",
		},
		"proximity_merge_radius": map[string]interface{}{
			"type":        "number",
			"description": "Merge candidates closer than this many pixels. Default 35",
		},
		"confidence_threshold": map[string]interface{}{
			"type":        "number",
			"description": "Minimum candidate confidence (0-1). Default 0.5",
		},
	}
	for k, v := range extra {
		props[k] = v
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "finder_locate",
			Description: "Locate the three finder markers of a sign in an image, infer the fourth corner and classify the sign's orientation. Returns labelled corners, sides, diagonals, area, angles, aspect ratio, validity and rotation, or a status explaining why the sign could not be located.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": pipelineProperties(nil),
				"required":   []string{"path"},
			},
		},
		{
			Name:        "finder_candidates",
			Description: "List every marker candidate extracted from the binarization ensemble with its shape measurements, the screen tests it failed and, if it passed, its finder-ratio scores. Use this to diagnose why finder_locate missed a marker.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": pipelineProperties(map[string]interface{}{
					"only_passing": map[string]interface{}{
						"type":        "boolean",
						"description": "Only return candidates that passed the shape screen. Default false",
						"default":     false,
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "finder_reconstruct",
			Description: "Assign roles to exactly three marker centres and reconstruct the sign rectangle and orientation without reading an image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"points": map[string]interface{}{
						"type":        "array",
						"description": "Exactly three marker centres",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"x":          map[string]interface{}{"type": "number"},
								"y":          map[string]interface{}{"type": "number"},
								"confidence": map[string]interface{}{"type": "number"},
							},
							"required": []string{"x", "y"},
						},
					},
				},
				"required": []string{"points"},
			},
		},
		{
			Name:        "finder_binarize",
			Description: "Run one binarization method of the ensemble and return the bitmap as base64-encoded PNG (dark = potential marker).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"method": map[string]interface{}{
						"type":        "string",
						"description": "Method name, e.g. otsu, median, adaptive_31. Default otsu",
						"default":     "otsu",
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor (e.g., 0.5 to halve size). Default 1.0",
						"default":     1.0,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "finder_config",
			Description: "Return the server's effective pipeline configuration.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
