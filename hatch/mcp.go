// CLAUDE:SUMMARY MCP surface: report, recommendation, trip, and source-listing tools.
package hatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/riverbind/hatchwatch/internal/trip"
)

// RegisterMCP registers all hatchwatch tools on an MCP server.
//
// Uses the SDK's low-level ToolHandler: arguments arrive as json.RawMessage
// in req.Params.Arguments, InputSchema must be a JSON object schema, and
// tool errors go through result.SetError with a nil handler error.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerGetRecommendations(srv)
	s.registerGetReport(srv)
	s.registerTripRecommendations(srv)
	s.registerListSources(srv)
}

func inputSchema(properties map[string]any, required []string) json.RawMessage {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	data, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("hatch: marshal input schema: %v", err))
	}
	return data
}

// addTool wires decode -> run -> encode around one endpoint. Endpoint errors
// become tool errors, never protocol errors.
func addTool[Req any](srv *mcp.Server, tool *mcp.Tool, run func(ctx context.Context, req *Req) (any, error)) {
	srv.AddTool(tool, func(ctx context.Context, r *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req Req
		if r.Params.Arguments != nil {
			if err := json.Unmarshal(r.Params.Arguments, &req); err != nil {
				var res mcp.CallToolResult
				res.SetError(fmt.Errorf("%s: invalid arguments: %w", tool.Name, err))
				return &res, nil
			}
		}
		out, err := run(ctx, &req)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("%s: %w", tool.Name, err))
			return &res, nil
		}
		data, err := json.Marshal(out)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("%s: encode result: %w", tool.Name, err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

func (s *Service) registerGetRecommendations(srv *mcp.Server) {
	type req struct {
		WaterBodyID  string `json:"water_body_id"`
		ForceRefresh bool   `json:"force_refresh"`
	}
	tool := &mcp.Tool{
		Name:        "hatch_get_recommendations",
		Description: "Get today's fly recommendations for a water body, grounded in current fly-shop fishing reports",
		InputSchema: inputSchema(map[string]any{
			"water_body_id": map[string]any{"type": "string", "description": "Water body ID"},
			"force_refresh": map[string]any{"type": "boolean", "description": "Skip the recommendation cache"},
		}, []string{"water_body_id"}),
	}
	addTool(srv, tool, func(ctx context.Context, r *req) (any, error) {
		set, err := s.Recommendations(ctx, r.WaterBodyID, r.ForceRefresh)
		if err != nil {
			return nil, err
		}
		return RecommendationResponse{
			Recommendations:   set.Recommendations,
			ConditionsSummary: set.ConditionsSummary,
			FishingReport:     set.Report,
		}, nil
	})
}

func (s *Service) registerGetReport(srv *mcp.Server) {
	type req struct {
		WaterBodyID   string `json:"water_body_id"`
		WaterBodyName string `json:"water_body_name"`
		ForceRefresh  bool   `json:"force_refresh"`
	}
	tool := &mcp.Tool{
		Name:        "hatch_get_report",
		Description: "Get the current aggregated fishing report for a water body, scraping fly-shop sources on a cache miss",
		InputSchema: inputSchema(map[string]any{
			"water_body_id":   map[string]any{"type": "string", "description": "Water body ID"},
			"water_body_name": map[string]any{"type": "string", "description": "Water body name, used when no ID is given"},
			"force_refresh":   map[string]any{"type": "boolean", "description": "Skip the report cache"},
		}, nil),
	}
	addTool(srv, tool, func(ctx context.Context, r *req) (any, error) {
		return s.WaterReport(ctx, r.WaterBodyID, r.WaterBodyName, r.ForceRefresh)
	})
}

func (s *Service) registerTripRecommendations(srv *mcp.Server) {
	type req struct {
		Waters []trip.Water `json:"waters"`
	}
	tool := &mcp.Tool{
		Name:        "hatch_trip_recommendations",
		Description: "Merge fly recommendations across every water of a trip, ranked by how many waters recommend each fly",
		InputSchema: inputSchema(map[string]any{
			"waters": map[string]any{
				"type":        "array",
				"description": "Waters on the trip",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":   map[string]any{"type": "string"},
						"name": map[string]any{"type": "string"},
					},
				},
			},
		}, []string{"waters"}),
	}
	addTool(srv, tool, func(ctx context.Context, r *req) (any, error) {
		recs, err := s.TripRecommendations(ctx, r.Waters, nil)
		if err != nil {
			return nil, err
		}
		return map[string]any{"recommendations": recs}, nil
	})
}

func (s *Service) registerListSources(srv *mcp.Server) {
	type req struct{}
	tool := &mcp.Tool{
		Name:        "hatch_list_sources",
		Description: "List registered fly-shop sources, including suspended ones and their failure counts",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	addTool(srv, tool, func(ctx context.Context, _ *req) (any, error) {
		sources, err := s.ListSources(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"sources": sources}, nil
	})
}
