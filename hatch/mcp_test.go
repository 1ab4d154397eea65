package hatch

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var testMCPImpl = &mcp.Implementation{Name: "hatchwatch-test", Version: "0.1.0"}

func mcpSession(t *testing.T, svc *Service) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(testMCPImpl, nil)
	svc.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func mcpCallTool(t *testing.T, session *mcp.ClientSession, name string, args any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if err := result.GetError(); err != nil {
		t.Fatalf("CallTool(%s) tool error: %v", name, err)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent", name)
	}
	return tc.Text
}

func TestMCP_ListSources(t *testing.T) {
	svc := newTestService(t, &routeOracle{})
	seedWater(t, svc, "Blue River")
	seedSource(t, svc, "Blue Quill Angler", "https://bluequill.example/reports", "Blue River")
	session := mcpSession(t, svc)

	text := mcpCallTool(t, session, "hatch_list_sources", map[string]any{})
	var resp struct {
		Sources []ShopSource `json:"sources"`
	}
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].Name != "Blue Quill Angler" {
		t.Errorf("sources: %v", resp.Sources)
	}
}

func TestMCP_GetReport(t *testing.T) {
	site := shopSite(t)
	fo := &routeOracle{
		extractFn: func(string) (string, error) {
			return extractionReply("August 28, 2026", "Zebra Midge", "RS2"), nil
		},
	}
	svc := newTestService(t, fo)
	water := seedWater(t, svc, "South Platte River")
	seedSource(t, svc, "Shop One", site.URL+"/shop-one/reports", water.Name)
	session := mcpSession(t, svc)

	text := mcpCallTool(t, session, "hatch_get_report", map[string]any{
		"water_body_name": water.Name,
	})
	var res ReportResult
	if err := json.Unmarshal([]byte(text), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if res.Report == nil || len(res.Report.Flies) != 2 {
		t.Errorf("report: %+v", res.Report)
	}
}

func TestMCP_GetRecommendations(t *testing.T) {
	fo := &routeOracle{
		recommendReply: recommendationReply,
		discoveryErr:   errors.New("no shop known"),
	}
	svc := newTestService(t, fo)
	water := seedWater(t, svc, "Frying Pan River")
	session := mcpSession(t, svc)

	text := mcpCallTool(t, session, "hatch_get_recommendations", map[string]any{
		"water_body_id": water.ID,
	})
	var res RecommendationResponse
	if err := json.Unmarshal([]byte(text), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(res.Recommendations) != 2 {
		t.Errorf("recommendations: %v", res.Recommendations)
	}
}

func TestMCP_ToolErrorForUnknownWater(t *testing.T) {
	// WHAT: Endpoint failures surface as tool errors, not protocol errors.
	svc := newTestService(t, &routeOracle{})
	session := mcpSession(t, svc)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "hatch_get_recommendations",
		Arguments: map[string]any{"water_body_id": "nope"},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	// GetError always returns nil on clients; the tool error is only
	// visible as IsError plus the error text in Content.
	if !result.IsError {
		t.Fatal("expected tool error")
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatal("expected TextContent")
	}
	if !strings.Contains(tc.Text, "not found") {
		t.Errorf("tool error: %v", tc.Text)
	}
}

func TestMCP_TripRecommendations(t *testing.T) {
	fo := &routeOracle{
		recommendReply: recommendationReply,
		discoveryErr:   errors.New("no shop known"),
	}
	svc := newTestService(t, fo)
	w1 := seedWater(t, svc, "Blue River")
	w2 := seedWater(t, svc, "Eagle River")
	session := mcpSession(t, svc)

	text := mcpCallTool(t, session, "hatch_trip_recommendations", map[string]any{
		"waters": []map[string]string{{"id": w1.ID}, {"id": w2.ID}},
	})
	var res struct {
		Recommendations []TripRecommendation `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(text), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(res.Recommendations) != 2 {
		t.Errorf("recommendations: %v", res.Recommendations)
	}
}
