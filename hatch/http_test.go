package hatch

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func apiServer(t *testing.T, svc *Service) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	svc.RegisterHTTP(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHTTP_Health(t *testing.T) {
	srv := apiServer(t, newTestService(t, &routeOracle{}))
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: %d", resp.StatusCode)
	}
}

func TestHTTP_Reports(t *testing.T) {
	// WHAT: POST /api/v1/reports by water name returns the aggregated
	// report with cache provenance.
	site := shopSite(t)
	fo := &routeOracle{
		extractFn: func(string) (string, error) {
			return extractionReply("August 28, 2026", "Zebra Midge", "RS2"), nil
		},
	}
	svc := newTestService(t, fo)
	water := seedWater(t, svc, "South Platte River")
	seedSource(t, svc, "Shop One", site.URL+"/shop-one/reports", water.Name)
	srv := apiServer(t, svc)

	resp := postJSON(t, srv.URL+"/api/v1/reports", ReportRequest{WaterBodyName: water.Name})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	var res ReportResult
	decodeBody(t, resp, &res)
	if res.Report == nil || res.Report.SourceName != "Shop One" {
		t.Errorf("report: %+v", res.Report)
	}
	if res.FromCache || res.SourcesCount != 1 || res.CacheExpires == "" {
		t.Errorf("provenance: %+v", res)
	}
}

func TestHTTP_Reports_NoSourcesIsInformational(t *testing.T) {
	// WHY: An empty result is a message, not an error status.
	fo := &routeOracle{discoveryErr: errors.New("no shop known")}
	svc := newTestService(t, fo)
	water := seedWater(t, svc, "Unknown Creek")
	srv := apiServer(t, svc)

	resp := postJSON(t, srv.URL+"/api/v1/reports", ReportRequest{WaterBodyID: water.ID})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	var res struct {
		Report  *json.RawMessage `json:"report"`
		Message string           `json:"message"`
	}
	decodeBody(t, resp, &res)
	if res.Report != nil && string(*res.Report) != "null" {
		t.Errorf("report: %s", *res.Report)
	}
	if res.Message == "" {
		t.Error("expected an explanatory message")
	}
}

func TestHTTP_Reports_Validation(t *testing.T) {
	srv := apiServer(t, newTestService(t, &routeOracle{}))
	resp := postJSON(t, srv.URL+"/api/v1/reports", map[string]any{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: %d", resp.StatusCode)
	}
}

func TestHTTP_Recommendations(t *testing.T) {
	fo := &routeOracle{
		recommendReply: recommendationReply,
		discoveryErr:   errors.New("no shop known"),
	}
	svc := newTestService(t, fo)
	water := seedWater(t, svc, "Frying Pan River")
	srv := apiServer(t, svc)

	resp := postJSON(t, srv.URL+"/api/v1/recommendations", RecommendationRequest{WaterBodyID: water.ID})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	var res RecommendationResponse
	decodeBody(t, resp, &res)
	if len(res.Recommendations) != 2 || res.ConditionsSummary != "Low and clear." {
		t.Errorf("response: %+v", res)
	}

	// Unknown water maps to 404.
	resp = postJSON(t, srv.URL+"/api/v1/recommendations", RecommendationRequest{WaterBodyID: "nope"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown water status: %d", resp.StatusCode)
	}
}

func TestHTTP_TripStream(t *testing.T) {
	// WHAT: The trip endpoint streams NDJSON: one progress line per water,
	// then a terminal recommendations line.
	fo := &routeOracle{
		recommendReply: recommendationReply,
		discoveryErr:   errors.New("no shop known"),
	}
	svc := newTestService(t, fo)
	w1 := seedWater(t, svc, "Blue River")
	w2 := seedWater(t, svc, "Eagle River")
	srv := apiServer(t, svc)

	resp := postJSON(t, srv.URL+"/api/v1/trips/recommendations", TripRequest{
		Waters: []TripWater{{ID: w1.ID}, {ID: w2.ID}},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("content type: %q", ct)
	}

	var lines []map[string]json.RawMessage
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == "" {
			continue
		}
		var line map[string]json.RawMessage
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			t.Fatalf("bad NDJSON line %q: %v", scanner.Text(), err)
		}
		lines = append(lines, line)
	}
	if len(lines) != 3 {
		t.Fatalf("lines: %d, want 2 progress + 1 terminal", len(lines))
	}
	for i := 0; i < 2; i++ {
		if _, ok := lines[i]["done"]; !ok {
			t.Errorf("line %d is not a progress event: %v", i, lines[i])
		}
	}
	var recs []TripRecommendation
	if err := json.Unmarshal(lines[2]["recommendations"], &recs); err != nil {
		t.Fatalf("terminal line: %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("recommendations: %v", recs)
	}
}

func TestHTTP_TripStream_AllFailed(t *testing.T) {
	fo := &routeOracle{discoveryErr: errors.New("no shop known")}
	svc := newTestService(t, fo)
	srv := apiServer(t, svc)

	resp := postJSON(t, srv.URL+"/api/v1/trips/recommendations", TripRequest{
		Waters: []TripWater{{Name: "No Such River"}},
	})
	var lines []map[string]json.RawMessage
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		var line map[string]json.RawMessage
		if err := json.Unmarshal(scanner.Bytes(), &line); err == nil {
			lines = append(lines, line)
		}
	}
	last := lines[len(lines)-1]
	if _, ok := last["error"]; !ok {
		t.Errorf("terminal line: %v", last)
	}
}

func TestHTTP_WatersAndSources(t *testing.T) {
	// WHAT: Registry admin round-trip: create water, list, fetch by id;
	// add source, list, reset, delete.
	svc := newTestService(t, &routeOracle{})
	srv := apiServer(t, svc)

	resp := postJSON(t, srv.URL+"/api/v1/waters", map[string]any{
		"name": "Gunnison River", "state": "CO", "species": []string{"brown trout"},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create water status: %d", resp.StatusCode)
	}
	var water WaterBody
	decodeBody(t, resp, &water)
	if water.ID == "" {
		t.Fatal("water id not generated")
	}

	getResp, err := http.Get(srv.URL + "/api/v1/waters/" + water.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusOK {
		t.Errorf("get water status: %d", getResp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/api/v1/sources", map[string]any{
		"name": "Gunnison Flies", "reports_url": "https://gunnisonflies.example/reports",
		"waters": []string{"Gunnison River"},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create source status: %d", resp.StatusCode)
	}
	var src ShopSource
	decodeBody(t, resp, &src)

	resp = postJSON(t, fmt.Sprintf("%s/api/v1/sources/%s/reset", srv.URL, src.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("reset status: %d", resp.StatusCode)
	}

	req, _ := http.NewRequestWithContext(context.Background(), http.MethodDelete,
		fmt.Sprintf("%s/api/v1/sources/%s", srv.URL, src.ID), nil)
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer delResp.Body.Close()
	if delResp.StatusCode != http.StatusOK {
		t.Errorf("delete status: %d", delResp.StatusCode)
	}
	sources, _ := svc.ListSources(context.Background())
	if len(sources) != 0 {
		t.Errorf("sources after delete: %v", sources)
	}
}
