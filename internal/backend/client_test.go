package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"papeterie/internal/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func testConfig() config.Config {
	cfg, _ := config.Load()
	cfg.BackendToken = "test"
	cfg.BackendBaseURL = "https://example.test/api/v1"
	cfg.BackendRateLimitRPS = 1000
	return cfg
}

func TestGetJSONRetriesTransientStatus(t *testing.T) {
	attempt := 0

	client := NewClient(testConfig())
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.URL.Path != "/api/v1/suppliers" {
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer test" {
				t.Fatalf("unexpected auth header %q", got)
			}
			attempt++
			if attempt == 1 {
				return &http.Response{
					StatusCode: http.StatusServiceUnavailable,
					Body:       io.NopCloser(strings.NewReader(`{"error":"boom"}`)),
					Header:     make(http.Header),
				}, nil
			}

			payload := map[string]any{"success": true, "data": []map[string]any{{"id": 1, "name": "Clairefontaine"}}}
			blob, _ := json.Marshal(payload)
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(string(blob))),
				Header:     make(http.Header),
			}, nil
		}),
	}

	data, err := client.GetJSON(context.Background(), "suppliers", nil)
	if err != nil {
		t.Fatal(err)
	}
	if attempt != 2 {
		t.Fatalf("attempts=%d", attempt)
	}
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows=%d", len(rows))
	}
}

func TestInvokePostsPayload(t *testing.T) {
	client := NewClient(testConfig())
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.Method != http.MethodPost {
				t.Fatalf("method=%s", r.Method)
			}
			if r.URL.Path != "/api/v1/functions/import-supplier-pricing" {
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
			body, _ := io.ReadAll(r.Body)
			var sent map[string]any
			if err := json.Unmarshal(body, &sent); err != nil {
				t.Fatal(err)
			}
			if sent["supplierId"] != float64(7) {
				t.Fatalf("payload=%v", sent)
			}

			payload := map[string]any{"success": true, "data": map[string]any{"success": 1, "errors": 0, "unmatched": 0, "total": 1}}
			blob, _ := json.Marshal(payload)
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(string(blob))),
				Header:     make(http.Header),
			}, nil
		}),
	}

	data, err := client.Invoke(context.Background(), "import-supplier-pricing", map[string]any{"supplierId": 7})
	if err != nil {
		t.Fatal(err)
	}
	var report map[string]int
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatal(err)
	}
	if report["total"] != 1 {
		t.Fatalf("report=%v", report)
	}
}

func TestGetJSONMissingToken(t *testing.T) {
	cfg := testConfig()
	cfg.BackendToken = ""
	client := NewClient(cfg)
	if _, err := client.GetJSON(context.Background(), "suppliers", nil); err == nil {
		t.Fatalf("expected error for missing token")
	}
}
