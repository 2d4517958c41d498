package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// scrape renders the collector's registry through its HTTP handler.
func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	recorder := httptest.NewRecorder()
	c.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("metrics endpoint status = %d, want 200", recorder.Code)
	}
	return recorder.Body.String()
}

func TestCollector_RecordsRequests(t *testing.T) {
	c := New()
	c.RecordRequest(http.MethodGet, "/api/v1/states", http.StatusOK, 25*time.Millisecond)
	c.RecordRequest(http.MethodGet, "/api/v1/states", http.StatusOK, 30*time.Millisecond)

	body := scrape(t, c)
	if !strings.Contains(body, `habridge_http_requests_total{method="GET",path="/api/v1/states",status="200"} 2`) {
		t.Errorf("request counter missing from exposition:\n%s", body)
	}
	if !strings.Contains(body, "habridge_http_request_duration_seconds_count") {
		t.Errorf("request duration histogram missing from exposition")
	}
}

func TestCollector_CacheAndFeedMetrics(t *testing.T) {
	c := New()
	c.RecordCacheHit("states")
	c.RecordCacheHit("states")
	c.RecordCacheMiss("services")
	c.SetCacheSize("states", 42)
	c.FeedConnected(true)
	c.CacheAction("update")
	c.RecordRateLimitHit()
	c.RecordHubError("fetch_state")

	body := scrape(t, c)
	checks := []string{
		`habridge_cache_hits_total{namespace="states"} 2`,
		`habridge_cache_misses_total{namespace="services"} 1`,
		`habridge_cache_entries{namespace="states"} 42`,
		`habridge_feed_connected 1`,
		`habridge_feed_cache_actions_total{action="update"} 1`,
		`habridge_http_rate_limit_hits_total 1`,
		`habridge_hub_errors_total{operation="fetch_state"} 1`,
	}
	for _, want := range checks {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}

	c.FeedConnected(false)
	if !strings.Contains(scrape(t, c), "habridge_feed_connected 0") {
		t.Error("feed gauge did not drop to 0")
	}
}
