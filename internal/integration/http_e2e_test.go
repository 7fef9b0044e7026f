//go:build integration || !unit

package integration

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	server "aqi_relay/internal/adapters/http_server"
	"aqi_relay/internal/adapters/observability"
	redisad "aqi_relay/internal/adapters/redis"
	"aqi_relay/internal/adapters/waqi"
	"aqi_relay/internal/app"
	"aqi_relay/internal/domain"
)

// stub WAQI feed keyed by the decoded city segment
func stubWAQI(t *testing.T, token string, feeds map[string]string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		city := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/feed/"), "/")
		body, ok := feeds[city]
		if !ok {
			body = `{"status":"error","data":"Unknown station"}`
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestHTTP_EndToEnd_LookupStatsMetrics(t *testing.T) {
	up := stubWAQI(t, "e2e-token", map[string]string{
		"shanghai":  `{"status":"ok","data":{"aqi":42}}`,
		"São Paulo": `{"status":"ok","data":{"aqi":17}}`,
	})

	mr := miniredis.RunT(t)
	pop := redisad.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = pop.Close() })

	cl, err := waqi.New(up.URL, "e2e-token", time.Second)
	if err != nil {
		t.Fatalf("waqi.New: %v", err)
	}
	lookups := app.NewLookupService(cl, nil, pop)

	reg := observability.InitRegistry()
	srv := server.New(5 * time.Second)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{L: lookups})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	read := func(path string) (int, string) {
		res, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		defer res.Body.Close()
		b, _ := io.ReadAll(res.Body)
		return res.StatusCode, string(b)
	}

	if code, body := read("/aqi/shanghai"); code != 200 || body != `{"status":"ok","data":{"aqi":42}}` {
		t.Fatalf("shanghai: %d %s", code, body)
	}
	if code, body := read("/aqi/S%C3%A3o%20Paulo"); code != 200 || body != `{"status":"ok","data":{"aqi":17}}` {
		t.Fatalf("sao paulo: %d %s", code, body)
	}
	if code, body := read("/aqi/Shanghai"); code != 200 || !strings.Contains(body, "Unknown station") {
		t.Fatalf("case-sensitive upstream miss: %d %s", code, body)
	}
	if code, body := read("/aqi/nonexistent-city"); code != 200 || body != `{"status":"error","data":"Unknown station"}` {
		t.Fatalf("unknown: %d %s", code, body)
	}

	// only successful "ok" documents count; "Shanghai" was an upstream miss
	top, err := pop.Top(context.Background(), 10)
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	want := map[string]int64{"shanghai": 1, "são paulo": 1}
	if len(top) != len(want) {
		t.Fatalf("unexpected popular set: %+v", top)
	}
	for _, c := range top {
		if want[c.City] != c.Count {
			t.Fatalf("unexpected count for %s: %d", c.City, c.Count)
		}
	}

	code, body := read("/metrics")
	if code != 200 {
		t.Fatalf("metrics status %d", code)
	}
	for _, s := range []string{
		`aqi_http_requests_total{method="GET",route="/aqi/{city}",status="200"}`,
		`aqi_lookups_total{outcome="` + domain.OutcomeUpstreamError + `"}`,
		`aqi_external_requests_total{endpoint="feed",service="waqi",status="200"}`,
	} {
		if !strings.Contains(body, s) {
			t.Fatalf("metrics missing %s", s)
		}
	}
}

func TestHTTP_EndToEnd_WrongTokenIsUpstreamStatus(t *testing.T) {
	up := stubWAQI(t, "right", nil)
	cl, err := waqi.New(up.URL, "wrong", time.Second)
	if err != nil {
		t.Fatalf("waqi.New: %v", err)
	}
	srv := server.New(5 * time.Second)
	srv.MountHandlers(&server.Handlers{L: app.NewLookupService(cl, nil, nil)})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	res, err := http.Get(ts.URL + "/aqi/paris")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadGateway {
		t.Fatalf("status %d", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("content-type %s", ct)
	}
}
