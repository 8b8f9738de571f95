package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rtm0/pointdata/internal/frame"
	"github.com/rtm0/pointdata/internal/params"
)

const testToken = "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.test"

type payload struct {
	Data *frame.Frame `json:"data"`
}

// mockAPI answers the login and data endpoints like the HydroData API.
type mockAPI struct {
	mu         sync.Mutex
	expires    string
	dataStatus int
	delay      time.Duration
	lastQuery  map[string]string
	lastAuth   string
	lastPath   string
}

func (m *mockAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case pinsPath:
		if r.URL.Query().Get("pin") != "1234" || r.URL.Query().Get("email") != "dummy@email.com" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(Token{
			Email:    "dummy@email.com",
			Expires:  m.expires,
			JWTToken: testToken,
			UserID:   "dummy",
		})
	case metadataPath:
		m.mu.Lock()
		m.lastPath = r.URL.Path
		m.mu.Unlock()
		_, _ = io.WriteString(w, `[{"site_id":"01019000"},{"site_id":"01027200"}]`)
	case pointDataPath:
		m.mu.Lock()
		m.lastPath = r.URL.Path
		m.lastAuth = r.Header.Get("Authorization")
		m.lastQuery = map[string]string{}
		for k := range r.URL.Query() {
			m.lastQuery[k] = r.URL.Query().Get(k)
		}
		m.mu.Unlock()
		if m.delay > 0 {
			time.Sleep(m.delay)
		}
		if m.dataStatus != 0 && m.dataStatus != http.StatusOK {
			w.WriteHeader(m.dataStatus)
			_, _ = io.WriteString(w, `{"message":"boom"}`)
			return
		}
		_ = json.NewEncoder(w).Encode(payload{Data: &frame.Frame{
			Dates: []string{"2020-01-01", "2020-01-02"},
			Rows: []frame.Row{
				{SiteID: "01019000", Values: []float64{18.395, 18.3667}},
				{SiteID: "01027200", Values: []float64{4.9242, 4.6412}},
				{SiteID: "01029500", Values: []float64{35.092, 33.677}},
			},
		}})
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, api *mockAPI, register bool) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	pinFile := filepath.Join(t.TempDir(), ".hydrodata", "pin.json")
	if register {
		if err := RegisterPIN(pinFile, "dummy@email.com", "1234"); err != nil {
			t.Fatalf("RegisterPIN: %v", err)
		}
	}
	c, err := NewClient(slog.New(slog.NewTextHandler(io.Discard, nil)), Options{
		BaseURL:        srv.URL,
		PINFile:        pinFile,
		RequestTimeout: 2 * time.Second,
		LoginTimeout:   time.Second,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c.now = func() time.Time { return time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC) }
	return c
}

func request() params.Request {
	return params.Request{
		DataSource:         "usgs_nwis",
		Variable:           "streamflow",
		TemporalResolution: "daily",
		Aggregation:        "average",
		DateStart:          "2020-01-01",
		DateEnd:            "2020-01-03",
		LatitudeRange:      &params.Range{Min: 45, Max: 46},
		LongitudeRange:     &params.Range{Min: -110, Max: -108},
		MinNumObs:          1,
	}
}

func TestGetData(t *testing.T) {
	api := &mockAPI{expires: "2023/10/14 18:31:11 GMT-0000"}
	c := newTestClient(t, api, true)

	var got payload
	if err := c.GetData(context.Background(), request(), &got); err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if got.Data == nil || len(got.Data.Rows) != 3 {
		t.Fatalf("unexpected payload %+v", got.Data)
	}
	if id := got.Data.Rows[0].SiteID; id != "01019000" {
		t.Errorf("first site = %q, want 01019000", id)
	}
	api.mu.Lock()
	defer api.mu.Unlock()
	if api.lastAuth != "Bearer "+testToken {
		t.Errorf("Authorization = %q", api.lastAuth)
	}
	if api.lastQuery["latitude_range"] != "(45, 46)" || api.lastQuery["variable"] != "streamflow" {
		t.Errorf("query = %v", api.lastQuery)
	}
}

func TestGetSites(t *testing.T) {
	api := &mockAPI{expires: "2023/10/14 18:31:11 GMT-0000"}
	c := newTestClient(t, api, true)

	var sites []struct {
		SiteID string `json:"site_id"`
	}
	if err := c.GetSites(context.Background(), request(), &sites); err != nil {
		t.Fatalf("GetSites: %v", err)
	}
	if len(sites) != 2 || sites[0].SiteID != "01019000" {
		t.Errorf("sites = %+v", sites)
	}
	api.mu.Lock()
	defer api.mu.Unlock()
	if api.lastPath != metadataPath {
		t.Errorf("path = %q, want %q", api.lastPath, metadataPath)
	}
}

func TestLoginLogsUser(t *testing.T) {
	c := newTestClient(t, &mockAPI{expires: "2023/10/14 18:31:11 GMT-0000"}, true)
	var buf bytes.Buffer
	c.logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if _, err := c.Login(context.Background()); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !strings.Contains(buf.String(), "userId=dummy") {
		t.Errorf("login log = %q", buf.String())
	}
	if strings.Contains(buf.String(), "pin=1234") {
		t.Errorf("PIN leaked into the log: %q", buf.String())
	}
}

func TestGetDataErrors(t *testing.T) {
	t.Run("not registered", func(t *testing.T) {
		c := newTestClient(t, &mockAPI{}, false)
		err := c.GetData(context.Background(), request(), &payload{})
		if !errors.Is(err, ErrNotRegistered) {
			t.Errorf("expected ErrNotRegistered, got %v", err)
		}
	})

	t.Run("expired pin", func(t *testing.T) {
		c := newTestClient(t, &mockAPI{expires: "2023/09/01 00:00:00 GMT-0000"}, true)
		err := c.GetData(context.Background(), request(), &payload{})
		if !errors.Is(err, ErrPINExpired) {
			t.Errorf("expected ErrPINExpired, got %v", err)
		}
	})

	t.Run("wrong pin", func(t *testing.T) {
		c := newTestClient(t, &mockAPI{}, false)
		if err := RegisterPIN(c.pinFile, "dummy@email.com", "9999"); err != nil {
			t.Fatal(err)
		}
		err := c.GetData(context.Background(), request(), &payload{})
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("non-200", func(t *testing.T) {
		c := newTestClient(t, &mockAPI{dataStatus: http.StatusBadRequest}, true)
		err := c.GetData(context.Background(), request(), &payload{})
		if !errors.Is(err, ErrStatus) {
			t.Errorf("expected ErrStatus, got %v", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		c := newTestClient(t, &mockAPI{delay: 300 * time.Millisecond}, true)
		c.requestTimeout = 50 * time.Millisecond
		err := c.GetData(context.Background(), request(), &payload{})
		if !errors.Is(err, ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	})
}

func TestLoadPIN(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pin.json")
	if _, err := LoadPIN(path); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("missing file: expected ErrNotRegistered, got %v", err)
	}
	if err := RegisterPIN(path, "a@b.org", "0000"); err != nil {
		t.Fatalf("RegisterPIN: %v", err)
	}
	p, err := LoadPIN(path)
	if err != nil {
		t.Fatalf("LoadPIN: %v", err)
	}
	if p.Email != "a@b.org" || p.PIN != "0000" {
		t.Errorf("LoadPIN = %+v", p)
	}
}

func TestNewClientRejectsBadURL(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := NewClient(logger, Options{BaseURL: "ftp://example.org"}); err == nil {
		t.Error("expected an error for a non-http base URL")
	}
}

func TestRedact(t *testing.T) {
	got := redact("https://h.example/api/api_pins?email=a%40b.org&pin=1234")
	if want := "https://h.example/api/api_pins?email=a%40b.org&pin=xxxx"; got != want {
		t.Errorf("redact = %q, want %q", got, want)
	}
}
