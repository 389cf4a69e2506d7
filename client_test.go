package nrfcloud

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

func newTestClient(t *testing.T, token string, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(token, withBaseURL(srv.URL))
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("tok")

	if c.baseURL != DefaultBaseURL {
		t.Errorf("baseURL = %q, want %q", c.baseURL, DefaultBaseURL)
	}
	if c.token != "tok" {
		t.Errorf("token = %q, want tok", c.token)
	}
	if c.httpClient == nil {
		t.Error("httpClient is nil")
	}
}

func TestWithHTTPClientNilKeepsDefault(t *testing.T) {
	c := NewClient("tok", WithHTTPClient(nil))
	if c.httpClient == nil {
		t.Fatal("nil http client replaced the default")
	}
}

func TestGetSendsBearerToken(t *testing.T) {
	var mu sync.Mutex
	var auths []string

	c := newTestClient(t, "s3cr3t", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		auths = append(auths, r.Header.Get("Authorization"))
		mu.Unlock()
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		w.Write([]byte("plain text " + r.URL.Path))
	})

	for _, path := range []string{"/a", "/b", "/messages"} {
		body, err := c.Get(context.Background(), path)
		if err != nil {
			t.Fatalf("Get(%s) failed: %v", path, err)
		}
		if body != "plain text "+path {
			t.Errorf("Get(%s) body = %q", path, body)
		}
	}

	for i, a := range auths {
		if a != "Bearer s3cr3t" {
			t.Errorf("request %d Authorization = %q", i, a)
		}
	}
}

func TestGetWithParamsOnlySetFields(t *testing.T) {
	tests := []struct {
		name   string
		params *ListMessagesParams
		want   map[string]string
	}{
		{
			name:   "none",
			params: &ListMessagesParams{},
			want:   map[string]string{},
		},
		{
			name:   "limit only",
			params: &ListMessagesParams{PageLimit: Uint32(10)},
			want:   map[string]string{"pageLimit": "10"},
		},
		{
			name: "subset",
			params: &ListMessagesParams{
				DeviceID: String("nrf-1"),
				Topic:    String("d/nrf-1/d2c"),
				PageSort: String("asc"),
			},
			want: map[string]string{"deviceId": "nrf-1", "topic": "d/nrf-1/d2c", "pageSort": "asc"},
		},
		{
			name: "all",
			params: &ListMessagesParams{
				AppID:         String("TEMP"),
				DeviceID:      String("nrf-1"),
				Topic:         String("t"),
				Start:         String("2024-01-01T00:00:00Z"),
				End:           String("2024-01-02T00:00:00Z"),
				PageLimit:     Uint32(5),
				PageNextToken: String("tok"),
				PageSort:      String("desc"),
			},
			want: map[string]string{
				"appId":         "TEMP",
				"deviceId":      "nrf-1",
				"topic":         "t",
				"start":         "2024-01-01T00:00:00Z",
				"end":           "2024-01-02T00:00:00Z",
				"pageLimit":     "5",
				"pageNextToken": "tok",
				"pageSort":      "desc",
			},
		},
		{
			name:   "set but empty",
			params: &ListMessagesParams{Topic: String("")},
			want:   map[string]string{"topic": ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got map[string][]string
			c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
				got = r.URL.Query()
				w.Write([]byte("ok"))
			})

			if _, err := c.GetWithParams(context.Background(), "/messages", tt.params); err != nil {
				t.Fatalf("GetWithParams failed: %v", err)
			}

			if len(got) != len(tt.want) {
				t.Errorf("query keys = %v, want %v", keys(got), tt.want)
			}
			for k, v := range tt.want {
				vals, ok := got[k]
				if !ok {
					t.Errorf("missing key %q", k)
					continue
				}
				if len(vals) != 1 || vals[0] != v {
					t.Errorf("%s = %v, want %q", k, vals, v)
				}
			}
		})
	}
}

func TestGetWithoutParamsSendsNoQuery(t *testing.T) {
	var rawQuery string
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
	})

	if _, err := c.GetWithParams(context.Background(), "/messages", (*ListMessagesParams)(nil)); err != nil {
		t.Fatalf("GetWithParams failed: %v", err)
	}
	if rawQuery != "" {
		t.Errorf("RawQuery = %q, want empty", rawQuery)
	}
}

func TestGetWithParamsEncodeError(t *testing.T) {
	called := false
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := c.GetWithParams(context.Background(), "/messages", 42)

	var e *Error
	if !errors.As(err, &e) || e.Kind != KindEncode {
		t.Fatalf("err = %v, want encode error", err)
	}
	if called {
		t.Error("request was sent despite encode failure")
	}
}

func TestNonSuccessStatusFails(t *testing.T) {
	for _, code := range []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(code)
				w.Write([]byte(`{"items":[],"pageNextToken":"x"}`))
			})

			if _, err := c.Get(context.Background(), "/messages"); !IsStatus(err, code) {
				t.Errorf("Get err = %v, want status %d", err, code)
			}

			_, err := GetJSON[ListMessagesResponse](context.Background(), c, "/messages")
			if !IsStatus(err, code) {
				t.Fatalf("GetJSON err = %v, want status %d", err, code)
			}

			var e *Error
			errors.As(err, &e)
			if e.StatusCode != code {
				t.Errorf("StatusCode = %d, want %d", e.StatusCode, code)
			}
			if !strings.Contains(e.Error(), "unexpected status") {
				t.Errorf("Error() = %q", e.Error())
			}
		})
	}
}

func TestNonSuccessStatusReusesConnection(t *testing.T) {
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(strings.Repeat(`{"message":"upstream failed"}`, 64)))
	}))
	var conns atomic.Int32
	srv.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		if state == http.StateNew {
			conns.Add(1)
		}
	}
	srv.Start()
	defer srv.Close()

	c := NewClient("tok", withBaseURL(srv.URL))
	for i := 0; i < 3; i++ {
		if _, err := c.Get(context.Background(), "/messages"); !IsStatus(err, http.StatusInternalServerError) {
			t.Fatalf("request %d: err = %v, want 500", i, err)
		}
	}

	if n := conns.Load(); n != 1 {
		t.Errorf("opened %d connections, want 1", n)
	}
}

type device struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestGetJSONShapes(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
		want    device
	}{
		{name: "exact", body: `{"id":"d1","name":"n","count":2}`, want: device{ID: "d1", Name: "n", Count: 2}},
		{name: "unknown fields ignored", body: `{"id":"d1","firmware":{"v":"1.2"}}`, want: device{ID: "d1"}},
		{name: "missing required", body: `{"name":"n"}`, wantErr: true},
		{name: "wrong type", body: `{"id":"d1","count":"two"}`, wantErr: true},
		{name: "not json", body: `<html></html>`, wantErr: true},
		{name: "empty", body: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})

			got, err := GetJSON[device](context.Background(), c, "/devices/d1")
			if tt.wantErr {
				var e *Error
				if !errors.As(err, &e) || e.Kind != KindDecode {
					t.Fatalf("err = %v, want decode error", err)
				}
				if got != (device{}) {
					t.Errorf("got partial result %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetJSON failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}

	t.Run("pointer target", func(t *testing.T) {
		for body, wantErr := range map[string]bool{
			`{"id":"d1","name":"n"}`: false,
			`{"name":"n"}`:           true,
		} {
			c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			})

			got, err := GetJSON[*device](context.Background(), c, "/devices/d1")
			if wantErr {
				var e *Error
				if !errors.As(err, &e) || e.Kind != KindDecode {
					t.Errorf("%s: err = %v, want decode error", body, err)
				}
				if got != nil {
					t.Errorf("%s: got partial result %+v", body, got)
				}
				continue
			}
			if err != nil {
				t.Fatalf("%s: GetJSON failed: %v", body, err)
			}
			if got == nil || *got != (device{ID: "d1", Name: "n"}) {
				t.Errorf("%s: got %+v", body, got)
			}
		}
	})

	t.Run("slice target", func(t *testing.T) {
		for body, wantErr := range map[string]bool{
			`[{"id":"d1"},{"id":"d2","count":3}]`: false,
			`[]`:                                  false,
			`[{"id":"d1"},{"name":"n"}]`:          true,
			`[{"name":"n"}]`:                      true,
		} {
			c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			})

			got, err := GetJSON[[]device](context.Background(), c, "/devices")
			if wantErr {
				var e *Error
				if !errors.As(err, &e) || e.Kind != KindDecode {
					t.Errorf("%s: err = %v, want decode error", body, err)
				}
				if got != nil {
					t.Errorf("%s: got partial result %+v", body, got)
				}
				continue
			}
			if err != nil {
				t.Fatalf("%s: GetJSON failed: %v", body, err)
			}
			for i, d := range got {
				if d.ID == "" {
					t.Errorf("%s: item %d has no id", body, i)
				}
			}
		}
	})

	t.Run("slice of pointers", func(t *testing.T) {
		c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[{"id":"d1"},{"name":"n"}]`))
		})

		_, err := GetJSON[[]*device](context.Background(), c, "/devices")
		var e *Error
		if !errors.As(err, &e) || e.Kind != KindDecode {
			t.Fatalf("err = %v, want decode error", err)
		}
	})
}

func TestGetJSONNonStructTarget(t *testing.T) {
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"a":1,"b":[true]}`))
	})

	got, err := GetJSON[map[string]any](context.Background(), c, "/anything")
	if err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %v", got)
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient("tok", withBaseURL(url))
	_, err := c.Get(context.Background(), "/messages")

	var e *Error
	if !errors.As(err, &e) || e.Kind != KindTransport {
		t.Fatalf("err = %v, want transport error", err)
	}
	if IsStatus(err, 0) {
		t.Error("transport error reported as status error")
	}
}

func TestContextCanceled(t *testing.T) {
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{}"))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ListMessages(ctx, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestConcurrentRequestsShareClient(t *testing.T) {
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"items":[1]}`))
	})

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.ListMessages(context.Background(), nil); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent ListMessages failed: %v", err)
	}
}

func TestLoggerRecordsRequestsWithoutToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)
	c := NewClient("very-secret", withBaseURL(srv.URL), WithLogger(log))

	if _, err := c.ListMessages(context.Background(), &ListMessagesParams{PageLimit: Uint32(1)}); err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{`"request_id":"req_`, `"status":200`, `"method":"GET"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %s: %s", want, out)
		}
	}
	if strings.Contains(out, "very-secret") {
		t.Errorf("token leaked into log: %s", out)
	}
}

func keys(m map[string][]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
