package nrfcloud

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/go-querystring/query"
	"github.com/rs/zerolog"

	"github.com/shohag/nrfcloud/internal/models"
)

const DefaultBaseURL = "https://api.nrfcloud.com/v1"

var validate = validator.New()

// Client talks to the nRF Cloud REST API. Token and base URL are fixed at
// construction, so a Client may be shared between goroutines.
type Client struct {
	httpClient *http.Client
	token      string
	baseURL    string
	log        zerolog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client. Timeouts and transport
// tuning belong to the caller.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// withBaseURL points the client at another host, e.g. a mock server.
func withBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		token:      token,
		baseURL:    DefaultBaseURL,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get sends an authenticated GET to baseURL+endpoint and returns the body as text.
func (c *Client) Get(ctx context.Context, endpoint string) (string, error) {
	return c.GetWithParams(ctx, endpoint, nil)
}

// GetWithParams is Get with params encoded into the query string. params is a
// struct with `url` tags; nil sends no query.
func (c *Client) GetWithParams(ctx context.Context, endpoint string, params any) (string, error) {
	body, err := c.do(ctx, endpoint, params)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// GetJSON sends a GET and decodes the JSON body into T.
func GetJSON[T any](ctx context.Context, c *Client, endpoint string) (T, error) {
	return GetJSONWithParams[T](ctx, c, endpoint, nil)
}

// GetJSONWithParams sends a GET with query params and decodes the JSON body
// into T. Unknown fields are ignored; struct fields tagged validate:"required"
// must be present.
func GetJSONWithParams[T any](ctx context.Context, c *Client, endpoint string, params any) (T, error) {
	var out T

	body, err := c.do(ctx, endpoint, params)
	if err != nil {
		return out, err
	}

	err = json.Unmarshal(body, &out)
	if err == nil {
		err = validateShape(&out)
	}
	if err != nil {
		var zero T
		return zero, &Error{Kind: KindDecode, Method: http.MethodGet, URL: c.baseURL + endpoint, Err: err}
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, endpoint string, params any) ([]byte, error) {
	start := time.Now()
	url := c.baseURL + endpoint

	log := c.log.With().
		Str("request_id", models.NewID("req")).
		Str("method", http.MethodGet).
		Str("url", url).
		Logger()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Method: http.MethodGet, URL: url, Err: err}
	}

	if params != nil {
		values, err := query.Values(params)
		if err != nil {
			return nil, &Error{Kind: KindEncode, Method: http.MethodGet, URL: url, Err: err}
		}
		req.URL.RawQuery = values.Encode()
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Dur("duration", time.Since(start)).Msg("request failed")
		return nil, &Error{Kind: KindTransport, Method: http.MethodGet, URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()

	log.Debug().
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("response")

	if !isSuccess(resp.StatusCode) {
		// Drain so the connection goes back to the pool; the body is not parsed.
		io.Copy(io.Discard, resp.Body)
		return nil, &Error{
			Kind:       KindStatus,
			Method:     http.MethodGet,
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Method: http.MethodGet, URL: req.URL.String(), Err: fmt.Errorf("failed to read body: %w", err)}
	}
	return body, nil
}

// validateShape runs struct validation on a decoded value. Pointers are
// followed, and slices, arrays and maps of structs are checked per element.
// Other targets (scalars, map[string]any) have no required fields.
func validateShape(v any) error {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Struct:
		err := validate.Struct(rv.Interface())
		if _, ok := err.(*validator.InvalidValidationError); ok {
			return nil
		}
		return err
	case reflect.Slice, reflect.Array, reflect.Map:
		if rv.Len() == 0 || !isStructType(rv.Type().Elem()) {
			return nil
		}
		return validate.Var(rv.Interface(), "dive")
	}
	return nil
}

func isStructType(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct && t != reflect.TypeOf(time.Time{})
}

func isSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
