// Package rest provides a source for PostgREST-compatible HTTP backends,
// the query layer most hosted backend-as-a-service platforms expose.
//
// Counts use a HEAD request with "Prefer: count=exact" and read the total
// from Content-Range. Rows are fetched in pages using the Range header until
// the backend returns an empty page.
package rest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/leapstack-labs/leapexport/pkg/record"
	"github.com/leapstack-labs/leapexport/pkg/source"
	"github.com/tidwall/gjson"
)

// Name is the registered source type.
const Name = "rest"

const (
	defaultPath     = "/rest/v1"
	defaultPageSize = 1000
	defaultTimeout  = 30 * time.Second
	// maxErrorBody caps how much of an error response is read.
	maxErrorBody = 64 << 10
)

func init() {
	source.Register(Name, func(l *slog.Logger) source.Source { return New(l) })
}

// Params holds REST-specific configuration.
// Parsed from source.Config.Params using mapstructure.
type Params struct {
	// Path is the API prefix appended to the base URL.
	Path string `mapstructure:"path"`

	// PageSize is the number of rows requested per page.
	PageSize int `mapstructure:"page_size"`

	// Timeout bounds each HTTP request.
	Timeout time.Duration `mapstructure:"timeout"`
}

// HTTPError is returned when the backend answers with a non-success status.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// Source implements source.Source over HTTP.
type Source struct {
	client *http.Client
	base   *url.URL
	apiKey string
	schema string
	params Params
	logger *slog.Logger
}

// New creates a new REST source instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Source{logger: logger}
}

// Name returns the registered source type.
func (s *Source) Name() string { return Name }

// Connect validates the endpoint configuration. No request is made.
func (s *Source) Connect(_ context.Context, cfg source.Config) error {
	if cfg.URL == "" {
		return fmt.Errorf("rest source requires a url")
	}
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return fmt.Errorf("invalid rest url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return fmt.Errorf("invalid rest url %q: scheme must be http or https", cfg.URL)
	}

	params, err := decodeParams(cfg.Params)
	if err != nil {
		return err
	}

	s.base = base
	s.apiKey = cfg.APIKey
	s.schema = cfg.Schema
	s.params = params
	s.client = &http.Client{Timeout: params.Timeout}

	s.logger.Debug("rest source configured",
		slog.String("url", base.Redacted()),
		slog.Int("page_size", params.PageSize))
	return nil
}

// decodeParams applies defaults on top of user-supplied params.
func decodeParams(raw map[string]any) (Params, error) {
	p := Params{Path: defaultPath, PageSize: defaultPageSize, Timeout: defaultTimeout}
	if len(raw) == 0 {
		return p, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           &p,
	})
	if err != nil {
		return p, fmt.Errorf("failed to build params decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return p, fmt.Errorf("invalid rest params: %w", err)
	}
	if p.PageSize <= 0 {
		return p, fmt.Errorf("invalid rest params: page_size must be positive")
	}
	return p, nil
}

// Close is a no-op; idle connections are released with the client.
func (s *Source) Close() error {
	if s.client != nil {
		s.client.CloseIdleConnections()
	}
	return nil
}

// Count returns the exact row count reported by the backend.
func (s *Source) Count(ctx context.Context, table string) (int64, error) {
	req, err := s.newRequest(ctx, http.MethodHead, table)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Prefer", "count=exact")

	resp, err := s.do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	return parseContentRangeTotal(resp.Header.Get("Content-Range"))
}

// Fetch pages through every row of table. Backends may cap the rows per
// response below the page size (PostgREST db-max-rows), so a short page
// only advances the offset; an empty page ends the table.
func (s *Source) Fetch(ctx context.Context, table string) ([]record.Record, error) {
	var all []record.Record
	for offset := 0; ; {
		page, err := s.fetchPage(ctx, table, offset)
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.Status == http.StatusRequestedRangeNotSatisfiable && offset > 0 {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)
		offset += len(page)
	}
	s.logger.Debug("fetched table", slog.String("table", table), slog.Int("rows", len(all)))
	return all, nil
}

func (s *Source) fetchPage(ctx context.Context, table string, offset int) ([]record.Record, error) {
	req, err := s.newRequest(ctx, http.MethodGet, table)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range-Unit", "items")
	req.Header.Set("Range", fmt.Sprintf("%d-%d", offset, offset+s.params.PageSize-1))

	resp, err := s.do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", table, err)
	}
	recs, err := record.ParseJSONArray(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", table, err)
	}
	return recs, nil
}

func (s *Source) newRequest(ctx context.Context, method, table string) (*http.Request, error) {
	if s.base == nil {
		return nil, source.ErrNotConnected
	}
	if err := source.ValidateTable(table); err != nil {
		return nil, err
	}

	schema := s.schema
	if i := strings.IndexByte(table, '.'); i >= 0 {
		schema, table = table[:i], table[i+1:]
	}

	u := *s.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.Trim(s.params.Path, "/") + "/" + table
	u.RawQuery = url.Values{"select": {"*"}}.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("apikey", s.apiKey)
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	if schema != "" {
		req.Header.Set("Accept-Profile", schema)
	}
	return req, nil
}

// do executes req and converts non-2xx answers to *HTTPError.
func (s *Source) do(req *http.Request) (*http.Response, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return nil, &HTTPError{Status: resp.StatusCode, Message: errorMessage(body)}
}

// errorMessage extracts the "message" field of a PostgREST error body,
// falling back to the trimmed body text.
func errorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		if msg := gjson.GetBytes(body, "message"); msg.Exists() {
			return msg.String()
		}
	}
	return strings.TrimSpace(string(body))
}

// parseContentRangeTotal reads the total from "0-24/573" or "*/0".
func parseContentRangeTotal(header string) (int64, error) {
	i := strings.LastIndexByte(header, '/')
	if i < 0 {
		return 0, fmt.Errorf("missing row count in Content-Range %q", header)
	}
	total := header[i+1:]
	if total == "*" {
		return 0, fmt.Errorf("backend did not report an exact count")
	}
	n, err := strconv.ParseInt(total, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid row count in Content-Range %q: %w", header, err)
	}
	return n, nil
}

var _ source.Source = (*Source)(nil)
