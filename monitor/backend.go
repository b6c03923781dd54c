package monitor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/KOMKZ/go-yogan-monitor/httpclient"
	"github.com/KOMKZ/go-yogan-monitor/metrics"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// ErrMissingCredentials backend URL or key is not configured
var ErrMissingCredentials = errors.New("monitor: backend URL and key are required")

// BackendConfig hosted data backend (PostgREST-style API)
type BackendConfig struct {
	URL     string        `mapstructure:"url"`
	Key     string        `mapstructure:"key"`
	Timeout time.Duration `mapstructure:"timeout"`

	UsersTable    string `mapstructure:"users_table"`
	SessionsTable string `mapstructure:"sessions_table"`
	// sessions whose content is tagged with a culture
	CulturalColumn string `mapstructure:"cultural_column"`
	// sessions generated from a personalised recommendation
	PersonalizedColumn string `mapstructure:"personalized_column"`
}

// DefaultBackendConfig table names of the meditation app schema
func DefaultBackendConfig() BackendConfig {
	return BackendConfig{
		Timeout:            10 * time.Second,
		UsersTable:         "profiles",
		SessionsTable:      "meditation_sessions",
		CulturalColumn:     "cultural_tradition",
		PersonalizedColumn: "recommendation_id",
	}
}

// ApplyDefaults fills zero values
func (c *BackendConfig) ApplyDefaults() {
	d := DefaultBackendConfig()
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.UsersTable == "" {
		c.UsersTable = d.UsersTable
	}
	if c.SessionsTable == "" {
		c.SessionsTable = d.SessionsTable
	}
	if c.CulturalColumn == "" {
		c.CulturalColumn = d.CulturalColumn
	}
	if c.PersonalizedColumn == "" {
		c.PersonalizedColumn = d.PersonalizedColumn
	}
}

// Validate URL format; presence is checked by RequireCredentials
func (c BackendConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.URL, is.URL),
	)
}

// RequireCredentials ErrMissingCredentials unless URL and key are set
func (c BackendConfig) RequireCredentials() error {
	if strings.TrimSpace(c.URL) == "" || strings.TrimSpace(c.Key) == "" {
		return ErrMissingCredentials
	}
	return nil
}

// Backend reads usage figures from the data backend
type Backend struct {
	cfg    BackendConfig
	client *httpclient.Client
}

// NewBackend creates a backend client; requests are not retried
func NewBackend(cfg BackendConfig, opts ...httpclient.Option) *Backend {
	cfg.ApplyDefaults()
	base := []httpclient.Option{
		httpclient.WithBaseURL(strings.TrimRight(cfg.URL, "/")),
		httpclient.WithTimeout(cfg.Timeout),
		httpclient.DisableRetry(),
		httpclient.WithHeader("apikey", cfg.Key),
		httpclient.WithHeader("Authorization", "Bearer "+cfg.Key),
	}
	return &Backend{
		cfg:    cfg,
		client: httpclient.NewClient(append(base, opts...)...),
	}
}

// Ping the REST root
func (b *Backend) Ping(ctx context.Context) error {
	resp, err := b.client.Get(ctx, "/rest/v1/")
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("backend responded HTTP %d", resp.StatusCode)
	}
	return nil
}

// Count rows of table matching filters (PostgREST syntax, e.g. created_at=gte.<ts>)
func (b *Backend) Count(ctx context.Context, table string, filters map[string]string) (int64, error) {
	req := httpclient.NewRequest(http.MethodHead, "/rest/v1/"+table).
		WithQuery("select", "*").
		WithHeader("Prefer", "count=exact").
		WithHeader("Range", "0-0")
	for k, v := range filters {
		req.WithQuery(k, v)
	}

	resp, err := b.client.Do(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	if !resp.IsSuccess() {
		return 0, fmt.Errorf("count %s: HTTP %d", table, resp.StatusCode)
	}
	return parseContentRange(resp.Headers.Get("Content-Range"))
}

// CountUsers registered users
func (b *Backend) CountUsers(ctx context.Context) (int64, error) {
	return b.Count(ctx, b.cfg.UsersTable, nil)
}

// CountSessionsSince sessions created at or after since
func (b *Backend) CountSessionsSince(ctx context.Context, since time.Time) (int64, error) {
	return b.Count(ctx, b.cfg.SessionsTable, map[string]string{
		"created_at": "gte." + since.UTC().Format(time.RFC3339),
	})
}

// Usage user count, 24h sessions and the share of those sessions that were
// cultural or personalised
func (b *Backend) Usage(ctx context.Context, now time.Time) (metrics.Usage, error) {
	var u metrics.Usage
	since := now.Add(-24 * time.Hour)

	users, err := b.CountUsers(ctx)
	if err != nil {
		return u, err
	}
	sessions, err := b.CountSessionsSince(ctx, since)
	if err != nil {
		return u, err
	}
	u.UserCount, u.SessionCount = users, sessions
	if sessions == 0 {
		return u, nil
	}

	sinceFilter := "gte." + since.UTC().Format(time.RFC3339)
	cultural, err := b.Count(ctx, b.cfg.SessionsTable, map[string]string{
		"created_at":         sinceFilter,
		b.cfg.CulturalColumn: "not.is.null",
	})
	if err != nil {
		return u, err
	}
	personalized, err := b.Count(ctx, b.cfg.SessionsTable, map[string]string{
		"created_at":             sinceFilter,
		b.cfg.PersonalizedColumn: "not.is.null",
	})
	if err != nil {
		return u, err
	}

	u.CulturalEngagement = percent(cultural, sessions)
	u.AIPersonalizationUsage = percent(personalized, sessions)
	return u, nil
}

// parseContentRange total from "0-0/42" or "*/42"
func parseContentRange(v string) (int64, error) {
	i := strings.LastIndexByte(v, '/')
	if i < 0 || i == len(v)-1 {
		return 0, fmt.Errorf("unexpected Content-Range %q", v)
	}
	total := v[i+1:]
	if total == "*" {
		return 0, fmt.Errorf("backend did not report a count: %q", v)
	}
	n, err := strconv.ParseInt(total, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse Content-Range %q: %w", v, err)
	}
	return n, nil
}

func percent(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*10000) / 100
}

// reachable best-effort GET of url
func reachable(ctx context.Context, client *httpclient.Client, url string) error {
	resp, err := client.Do(ctx, httpclient.NewRequest(http.MethodGet, url))
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}
