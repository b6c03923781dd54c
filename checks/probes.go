package checks

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/KOMKZ/go-yogan-monitor/health"
	"github.com/KOMKZ/go-yogan-monitor/httpclient"
)

// Probe timeouts
const (
	connectivityTimeout = 5 * time.Second
	backendTimeout      = 5 * time.Second
	audioTimeout        = 3 * time.Second
	pwaTimeout          = 5 * time.Second
	performanceTimeout  = 8 * time.Second
	securityTimeout     = 5 * time.Second
	featureTimeout      = 5 * time.Second
)

// Check names
const (
	NameConnectivity   = "connectivity"
	NameAuthentication = "authentication"
	NameDatabase       = "database"
	NameAudio          = "audio"
	NamePWA            = "pwa"
	NamePerformance    = "performance"
	NameSecurity       = "security"
	NameFeatures       = "features"
)

// Prober builds HTTP checks against the target and the backend
type Prober struct {
	cfg    Config
	client *httpclient.Client
}

// NewProber creates a prober; probes never retry
func NewProber(cfg Config, opts ...httpclient.Option) *Prober {
	cfg.ApplyDefaults()
	opts = append([]httpclient.Option{httpclient.DisableRetry()}, opts...)
	return &Prober{
		cfg:    cfg,
		client: httpclient.NewClient(opts...),
	}
}

// Config effective probe configuration
func (p *Prober) Config() Config {
	return p.cfg
}

// Register adds the HTTP battery to engine. Backend probes are skipped
// when no backend is configured.
func (p *Prober) Register(engine *health.Engine) {
	engine.AddCheck(NameConnectivity, p.Connectivity())
	if p.cfg.BackendURL != "" {
		engine.AddCheck(NameAuthentication, p.Authentication())
		engine.AddCheck(NameDatabase, p.Database())
	}
	engine.AddCheck(NameAudio, p.Audio())
	engine.AddCheck(NamePWA, p.PWA())
	engine.AddCheck(NamePerformance, p.Performance())
	engine.AddCheck(NameSecurity, p.Security())
	if len(p.cfg.FeatureRoutes) > 0 {
		engine.AddCheck(NameFeatures, p.Features())
	}
}

// Connectivity GET / on the target
func (p *Prober) Connectivity() health.CheckFunc {
	return func(ctx context.Context) (health.Output, error) {
		out, _ := p.probe(ctx, http.MethodGet, p.target("/"), connectivityTimeout, nil)
		return out, nil
	}
}

// Authentication GET /auth/v1/health on the backend
func (p *Prober) Authentication() health.CheckFunc {
	return func(ctx context.Context) (health.Output, error) {
		out, _ := p.probe(ctx, http.MethodGet, p.backend("/auth/v1/health"), backendTimeout, p.backendHeaders())
		return out, nil
	}
}

// Database GET /rest/v1/ on the backend
func (p *Prober) Database() health.CheckFunc {
	return func(ctx context.Context) (health.Output, error) {
		out, _ := p.probe(ctx, http.MethodGet, p.backend("/rest/v1/"), backendTimeout, p.backendHeaders())
		return out, nil
	}
}

// Audio HEAD of the static audio asset
func (p *Prober) Audio() health.CheckFunc {
	return func(ctx context.Context) (health.Output, error) {
		out, resp := p.probe(ctx, http.MethodHead, p.target(p.cfg.AudioPath), audioTimeout, nil)
		if resp != nil && out.Status == health.StatusHealthy {
			contentType := resp.Headers.Get("Content-Type")
			out.Data["content_type"] = contentType
			if contentType != "" && !strings.HasPrefix(contentType, "audio/") && contentType != "application/octet-stream" {
				out.Status = health.StatusDegraded
				out.Message = fmt.Sprintf("Unexpected content type %s", contentType)
			}
		}
		return out, nil
	}
}

// PWA GET of the manifest and the service worker
func (p *Prober) PWA() health.CheckFunc {
	return func(ctx context.Context) (health.Output, error) {
		assets := []string{"/manifest.json", "/sw.js"}
		data := make(map[string]interface{}, len(assets))
		var failed []string
		for _, asset := range assets {
			out, _ := p.probe(ctx, http.MethodGet, p.target(asset), pwaTimeout, nil)
			data[asset] = string(out.Status)
			if out.Status == health.StatusUnhealthy {
				failed = append(failed, asset)
			}
		}
		if len(failed) > 0 {
			return health.Output{
				Status:  health.StatusUnhealthy,
				Message: "PWA assets unavailable: " + strings.Join(failed, ", "),
				Data:    data,
			}, nil
		}
		return health.Output{Status: health.StatusHealthy, Message: "PWA assets available", Data: data}, nil
	}
}

// Performance timed GET /
func (p *Prober) Performance() health.CheckFunc {
	return func(ctx context.Context) (health.Output, error) {
		out, resp := p.probe(ctx, http.MethodGet, p.target("/"), performanceTimeout, nil)
		if resp != nil {
			out.Data["threshold_ms"] = p.cfg.SlowThreshold.Milliseconds()
			out.Data["size_bytes"] = len(resp.Body)
		}
		return out, nil
	}
}

// Security GET / and verify the required response headers
func (p *Prober) Security() health.CheckFunc {
	return func(ctx context.Context) (health.Output, error) {
		out, resp := p.probe(ctx, http.MethodGet, p.target("/"), securityTimeout, nil)
		if resp == nil || out.Status == health.StatusUnhealthy {
			return out, nil
		}

		var missing []string
		for _, h := range p.cfg.RequiredHeaders {
			if resp.Headers.Get(h) == "" {
				missing = append(missing, h)
			}
		}
		out.Data["missing_headers"] = missing
		if len(missing) > 0 {
			out.Status = health.StatusDegraded
			out.Message = "Missing security headers: " + strings.Join(missing, ", ")
		}
		return out, nil
	}
}

// Features GET of each feature route: all failing is unhealthy, some failing is degraded
func (p *Prober) Features() health.CheckFunc {
	return func(ctx context.Context) (health.Output, error) {
		data := make(map[string]interface{}, len(p.cfg.FeatureRoutes))
		var failed []string
		for _, route := range p.cfg.FeatureRoutes {
			out, _ := p.probe(ctx, http.MethodGet, p.target(route), featureTimeout, nil)
			data[route] = string(out.Status)
			if out.Status == health.StatusUnhealthy {
				failed = append(failed, route)
			}
		}

		switch {
		case len(failed) == 0:
			return health.Output{Status: health.StatusHealthy, Message: "All features available", Data: data}, nil
		case len(failed) == len(p.cfg.FeatureRoutes):
			return health.Output{Status: health.StatusUnhealthy, Message: "No features available", Data: data}, nil
		default:
			return health.Output{
				Status:  health.StatusDegraded,
				Message: "Features unavailable: " + strings.Join(failed, ", "),
				Data:    data,
			}, nil
		}
	}
}

// probe issues one request and maps it to a status:
// network error or non-2xx is unhealthy, slower than SlowThreshold is degraded.
func (p *Prober) probe(ctx context.Context, method, url string, timeout time.Duration, headers map[string]string) (health.Output, *httpclient.Response) {
	req := httpclient.NewRequest(method, url)
	for k, v := range headers {
		req.WithHeader(k, v)
	}

	start := time.Now()
	resp, err := p.client.Do(ctx, req, httpclient.WithTimeout(timeout))
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return health.Output{
			Status:  health.StatusUnhealthy,
			Message: fmt.Sprintf("Request failed: %v", err),
			Data:    map[string]interface{}{"url": url, "response_time": elapsed},
		}, nil
	}

	data := map[string]interface{}{
		"url":           url,
		"status_code":   resp.StatusCode,
		"response_time": elapsed,
	}
	switch {
	case !resp.IsSuccess():
		return health.Output{Status: health.StatusUnhealthy, Message: fmt.Sprintf("HTTP %d", resp.StatusCode), Data: data}, resp
	case elapsed > p.cfg.SlowThreshold.Milliseconds():
		return health.Output{Status: health.StatusDegraded, Message: fmt.Sprintf("Slow response: %dms", elapsed), Data: data}, resp
	default:
		return health.Output{Status: health.StatusHealthy, Message: "OK", Data: data}, resp
	}
}

func (p *Prober) target(path string) string {
	return strings.TrimRight(p.cfg.TargetURL, "/") + path
}

func (p *Prober) backend(path string) string {
	return strings.TrimRight(p.cfg.BackendURL, "/") + path
}

func (p *Prober) backendHeaders() map[string]string {
	if p.cfg.BackendKey == "" {
		return nil
	}
	return map[string]string{
		"apikey":        p.cfg.BackendKey,
		"Authorization": "Bearer " + p.cfg.BackendKey,
	}
}
