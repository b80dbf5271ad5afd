package forecaster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/szlkpr/ims-ml-service/internal/domain"
)

const maxErrorBody = 512

// Config locates the engine. Client credentials are optional; when ClientID
// and TokenURL are set every call carries a bearer token.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	TokenURL     string
	Timeout      time.Duration
}

// Client talks to the engine over HTTP. The trained flag mirrors the
// engine's state as last reported by /status, /train or /reset.
type Client struct {
	baseURL string
	http    *http.Client
	trained atomic.Bool
}

var (
	_ Forecaster     = (*Client)(nil)
	_ KnowledgeGraph = (*Client)(nil)
	_ Reasoner       = (*Client)(nil)
	_ Resetter       = (*Client)(nil)
)

// NewClient builds the client and checks the engine is reachable.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("forecaster url: %w", domain.ErrNotConfigured)
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid forecaster url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	httpClient := &http.Client{Timeout: timeout}
	if cfg.ClientID != "" && cfg.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: timeout})
		httpClient = cc.Client(tokenCtx)
		httpClient.Timeout = timeout
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
	}
	if err := c.refreshStatus(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

type statusResponse struct {
	Trained bool `json:"trained"`
}

func (c *Client) refreshStatus(ctx context.Context) error {
	var status statusResponse
	if err := c.do(ctx, http.MethodGet, "/status", nil, nil, &status); err != nil {
		return fmt.Errorf("forecaster status: %w", err)
	}
	c.trained.Store(status.Trained)
	return nil
}

func (c *Client) Trained() bool {
	return c.trained.Load()
}

type trainRequest struct {
	HistoricalData map[string][]domain.HistoricalPoint `json:"historical_data"`
	Epochs         int                                 `json:"epochs"`
}

func (c *Client) Train(ctx context.Context, data map[string][]domain.HistoricalPoint, epochs int) error {
	if err := c.do(ctx, http.MethodPost, "/train", nil, trainRequest{HistoricalData: data, Epochs: epochs}, nil); err != nil {
		return fmt.Errorf("forecaster train: %w", err)
	}
	c.trained.Store(true)
	return nil
}

// engineForecast is the engine's native result; explanation parts arrive as
// separate fields and are folded into Explanations.
type engineForecast struct {
	Predictions          []float64            `json:"predictions"`
	ConfidenceIntervals  map[string][]float64 `json:"confidence_intervals"`
	CertaintyScore       float64              `json:"certainty_score"`
	SymbolicRulesApplied any                  `json:"symbolic_rules_applied"`
	CausalChain          any                  `json:"causal_chain"`
	PhysicsConstraints   any                  `json:"physics_constraints"`
	MarketDynamics       any                  `json:"market_dynamics"`
	FeatureImportance    any                  `json:"feature_importance"`
	Recommendations      []string             `json:"recommendations"`
	Narrative            string               `json:"narrative"`
}

func (c *Client) Forecast(ctx context.Context, req Request) (*domain.ForecastResult, error) {
	var out engineForecast
	if err := c.do(ctx, http.MethodPost, "/forecast", nil, req, &out); err != nil {
		return nil, fmt.Errorf("forecaster forecast %s: %w", req.Product, err)
	}

	intervals := make(map[string][]float64, len(out.ConfidenceIntervals))
	for k, v := range out.ConfidenceIntervals {
		intervals[k] = append([]float64(nil), v...)
	}

	return &domain.ForecastResult{
		Predictions:         out.Predictions,
		ConfidenceIntervals: intervals,
		CertaintyScore:      out.CertaintyScore,
		Explanations: map[string]any{
			"symbolic_rules":      out.SymbolicRulesApplied,
			"causal_chain":        out.CausalChain,
			"physics_constraints": out.PhysicsConstraints,
			"market_dynamics":     out.MarketDynamics,
			"feature_importance":  out.FeatureImportance,
		},
		Recommendations: out.Recommendations,
		Narrative:       out.Narrative,
	}, nil
}

func (c *Client) RelatedEntities(ctx context.Context, product string, maxHops int) ([]domain.RelatedEntity, error) {
	q := url.Values{}
	q.Set("product", product)
	q.Set("max_hops", strconv.Itoa(maxHops))

	var out struct {
		Entities []domain.RelatedEntity `json:"entities"`
	}
	if err := c.do(ctx, http.MethodGet, "/kg/related", q, nil, &out); err != nil {
		return nil, fmt.Errorf("related entities for %s: %w", product, err)
	}
	return out.Entities, nil
}

func (c *Client) SymbolicRules(ctx context.Context, product string) ([]string, error) {
	q := url.Values{}
	q.Set("product", product)

	var out struct {
		Rules []string `json:"rules"`
	}
	if err := c.do(ctx, http.MethodGet, "/kg/rules", q, nil, &out); err != nil {
		return nil, fmt.Errorf("symbolic rules for %s: %w", product, err)
	}
	return out.Rules, nil
}

func (c *Client) Summary(ctx context.Context) (map[string]any, error) {
	out := map[string]any{}
	if err := c.do(ctx, http.MethodGet, "/kg/summary", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("knowledge summary: %w", err)
	}
	return out, nil
}

func (c *Client) TemporalImpact(ctx context.Context, entity, product string, daysOffset int) (float64, error) {
	q := url.Values{}
	q.Set("entity", entity)
	q.Set("product", product)
	q.Set("days_offset", strconv.Itoa(daysOffset))

	var out struct {
		Impact float64 `json:"impact"`
	}
	if err := c.do(ctx, http.MethodGet, "/kg/temporal-impact", q, nil, &out); err != nil {
		return 0, fmt.Errorf("temporal impact %s->%s: %w", entity, product, err)
	}
	return out.Impact, nil
}

func (c *Client) Explain(ctx context.Context, query domain.ReasoningQuery) (*domain.Reasoning, error) {
	var out domain.Reasoning
	if err := c.do(ctx, http.MethodPost, "/reason/explain", nil, query, &out); err != nil {
		return nil, fmt.Errorf("explain %s: %w", query.Product, err)
	}
	return &out, nil
}

func (c *Client) Reset(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/reset", nil, nil, nil); err != nil {
		return fmt.Errorf("forecaster reset: %w", err)
	}
	c.trained.Store(false)
	return nil
}

func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("forecaster call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
