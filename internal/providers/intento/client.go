// Package intento is a thin client for the Intento translation gateway:
// translate submissions, operation polling, and catalog metadata.
package intento

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"prodtrans/internal/domain"
	"prodtrans/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("intento: api key is required")

const (
	defaultBaseURL       = "https://api.inten.to/ai/text/translate"
	defaultOperationsURL = "https://api.inten.to/operations"
	defaultRoutingURL    = "https://api.inten.to/routing-designer/"
	defaultProvider      = "ai.text.translate.openai.gpt-4.translate"
	defaultModel         = "openai/gpt-4"
	userAgent            = "Intento.Integration.go/1.0"
)

// Options configures the Intento client.
type Options struct {
	APIKey         string
	BaseURL        string
	OperationsURL  string
	RoutingURL     string
	Provider       string
	Model          string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
	BreakerTimeout time.Duration
}

// Client performs HTTP calls to the Intento gateway.
type Client struct {
	apiKey        string
	baseURL       string
	operationsURL string
	routingURL    string
	provider      string
	model         string
	httpClient    *http.Client
	logger        *infra.Logger
	breaker       *gobreaker.CircuitBreaker
}

// TranslateRequest captures one submission. Exactly one of Provider or
// Routing may be set; when both are empty the client's default provider
// and model are used.
type TranslateRequest struct {
	Text     []string
	From     string
	To       string
	Async    bool
	Provider string
	Routing  string
}

// ProviderInfo identifies the provider that served a translation.
type ProviderInfo struct {
	Name   string `json:"name"`
	Vendor string `json:"vendor"`
}

// Submission is the normalized reply to a translate call: inline results
// when Done is set, otherwise an operation to poll.
type Submission struct {
	OperationID string
	Done        bool
	Results     []string
	Provider    ProviderInfo
}

// Operation is the normalized state of one deferred translation poll.
type Operation struct {
	Done     bool
	Results  []string
	Provider ProviderInfo
}

// ProviderListing describes one available translation provider.
type ProviderListing struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Vendor      string `json:"vendor"`
	Description string `json:"description"`
}

// RoutingProfile describes one smart-routing profile.
type RoutingProfile struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPublic    bool   `json:"is_public"`
	IsActive    bool   `json:"is_active"`
	RuleGroups  []struct {
		Description string `json:"description"`
	} `json:"rule_groups"`
}

type translateContext struct {
	Text any    `json:"text"`
	From string `json:"from,omitempty"`
	To   string `json:"to"`
}

type serviceSpec struct {
	Provider string `json:"provider,omitempty"`
	Routing  string `json:"routing,omitempty"`
	Model    string `json:"model,omitempty"`
	Async    bool   `json:"async"`
}

type translatePayload struct {
	Context translateContext `json:"context"`
	Service serviceSpec      `json:"service"`
}

type replyMeta struct {
	Providers []ProviderInfo `json:"providers"`
}

type submissionReply struct {
	ID      string          `json:"id"`
	Done    bool            `json:"done"`
	Results []string        `json:"results"`
	Meta    replyMeta       `json:"meta"`
	Error   json.RawMessage `json:"error"`
}

type operationReply struct {
	ID       string          `json:"id"`
	Done     bool            `json:"done"`
	Response []struct {
		Results []string `json:"results"`
		Service struct {
			Provider ProviderInfo `json:"provider"`
		} `json:"service"`
	} `json:"response"`
	Meta  replyMeta       `json:"meta"`
	Error json.RawMessage `json:"error"`
}

type routingReply struct {
	Data []RoutingProfile `json:"data"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	operationsURL := strings.TrimRight(opts.OperationsURL, "/")
	if operationsURL == "" {
		operationsURL = defaultOperationsURL
	}
	routingURL := opts.RoutingURL
	if routingURL == "" {
		routingURL = defaultRoutingURL
	}
	provider := strings.TrimSpace(opts.Provider)
	model := strings.TrimSpace(opts.Model)
	if provider == "" {
		provider = defaultProvider
		if model == "" {
			model = defaultModel
		}
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	breakerTimeout := opts.BreakerTimeout
	if breakerTimeout <= 0 {
		breakerTimeout = 30 * time.Second
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "intento",
		Timeout: breakerTimeout,
	})
	return &Client{
		apiKey:        strings.TrimSpace(opts.APIKey),
		baseURL:       baseURL,
		operationsURL: operationsURL,
		routingURL:    routingURL,
		provider:      provider,
		model:         model,
		httpClient:    httpClient,
		logger:        logger,
		breaker:       breaker,
	}, nil
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// Translate submits one translation request. The reply either carries
// inline results (Done) or an operation identifier to poll.
func (c *Client) Translate(ctx context.Context, req TranslateRequest) (*Submission, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	if len(req.Text) == 0 {
		return nil, errors.New("intento: text is required")
	}
	if strings.TrimSpace(req.To) == "" {
		return nil, errors.New("intento: target language is required")
	}

	payload := translatePayload{
		Context: translateContext{From: req.From, To: req.To},
		Service: serviceSpec{Async: req.Async},
	}
	if len(req.Text) == 1 {
		payload.Context.Text = req.Text[0]
	} else {
		payload.Context.Text = req.Text
	}
	switch {
	case req.Provider != "":
		payload.Service.Provider = req.Provider
	case req.Routing != "":
		payload.Service.Routing = req.Routing
	default:
		payload.Service.Provider = c.provider
		payload.Service.Model = c.model
	}

	var reply submissionReply
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL, payload, &reply); err != nil {
		return nil, err
	}
	if msg := errorPayload(reply.Error); msg != "" {
		return nil, fmt.Errorf("intento: translate rejected: %s: %w", msg, domain.ErrProviderResponse)
	}

	sub := &Submission{
		OperationID: reply.ID,
		Results:     reply.Results,
		Provider:    firstProvider(reply.Meta),
	}
	switch {
	case len(reply.Results) > 0:
		sub.Done = true
	case reply.ID != "" && !reply.Done:
		// deferred; caller polls the operation
	default:
		return nil, fmt.Errorf("intento: unexpected translate response shape: %w", domain.ErrMalformedResponse)
	}
	c.logger.Debug().
		Str("operation_id", sub.OperationID).
		Bool("inline", sub.Done).
		Bool("async", req.Async).
		Int("texts", len(req.Text)).
		Msg("intento: translation submitted")
	return sub, nil
}

// Operation fetches the state of one deferred translation.
func (c *Client) Operation(ctx context.Context, operationID string) (*Operation, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	if operationID == "" {
		return nil, errors.New("intento: operation id is required")
	}

	endpoint := c.operationsURL + "/" + url.PathEscape(operationID)
	var reply operationReply
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &reply); err != nil {
		return nil, err
	}
	if msg := errorPayload(reply.Error); msg != "" {
		return nil, fmt.Errorf("intento: operation %s failed: %s: %w", operationID, msg, domain.ErrProviderResponse)
	}
	if !reply.Done {
		return &Operation{}, nil
	}
	if len(reply.Response) == 0 || len(reply.Response[0].Results) == 0 {
		return nil, fmt.Errorf("intento: operation %s finished without results: %w", operationID, domain.ErrMalformedResponse)
	}
	op := &Operation{
		Done:     true,
		Results:  reply.Response[0].Results,
		Provider: reply.Response[0].Service.Provider,
	}
	if op.Provider.Name == "" {
		op.Provider = firstProvider(reply.Meta)
	}
	return op, nil
}

// Providers lists the available translation providers.
func (c *Client) Providers(ctx context.Context) ([]ProviderListing, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	var listings []ProviderListing
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL, nil, &listings); err != nil {
		return nil, err
	}
	return listings, nil
}

// Languages returns the raw supported-language catalog.
func (c *Client) Languages(ctx context.Context) (json.RawMessage, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/languages", nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// RoutingProfiles lists the available smart-routing profiles.
func (c *Client) RoutingProfiles(ctx context.Context) ([]RoutingProfile, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	var reply routingReply
	if err := c.doJSON(ctx, http.MethodGet, c.routingURL, nil, &reply); err != nil {
		return nil, err
	}
	return reply.Data, nil
}

// doJSON runs one gateway request through the circuit breaker. Transport,
// status, and decode failures count against the breaker; error payloads in
// otherwise-valid replies are classified by the callers.
func (c *Client) doJSON(ctx context.Context, method, endpoint string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("intento: encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("intento: build request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	_, err = c.breaker.Execute(func() (any, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("intento: %s %s: %v: %w", method, endpoint, err, domain.ErrProviderRequest)
		}
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("intento: read response: %v: %w", err, domain.ErrProviderRequest)
		}
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("intento: status %d: %s: %w", resp.StatusCode, excerpt(raw), domain.ErrProviderRequest)
		}
		if out != nil {
			if err := json.Unmarshal(raw, out); err != nil {
				return nil, fmt.Errorf("intento: decode response: %v: %w", err, domain.ErrMalformedResponse)
			}
		}
		return nil, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("intento: circuit open: %v: %w", err, domain.ErrProviderRequest)
	}
	return err
}

func errorPayload(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return trimmed
}

func firstProvider(meta replyMeta) ProviderInfo {
	if len(meta.Providers) == 0 {
		return ProviderInfo{}
	}
	return meta.Providers[0]
}

func excerpt(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		return s[:200]
	}
	return s
}
