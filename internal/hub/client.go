package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nerrad567/habridge/internal/infrastructure/config"
)

// maxErrorBodyBytes bounds how much of an error response body is read for
// inclusion in error messages.
const maxErrorBodyBytes = 512

// Logger defines the logging interface used by the Client.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Client issues REST calls against the upstream automation hub.
//
// It normalizes hub responses into the shared EntityState and
// ServiceCatalog shapes so the cache and synchronizer never branch on
// raw payloads.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     Logger
}

// New creates a hub client from configuration.
//
// Parameters:
//   - cfg: Hub connection settings (URL, bearer token, timeout)
//
// Returns:
//   - *Client: Client ready for use
func New(cfg config.HubConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the client.
func (c *Client) SetLogger(logger Logger) {
	c.logger = logger
}

// FetchAllStates retrieves the state of every entity from the hub.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//
// Returns:
//   - []EntityState: All entity state records
//   - error: If the request fails or the response cannot be decoded
func (c *Client) FetchAllStates(ctx context.Context) ([]EntityState, error) {
	var states []EntityState
	if err := c.getJSON(ctx, "/api/states", &states); err != nil {
		return nil, err
	}
	c.logger.Debug("retrieved all states", "count", len(states))
	return states, nil
}

// FetchState retrieves a single entity's state from the hub.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - entityID: Entity identifier in domain.object_id form
//
// Returns:
//   - *EntityState: The entity's current record
//   - error: ErrEntityNotFound if the hub reports 404, otherwise request errors
func (c *Client) FetchState(ctx context.Context, entityID string) (*EntityState, error) {
	var state EntityState
	if err := c.getJSON(ctx, "/api/states/"+entityID, &state); err != nil {
		return nil, err
	}
	c.logger.Debug("retrieved state", "entity_id", entityID)
	return &state, nil
}

// SetState writes an entity state to the hub.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - entityID: Entity identifier
//   - state: New state value
//   - attributes: Optional attribute map
//
// Returns:
//   - *EntityState: The record as stored by the hub
//   - error: If the request fails
func (c *Client) SetState(ctx context.Context, entityID, state string, attributes map[string]any) (*EntityState, error) {
	payload := map[string]any{"state": state}
	if len(attributes) > 0 {
		payload["attributes"] = attributes
	}

	var result EntityState
	if err := c.postJSON(ctx, "/api/states/"+entityID, payload, &result); err != nil {
		return nil, err
	}
	c.logger.Info("set state", "entity_id", entityID, "state", state)
	return &result, nil
}

// CallService invokes a hub service (e.g., light.turn_on).
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - domain: Service domain
//   - service: Service name
//   - data: Optional service data (target entity, parameters)
//
// Returns:
//   - []EntityState: States changed by the call, as reported by the hub
//   - error: If the request fails
func (c *Client) CallService(ctx context.Context, domain, service string, data map[string]any) ([]EntityState, error) {
	if data == nil {
		data = map[string]any{}
	}

	var changed []EntityState
	if err := c.postJSON(ctx, "/api/services/"+domain+"/"+service, data, &changed); err != nil {
		return nil, err
	}
	c.logger.Info("called service", "domain", domain, "service", service, "changed", len(changed))
	return changed, nil
}

// FetchServices retrieves the service catalog from the hub.
//
// The hub may report services either as a domain-keyed map or as a list
// of per-domain records; both forms are normalized into a ServiceCatalog.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//
// Returns:
//   - ServiceCatalog: domain -> service -> description
//   - error: If the request fails or the response cannot be decoded
func (c *Client) FetchServices(ctx context.Context) (ServiceCatalog, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/api/services", &raw); err != nil {
		return nil, err
	}

	catalog, err := normalizeServices(raw)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("retrieved services", "domains", len(catalog))
	return catalog, nil
}

// normalizeServices converts either catalog wire form into a ServiceCatalog.
func normalizeServices(raw json.RawMessage) (ServiceCatalog, error) {
	// Map form: {"light": {"turn_on": {...}}}
	var asMap ServiceCatalog
	if err := json.Unmarshal(raw, &asMap); err == nil {
		return asMap, nil
	}

	// List form: [{"domain": "light", "services": {"turn_on": {...}}}]
	var asList []struct {
		Domain   string         `json:"domain"`
		Services map[string]any `json:"services"`
	}
	if err := json.Unmarshal(raw, &asList); err != nil {
		return nil, fmt.Errorf("%w: service catalog: %w", ErrDecodeFailed, err)
	}

	catalog := make(ServiceCatalog, len(asList))
	for _, record := range asList {
		if record.Domain == "" {
			continue
		}
		if _, exists := catalog[record.Domain]; !exists {
			catalog[record.Domain] = make(map[string]any, len(record.Services))
		}
		for name, desc := range record.Services {
			catalog[record.Domain][name] = desc
		}
	}
	return catalog, nil
}

// FetchConfig retrieves the hub configuration snapshot.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//
// Returns:
//   - *Info: Hub configuration
//   - error: If the request fails
func (c *Client) FetchConfig(ctx context.Context) (*Info, error) {
	var info Info
	if err := c.getJSON(ctx, "/api/config", &info); err != nil {
		return nil, err
	}
	c.logger.Debug("retrieved hub config", "version", info.Version)
	return &info, nil
}

// CheckConnection reports whether the hub API answers at all.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//
// Returns:
//   - bool: true if the hub responded with HTTP 200
func (c *Client) CheckConnection(ctx context.Context) bool {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("hub connection check failed", "error", err)
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// getJSON issues a GET request and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// postJSON issues a POST request with a JSON body and decodes the response into out.
func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: encoding request: %w", ErrRequestFailed, err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// newRequest builds an authenticated request against the hub.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", ErrRequestFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	return req, nil
}

// do executes a request and decodes a successful JSON response into out.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrRequestFailed, req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, req.URL.Path)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return fmt.Errorf("%w: %s %s: status %d: %s",
			ErrStatusNotOK, req.Method, req.URL.Path, resp.StatusCode, string(snippet))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDecodeFailed, req.URL.Path, err)
	}
	return nil
}
