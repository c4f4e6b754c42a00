package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/xeipuuv/gojsonschema"

	"github.com/statuskit/statusd/internal/config"
	"github.com/statuskit/statusd/internal/domain"
)

// RESTProbe checks a server by calling its plain HTTP health endpoint.
// NewRESTProbe should be used to create instances of RESTProbe.
type RESTProbe struct {
	logger hclog.Logger
	client *http.Client
}

// NewRESTProbe creates a REST probe. The supplied client may be nil, in
// which case a default client is used.
func NewRESTProbe(logger hclog.Logger, client *http.Client) *RESTProbe {
	if client == nil {
		client = &http.Client{}
	}
	return &RESTProbe{
		logger: logger.Named("probe-rest"),
		client: client,
	}
}

// Probe performs a single GET against the server's REST health endpoint.
// Any 2xx status is healthy; the body is optional and only validated when
// the server entry carries a JSON Schema for it.
func (p *RESTProbe) Probe(ctx context.Context, entry config.ServerEntry) domain.RESTHealthCheckResult {
	result := domain.RESTHealthCheckResult{
		ServerName:        entry.Name,
		Timestamp:         time.Now().UTC(),
		HealthEndpointURL: entry.RESTHealthEndpoint,
	}

	probeCtx, cancel := context.WithTimeout(ctx, entry.RESTTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, entry.RESTHealthEndpoint, nil)
	if err != nil {
		result.ConnectionError = fmt.Sprintf("failed to build request: %v", err)
		return result
	}
	req.Header.Set("Accept", "application/json")
	if entry.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+entry.AuthToken)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	result.ResponseTime = time.Since(start)
	if err != nil {
		result.ConnectionError = connectionErrorString(probeCtx, err)
		p.logger.Debug("REST probe failed", "server", entry.Name, "error", result.ConnectionError)
		return result
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	result.ResponseTime = time.Since(start)
	if err != nil {
		result.ConnectionError = connectionErrorString(probeCtx, err)
		return result
	}

	result.StatusCode = resp.StatusCode

	// The body is opaque: decode it when it parses as a JSON object and
	// carry on silently when it does not.
	var parsed map[string]any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &parsed); err == nil {
			result.ResponseBody = parsed
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		result.HTTPError = httpErrorString(resp.StatusCode, parsed)
		return result
	}

	if schema := strings.TrimSpace(entry.RESTBodySchema); schema != "" {
		result.ValidationErrors = validateBody(schema, parsed)
	}

	result.Success = len(result.ValidationErrors) == 0
	return result
}

// httpErrorString combines the status code with any message the server
// included in its JSON body.
func httpErrorString(statusCode int, body map[string]any) string {
	msg := fmt.Sprintf("HTTP %d %s", statusCode, http.StatusText(statusCode))
	if body != nil {
		for _, key := range []string{"message", "error", "detail"} {
			if v, ok := body[key].(string); ok && v != "" {
				return fmt.Sprintf("%s: %s", msg, v)
			}
		}
	}
	return msg
}

// validateBody checks the parsed health body against the configured JSON Schema.
func validateBody(schema string, body map[string]any) []string {
	if body == nil {
		return []string{"health body is missing or not a JSON object"}
	}

	res, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewGoLoader(body),
	)
	if err != nil {
		return []string{fmt.Sprintf("failed to validate health body: %v", err)}
	}
	if res.Valid() {
		return nil
	}

	errs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		errs = append(errs, e.String())
	}
	return errs
}
