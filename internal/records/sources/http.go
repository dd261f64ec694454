package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cast"

	"anthemengine/internal/records"
)

// ── HTTP Source ─────────────────────────────────────────────
// Queries a REST data API. Responses carry
// { "records": [ { "fields": {...} }, ... ] }.
//
// Two request styles are supported:
//   - json: POST the query as a JSON document to url.
//   - soql: GET url?q=SELECT ... with the query rendered as SOQL.

type httpSource struct {
	client *http.Client
}

func init() { records.RegisterSource(&httpSource{client: &http.Client{Timeout: 30 * time.Second}}) }

func (s *httpSource) Spec() records.SourceSpec {
	return records.SourceSpec{
		Type:  "http",
		Label: "HTTP Data API",
		ConfigFields: []records.ConfigField{
			{Key: "url", Label: "URL", Required: true, Help: "Query endpoint (e.g., https://example.my.org/services/data/v58.0/query)"},
			{Key: "style", Label: "Request Style", Default: "json", Help: "json (POST query document) or soql (GET ?q=)"},
			{Key: "headers", Label: "Headers", Help: "JSON object of headers (e.g., {\"Authorization\": \"Bearer xxx\"})"},
			{Key: "token", Label: "Bearer Token", Help: "Sent as Authorization: Bearer <token>"},
		},
	}
}

// responseBody is the data API's query result shape.
type responseBody struct {
	Records []struct {
		Fields map[string]any `json:"fields"`
	} `json:"records"`
}

func (s *httpSource) Fetch(ctx context.Context, cfg records.SourceConfig, q records.Query) ([]records.Record, error) {
	req, err := buildRequest(ctx, cfg, q)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var body responseBody
	if err := decodeJSON(data, &body); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	out := make([]records.Record, 0, len(body.Records))
	for _, r := range body.Records {
		out = append(out, records.Record{Data: r.Fields})
	}
	return out, nil
}

func buildRequest(ctx context.Context, cfg records.SourceConfig, q records.Query) (*http.Request, error) {
	endpoint, _ := cfg["url"].(string)
	if endpoint == "" {
		return nil, fmt.Errorf("url is required")
	}

	style, _ := cfg["style"].(string)
	var (
		req *http.Request
		err error
	)
	switch style {
	case "", "json":
		payload, merr := json.Marshal(q)
		if merr != nil {
			return nil, fmt.Errorf("encode query: %w", merr)
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
		}
	case "soql":
		u, perr := url.Parse(endpoint)
		if perr != nil {
			return nil, fmt.Errorf("parse url: %w", perr)
		}
		params := u.Query()
		params.Set("q", SOQL(q))
		u.RawQuery = params.Encode()
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	default:
		return nil, fmt.Errorf("unsupported request style: %q", style)
	}
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	// Parse headers.
	if headersStr, ok := cfg["headers"].(string); ok && headersStr != "" {
		var headers map[string]string
		if err := json.Unmarshal([]byte(headersStr), &headers); err != nil {
			return nil, fmt.Errorf("parse headers: %w", err)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
	}
	if token, ok := cfg["token"].(string); ok && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// SOQL renders q as a SOQL statement. String literals are escaped.
func SOQL(q records.Query) string {
	var b strings.Builder
	fields := q.Fields
	if len(fields) == 0 {
		fields = []string{"Id"}
	}
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(fields, ", "), q.Object)
	if q.Where != "" {
		fmt.Fprintf(&b, " WHERE %s = %s", q.Where, soqlLiteral(q.Equals))
	}
	if len(q.OrderBy) > 0 {
		fmt.Fprintf(&b, " ORDER BY %s", strings.Join(q.OrderBy, ", "))
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	return b.String()
}

func soqlLiteral(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool, int, int32, int64, float32, float64, json.Number:
		return cast.ToString(v)
	}
	s := cast.ToString(v)
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
