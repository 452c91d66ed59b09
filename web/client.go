package web

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
	"time"

	"go.uber.org/zap"

	"github.com/Eudes8/Compta/piece"
	"github.com/Eudes8/Compta/port"
	"github.com/Eudes8/Compta/telemetry"
)

var _ port.Port = (*Client)(nil)

// Client implements port.Port against a Server.
//
// Answers map back to the port error kinds: 422 becomes a
// *port.BusinessRejection, 404 port.ErrNotFound, anything else (including a
// failure to connect) a *port.TransportError.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	logger  *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout bounds every call, on top of the caller's context. It applies
// to the HTTP client given with WithHTTPClient as well, whatever the order.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithClientLogger logs failed calls.
func WithClientLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the server at baseURL, e.g.
// "http://127.0.0.1:8080".
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", baseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q: expected http(s)://host[:port]", baseURL)
	}

	c := &Client{base: u, http: &http.Client{}, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c, nil
}

// call performs one request. out may be nil. It returns the status code so
// callers can tell 204 apart.
func (c *Client) call(ctx context.Context, op, method, path string, query url.Values, body, out any) (int, error) {
	timer := telemetry.FromContext(ctx).Start("web.client " + op)
	defer timer.End()

	u := *c.base
	u.Path += path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("backend call failed", zap.String("op", op), zap.Error(err))
		return 0, port.Transport(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return resp.StatusCode, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return resp.StatusCode, nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, port.Transport(op, fmt.Errorf("decode response: %w", err))
		}
		return resp.StatusCode, nil
	}

	var problem ProblemJSON
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &problem); err != nil || problem.Message == "" {
		problem.Message = strings.TrimSpace(string(data))
	}

	switch {
	case problem.Kind == "rejected" || resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusForbidden:
		return resp.StatusCode, &port.BusinessRejection{Op: op, Message: problem.Message}
	case resp.StatusCode == http.StatusNotFound:
		return resp.StatusCode, fmt.Errorf("%s: %w", op, port.ErrNotFound)
	}
	c.logger.Warn("backend answered with an error",
		zap.String("op", op), zap.Int("status", resp.StatusCode), zap.String("message", problem.Message))
	return resp.StatusCode, &port.TransportError{Op: op, Err: fmt.Errorf("server answered %d: %s", resp.StatusCode, problem.Message)}
}

func escape(segment string) string {
	return url.PathEscape(segment)
}

// Journals lists every journal.
func (c *Client) Journals(ctx context.Context) ([]port.JournalInfo, error) {
	var out []JournalJSON
	if _, err := c.call(ctx, "journals", http.MethodGet, "/api/journals", nil, nil, &out); err != nil {
		return nil, err
	}
	journals := make([]port.JournalInfo, 0, len(out))
	for _, j := range out {
		journals = append(journals, j.info())
	}
	return journals, nil
}

func (j JournalJSON) info() port.JournalInfo {
	return port.JournalInfo{Code: j.Code, Label: j.Label, Kind: port.JournalKind(j.Kind), LastNumber: j.LastNumber}
}

func (c *Client) SuggestNextNumber(ctx context.Context, journal string) (string, error) {
	var out NumberJSON
	if _, err := c.call(ctx, "suggest number", http.MethodGet, "/api/journals/"+escape(journal)+"/next-number", nil, nil, &out); err != nil {
		return "", err
	}
	return out.Number, nil
}

func (c *Client) FetchJournalInfo(ctx context.Context, journal string) (port.JournalInfo, error) {
	var out JournalJSON
	if _, err := c.call(ctx, "fetch journal", http.MethodGet, "/api/journals/"+escape(journal), nil, nil, &out); err != nil {
		return port.JournalInfo{}, err
	}
	return out.info(), nil
}

func (c *Client) FetchDocument(ctx context.Context, number string) (*port.Document, error) {
	var out DocumentJSON
	if _, err := c.call(ctx, "fetch document", http.MethodGet, "/api/documents/"+escape(number), nil, nil, &out); err != nil {
		return nil, err
	}
	doc, err := out.document()
	if err != nil {
		return nil, port.Transport("fetch document", err)
	}
	return doc, nil
}

func (c *Client) FetchAdjacentDocument(ctx context.Context, journal, number string, dir port.Direction) (*port.Document, error) {
	query := url.Values{"direction": {string(dir)}}
	if number != "" {
		query.Set("number", number)
	}

	var out DocumentJSON
	status, err := c.call(ctx, "fetch adjacent", http.MethodGet, "/api/journals/"+escape(journal)+"/adjacent", query, nil, &out)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent {
		return nil, nil
	}
	doc, err := out.document()
	if err != nil {
		return nil, port.Transport("fetch adjacent", err)
	}
	return doc, nil
}

func lookupQuery(query string, kind port.JournalKind, limit int) url.Values {
	values := url.Values{"q": {query}}
	if kind != "" {
		values.Set("kind", string(kind))
	}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	return values
}

func (c *Client) SearchAccounts(ctx context.Context, query string, kind port.JournalKind, limit int) ([]port.AccountMatch, error) {
	var out []port.AccountMatch
	if _, err := c.call(ctx, "search accounts", http.MethodGet, "/api/accounts", lookupQuery(query, kind, limit), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SearchCounterparties(ctx context.Context, query string, kind port.JournalKind, limit int) ([]port.CounterpartyMatch, error) {
	var out []port.CounterpartyMatch
	if _, err := c.call(ctx, "search counterparties", http.MethodGet, "/api/counterparties", lookupQuery(query, kind, limit), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SaveDocument(ctx context.Context, header piece.Header, lines []piece.Line) (port.SaveResult, error) {
	body := DocumentJSON{Header: toHeaderJSON(header), Lines: toLinesJSON(lines)}

	var out SaveResultJSON
	if _, err := c.call(ctx, "save document", http.MethodPost, "/api/documents", nil, body, &out); err != nil {
		return port.SaveResult{}, err
	}
	return port.SaveResult{Success: out.Success, SavedNumber: out.SavedNumber, Message: out.Message}, nil
}

func (c *Client) DeleteDocument(ctx context.Context, number string) (port.DeleteResult, error) {
	var out DeleteResultJSON
	if _, err := c.call(ctx, "delete document", http.MethodDelete, "/api/documents/"+escape(number), nil, nil, &out); err != nil {
		return port.DeleteResult{}, err
	}
	return port.DeleteResult{Success: out.Success, Message: out.Message}, nil
}

func (c *Client) SearchDocuments(ctx context.Context, criteria port.SearchCriteria) ([]port.DocumentSummary, error) {
	query := url.Values{}
	set := func(key, value string) {
		if value != "" {
			query.Set(key, value)
		}
	}
	set("journal", criteria.Journal)
	set("number", criteria.Number)
	set("from", formatDate(criteria.From))
	set("to", formatDate(criteria.To))
	if criteria.Amount.Valid {
		set("amount", criteria.Amount.Decimal.String())
	}

	var out []SummaryJSON
	if _, err := c.call(ctx, "search documents", http.MethodGet, "/api/documents", query, nil, &out); err != nil {
		return nil, err
	}

	summaries := make([]port.DocumentSummary, 0, len(out))
	for _, s := range out {
		date, err := parseDate(s.Date)
		if err != nil {
			return nil, port.Transport("search documents", err)
		}
		summaries = append(summaries, port.DocumentSummary{
			Number:    s.Number,
			Journal:   s.Journal,
			Date:      date,
			Reference: s.Reference,
			Total:     s.Total,
		})
	}
	return summaries, nil
}
