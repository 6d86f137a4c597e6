// Package airtable implements store.RecordStore over the Airtable REST API.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/YelzhanWeb/lunchbox/internal/adapter/logger"
	"github.com/YelzhanWeb/lunchbox/internal/config"
	"github.com/YelzhanWeb/lunchbox/internal/store"
)

// maxBatch is the API's limit of records per create, update or delete call.
const maxBatch = 10

type Client struct {
	http         *http.Client
	baseURL      string
	baseID       string
	apiKey       string
	maxRetries   uint64
	retryInitial time.Duration
	logger       logger.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithRetry sets how often rate-limited calls are retried and the first wait.
func WithRetry(maxRetries uint64, initial time.Duration) Option {
	return func(cl *Client) {
		cl.maxRetries = maxRetries
		cl.retryInitial = initial
	}
}

func NewClient(cfg config.StoreConfig, lgr logger.Logger, opts ...Option) *Client {
	c := &Client{
		http:         &http.Client{Timeout: cfg.Timeout},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		baseID:       cfg.BaseID,
		apiKey:       cfg.APIKey,
		maxRetries:   4,
		retryInitial: 500 * time.Millisecond,
		logger:       lgr,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

var _ store.RecordStore = (*Client)(nil)

type listResponse struct {
	Records []store.Record `json:"records"`
	Offset  string         `json:"offset"`
}

type recordsBody struct {
	Records  []store.Record `json:"records"`
	Typecast bool           `json:"typecast,omitempty"`
}

func (c *Client) List(ctx context.Context, table string, q store.Query) (store.Page, error) {
	params := url.Values{}
	if q.Filter != nil {
		params.Set("filterByFormula", q.Filter.Formula())
	}
	for _, f := range q.Fields {
		params.Add("fields[]", f)
	}
	for i, s := range q.Sort {
		params.Set(fmt.Sprintf("sort[%d][field]", i), s.Field)
		if s.Direction != "" {
			params.Set(fmt.Sprintf("sort[%d][direction]", i), string(s.Direction))
		}
	}
	if q.PageSize > 0 {
		params.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	if q.Offset != "" {
		params.Set("offset", q.Offset)
	}

	var resp listResponse
	if err := c.do(ctx, http.MethodGet, table, "", params, nil, &resp); err != nil {
		return store.Page{}, err
	}
	return store.Page{Records: resp.Records, Offset: resp.Offset}, nil
}

func (c *Client) Get(ctx context.Context, table, id string) (store.Record, error) {
	var rec store.Record
	if err := c.do(ctx, http.MethodGet, table, id, nil, nil, &rec); err != nil {
		return store.Record{}, err
	}
	return rec, nil
}

func (c *Client) Create(ctx context.Context, table string, records []store.Record) ([]store.Record, error) {
	out := make([]store.Record, 0, len(records))
	for _, batch := range chunk(records) {
		body := recordsBody{Typecast: true}
		for _, r := range batch {
			body.Records = append(body.Records, store.Record{Fields: r.Fields})
		}
		var resp recordsBody
		if err := c.do(ctx, http.MethodPost, table, "", nil, body, &resp); err != nil {
			return out, err
		}
		out = append(out, resp.Records...)
	}
	return out, nil
}

func (c *Client) Update(ctx context.Context, table string, records []store.Record) ([]store.Record, error) {
	out := make([]store.Record, 0, len(records))
	for _, batch := range chunk(records) {
		body := recordsBody{Typecast: true}
		for _, r := range batch {
			body.Records = append(body.Records, store.Record{ID: r.ID, Fields: r.Fields})
		}
		var resp recordsBody
		if err := c.do(ctx, http.MethodPatch, table, "", nil, body, &resp); err != nil {
			return out, err
		}
		out = append(out, resp.Records...)
	}
	return out, nil
}

func (c *Client) Delete(ctx context.Context, table string, ids []string) error {
	for start := 0; start < len(ids); start += maxBatch {
		end := min(start+maxBatch, len(ids))
		params := url.Values{}
		for _, id := range ids[start:end] {
			params.Add("records[]", id)
		}
		if err := c.do(ctx, http.MethodDelete, table, "", params, nil, nil); err != nil {
			return err
		}
	}
	return nil
}

func chunk(records []store.Record) [][]store.Record {
	var out [][]store.Record
	for start := 0; start < len(records); start += maxBatch {
		out = append(out, records[start:min(start+maxBatch, len(records))])
	}
	return out
}

// do sends one request, retrying rate limits with exponential backoff. Server
// errors are retried too except on POST, where the records may already exist.
func (c *Client) do(ctx context.Context, method, table, id string, params url.Values, body, out any) error {
	endpoint := c.baseURL + "/" + url.PathEscape(c.baseID) + "/" + url.PathEscape(table)
	if id != "" {
		endpoint += "/" + url.PathEscape(id)
	}
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("%s %s: %w", method, table, err))
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to read response: %w", err))
		}

		if resp.StatusCode == http.StatusTooManyRequests ||
			(resp.StatusCode >= 500 && method != http.MethodPost) {
			return decodeError(table, resp.StatusCode, raw)
		}
		if resp.StatusCode >= 300 {
			return backoff.Permanent(decodeError(table, resp.StatusCode, raw))
		}
		if out == nil || len(raw) == 0 {
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
		}
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.retryInitial
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, c.maxRetries), ctx)

	return backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		c.logger.Warn("store_retry", "Record store call throttled, retrying", "", map[string]interface{}{
			"table":   table,
			"method":  method,
			"wait_ms": wait.Milliseconds(),
			"error":   err.Error(),
		})
	})
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("airtable %d %s: %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("airtable %d %s", e.StatusCode, e.Type)
}

var fieldNamePattern = regexp.MustCompile(`"([^"]+)"`)

func decodeError(table string, status int, raw []byte) error {
	apiErr := &APIError{StatusCode: status, Type: http.StatusText(status)}

	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(raw, &envelope) == nil && len(envelope.Error) > 0 {
		var detail struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		}
		var code string
		switch {
		case json.Unmarshal(envelope.Error, &detail) == nil:
			apiErr.Type, apiErr.Message = detail.Type, detail.Message
		case json.Unmarshal(envelope.Error, &code) == nil:
			apiErr.Type = code
		}
	}

	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", store.ErrNotFound, apiErr.Error())
	case apiErr.Type == "UNKNOWN_FIELD_NAME":
		field := ""
		if m := fieldNamePattern.FindStringSubmatch(apiErr.Message); m != nil {
			field = m[1]
		}
		return errors.Join(&store.UnknownFieldError{Table: table, Field: field}, apiErr)
	default:
		return apiErr
	}
}
