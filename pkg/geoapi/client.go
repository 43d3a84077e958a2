package geoapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"github.com/adrianmross/geo-tree/internal/logger"
	"github.com/adrianmross/geo-tree/internal/metrics"
	"github.com/adrianmross/geo-tree/pkg/geo"
)

// DefaultCitiesPageSize is the number of cities requested per state.
const DefaultCitiesPageSize = 30

// Error is a GraphQL or transport level failure reported by the server.
type Error struct {
	Operation string
	Status    int
	Messages  []string
}

func (e *Error) Error() string {
	msg := strings.Join(e.Messages, "; ")
	if e.Status != 0 && e.Status != http.StatusOK {
		return fmt.Sprintf("%s: http %d: %s", e.Operation, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s", e.Operation, msg)
}

// Client runs the four lookups against a GraphQL endpoint.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
	cache    Cache
	cacheTTL time.Duration
	group    singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds every request, cache lookups excluded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d, Transport: c.http.Transport}
		}
	}
}

// WithToken sends the token as a bearer Authorization header.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithCache stores successful responses in cache for ttl.
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

// New returns a client for endpoint.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

type gqlError struct {
	Message string `json:"message"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

// flexID accepts ids encoded as JSON numbers or strings.
type flexID int64

func (f *flexID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("id %s: %w", string(b), err)
	}
	*f = flexID(v)
	return nil
}

type wireRecord struct {
	ID          flexID `json:"id"`
	Name        string `json:"name"`
	StateCode   string `json:"state_code"`
	CountryCode string `json:"country_code"`
	ISO2        string `json:"iso2"`
}

func (w wireRecord) record() geo.Record {
	return geo.Record{
		ID:          int64(w.ID),
		Name:        w.Name,
		StateCode:   w.StateCode,
		CountryCode: w.CountryCode,
		ISO2:        w.ISO2,
	}
}

type connection struct {
	Edges []struct {
		Node wireRecord `json:"node"`
	} `json:"edges"`
}

func (c connection) records() []geo.Record {
	out := make([]geo.Record, 0, len(c.Edges))
	for _, e := range c.Edges {
		out = append(out, e.Node.record())
	}
	return out
}

// CountriesByRegion lists the countries of a region.
func (c *Client) CountriesByRegion(ctx context.Context, region string) ([]geo.Record, error) {
	var data struct {
		Countries connection `json:"countries"`
	}
	vars := map[string]any{"region": region}
	if err := c.run(ctx, opCountriesByRegion, countriesByRegionQuery, vars, &data); err != nil {
		return nil, err
	}
	return data.Countries.records(), nil
}

// StatesByCountry lists the states of a country.
func (c *Client) StatesByCountry(ctx context.Context, countryID int64) ([]geo.Record, error) {
	var data struct {
		States connection `json:"states"`
	}
	vars := map[string]any{"countryId": countryID}
	if err := c.run(ctx, opStatesByCountry, statesByCountryQuery, vars, &data); err != nil {
		return nil, err
	}
	return data.States.records(), nil
}

// StateByCode resolves a state from its code pair. A null state is ErrNotFound.
func (c *Client) StateByCode(ctx context.Context, stateCode, countryCode string) (geo.Record, error) {
	var data struct {
		State *wireRecord `json:"state"`
	}
	vars := map[string]any{"stateCode": stateCode, "countryCode": countryCode}
	if err := c.run(ctx, opStateByCode, stateByCodeQuery, vars, &data); err != nil {
		return geo.Record{}, err
	}
	if data.State == nil {
		return geo.Record{}, fmt.Errorf("state %s/%s: %w", countryCode, stateCode, geo.ErrNotFound)
	}
	return data.State.record(), nil
}

// CitiesByState lists up to first cities of a state.
func (c *Client) CitiesByState(ctx context.Context, stateID int64, countryCode string, first int) ([]geo.Record, error) {
	if first <= 0 {
		first = DefaultCitiesPageSize
	}
	var data struct {
		Cities connection `json:"cities"`
	}
	vars := map[string]any{"stateId": stateID, "countryCode": countryCode, "first": first}
	if err := c.run(ctx, opCitiesByState, citiesByStateQuery, vars, &data); err != nil {
		return nil, err
	}
	return data.Cities.records(), nil
}

// run resolves the data payload from cache or the server and decodes it
// into out. Identical in-flight requests share one round trip.
func (c *Client) run(ctx context.Context, op, query string, vars map[string]any, out any) error {
	keyVars, err := json.Marshal(vars)
	if err != nil {
		return fmt.Errorf("%s: encode variables: %w", op, err)
	}
	key := op + ":" + string(keyVars)

	if c.cache != nil {
		raw, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			logger.L().Warn("geoapi_cache_get_error", "key", key, "err", err)
		} else if ok {
			metrics.CacheHitsTotal.Inc()
			logger.L().Debug("geoapi_cache_hit", "key", key)
			return decodeData(op, raw, out)
		}
		metrics.CacheMissesTotal.Inc()
	}

	ch := c.group.DoChan(key, func() (any, error) {
		return c.post(context.WithoutCancel(ctx), op, query, vars)
	})
	var raw json.RawMessage
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		raw = res.Val.(json.RawMessage)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, raw, c.cacheTTL); err != nil {
			logger.L().Warn("geoapi_cache_set_error", "key", key, "err", err)
		}
	}
	return decodeData(op, raw, out)
}

func decodeData(op string, raw []byte, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode data: %w", op, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, op, query string, vars map[string]any) (json.RawMessage, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("%s: graphql endpoint required", op)
	}
	body, err := json.Marshal(request{Query: query, OperationName: op, Variables: vars})
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	t0 := time.Now()
	metrics.GraphQLRequestsTotal.WithLabelValues(op).Inc()
	logger.L().Debug("graphql_req", "op", op, "vars", vars)
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.GraphQLFailTotal.WithLabelValues(op).Inc()
		logger.L().Error("graphql_http_error", "op", op, "err", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		metrics.GraphQLFailTotal.WithLabelValues(op).Inc()
		return nil, fmt.Errorf("%s: read response: %w", op, err)
	}
	dur := time.Since(t0).Milliseconds()
	metrics.GraphQLDurationMs.Observe(float64(dur))

	var r response
	if err := json.Unmarshal(payload, &r); err != nil {
		metrics.GraphQLFailTotal.WithLabelValues(op).Inc()
		if resp.StatusCode != http.StatusOK {
			return nil, &Error{Operation: op, Status: resp.StatusCode, Messages: []string{http.StatusText(resp.StatusCode)}}
		}
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}
	if len(r.Errors) > 0 || resp.StatusCode != http.StatusOK {
		metrics.GraphQLFailTotal.WithLabelValues(op).Inc()
		e := &Error{Operation: op, Status: resp.StatusCode}
		for _, ge := range r.Errors {
			e.Messages = append(e.Messages, ge.Message)
		}
		if len(e.Messages) == 0 {
			e.Messages = []string{http.StatusText(resp.StatusCode)}
		}
		logger.L().Error("graphql_error", "op", op, "status", resp.StatusCode, "err", e)
		return nil, e
	}
	if len(r.Data) == 0 || string(r.Data) == "null" {
		metrics.GraphQLFailTotal.WithLabelValues(op).Inc()
		return nil, &Error{Operation: op, Status: resp.StatusCode, Messages: []string{"empty data"}}
	}
	logger.L().Debug("graphql_resp", "op", op, "bytes", len(r.Data), "duration_ms", dur)
	return r.Data, nil
}
