package travelline

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/nayzeok/tourist-tour-back/internal/adapters/observability"
	"github.com/nayzeok/tourist-tour-back/internal/domain"
)

// Client is the authorized wrapper around the partner inventory API. Every
// call injects the current access token; a 401/403 forces one token
// refresh and one replay before the failure is surfaced.
type Client struct {
	base   string
	hc     *http.Client
	tokens *TokenManager
	rl     *rate.Limiter
}

func NewClient(base string, tokens *TokenManager, rps int) (*Client, error) {
	if tokens == nil {
		return nil, fmt.Errorf("token manager is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base:   strings.TrimRight(base, "/"),
		hc:     &http.Client{Timeout: 20 * time.Second},
		tokens: tokens,
		rl:     rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// ---- InventoryClient surface ----

func (c *Client) ListCities(ctx context.Context, countryCode string) ([]domain.City, error) {
	u := fmt.Sprintf("%s/geo/cities?countryCode=%s", c.base, url.QueryEscape(countryCode))
	var out []cityPayload
	if err := c.do(ctx, http.MethodGet, "cities", u, nil, &out); err != nil {
		return nil, err
	}
	cities := make([]domain.City, 0, len(out))
	for _, p := range out {
		cities = append(cities, p.toDomain())
	}
	return cities, nil
}

func (c *Client) GetPropertyContent(ctx context.Context, propertyID int64) (domain.PropertyContent, error) {
	u := fmt.Sprintf("%s/properties/%d", c.base, propertyID)
	var out propertyPayload
	if err := c.do(ctx, http.MethodGet, "property-content", u, nil, &out); err != nil {
		return domain.PropertyContent{}, err
	}
	return out.toDomain(), nil
}

func (c *Client) ListPropertyIDs(ctx context.Context, cityID int64) ([]int64, error) {
	u := fmt.Sprintf("%s/geo/cities/%d/properties", c.base, cityID)
	var out struct {
		PropertyIDs []int64 `json:"propertyIds"`
	}
	if err := c.do(ctx, http.MethodGet, "city-properties", u, nil, &out); err != nil {
		return nil, err
	}
	return out.PropertyIDs, nil
}

func (c *Client) SearchRoomStays(ctx context.Context, propertyIDs []int64, stay domain.StayQuery) ([]domain.RoomStayOffer, error) {
	body, err := json.Marshal(newSearchRequest(propertyIDs, stay))
	if err != nil {
		return nil, err
	}
	u := c.base + "/search/room-stays"
	var out roomStaysResponse
	if err := c.do(ctx, http.MethodPost, "search-room-stays", u, body, &out); err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

func (c *Client) PropertyRoomStays(ctx context.Context, propertyID int64, stay domain.StayQuery) ([]domain.RoomStayOffer, error) {
	q := url.Values{
		"arrivalDate":   {stay.Arrival.UTC().Format("2006-01-02")},
		"departureDate": {stay.Departure.UTC().Format("2006-01-02")},
		"adults":        {strconv.Itoa(stay.Adults)},
		"currency":      {strings.ToUpper(stay.Currency)},
	}
	for _, a := range stay.ChildAges {
		q.Add("childAges", strconv.Itoa(a))
	}
	u := fmt.Sprintf("%s/properties/%d/room-stays?%s", c.base, propertyID, q.Encode())
	var out roomStaysResponse
	if err := c.do(ctx, http.MethodGet, "room-stays", u, nil, &out); err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

func (c *Client) PropertyRoomStaysSearch(ctx context.Context, propertyID int64, stay domain.StayQuery) ([]domain.RoomStayOffer, error) {
	body, err := json.Marshal(newSearchRequest([]int64{propertyID}, stay))
	if err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/properties/%d/room-stays/search", c.base, propertyID)
	var out roomStaysResponse
	if err := c.do(ctx, http.MethodPost, "room-stays-search", u, body, &out); err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

// ---- Internals ----

// do performs one authorized call with client-side rate limiting. 429 and
// transient 5xx are retried with Retry-After/backoff; 401/403 triggers a
// single forced token refresh and replay. Anything else non-2xx becomes an
// UpstreamError carrying the structured message list, if the body had one.
func (c *Client) do(ctx context.Context, method, endpoint, rawURL string, body []byte, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	refreshed := false
	var lastErr error
	for attempt := 0; attempt < 4; attempt++ {
		tok, err := c.tokens.Token(ctx)
		if err != nil {
			return err
		}

		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, rd)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+tok)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "tourist-tour-back/1.0")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if attempt < 3 && sleepCtx(ctx, backoff(attempt)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveUpstream(endpoint, resp.StatusCode, time.Since(start))

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if out == nil {
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				return nil
			}
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("decode %s response: %w", endpoint, err)
			}
			return nil

		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if refreshed {
				// one forced refresh already happened; give up
				return fmt.Errorf("%w: %s returned %d twice", domain.ErrUpstreamAuth, endpoint, resp.StatusCode)
			}
			refreshed = true
			if _, err := c.tokens.Refresh(ctx); err != nil {
				return err
			}
			continue // replay exactly once with the fresh token

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			wait := retryAfter(resp)
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(attempt)
			}
			lastErr = &domain.UpstreamError{Status: resp.StatusCode}
			if attempt < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			msgs := readErrorMessages(resp.Body)
			resp.Body.Close()
			return &domain.UpstreamError{Status: resp.StatusCode, Messages: msgs}
		}
	}
	return lastErr
}

// readErrorMessages extracts the structured message list some upstream
// errors carry. Both {"errors":[{"message":...}]} and {"messages":[...]}
// shapes occur in the wild.
func readErrorMessages(r io.Reader) []string {
	b, _ := io.ReadAll(io.LimitReader(r, 8192))
	var structured struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
		Messages []string `json:"messages"`
	}
	if err := json.Unmarshal(b, &structured); err != nil {
		if s := strings.TrimSpace(string(b)); s != "" {
			return []string{s}
		}
		return nil
	}
	var msgs []string
	for _, e := range structured.Errors {
		if e.Message != "" {
			msgs = append(msgs, e.Message)
		}
	}
	msgs = append(msgs, structured.Messages...)
	return msgs
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). 0 if absent.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential delay (150ms, 300ms, 600ms...) with up to
// +50% jitter so concurrent retries spread out.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 150 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
