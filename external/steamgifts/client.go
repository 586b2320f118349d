// Package steamgifts is the scraping client for the giveaway site. All remote
// reads and writes of the engine go through it.
package steamgifts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	crerr "github.com/cockroachdb/errors"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"github.com/riskibarqy/gifthawk/internal/domain/account"
	"github.com/riskibarqy/gifthawk/internal/domain/listing"
	"github.com/riskibarqy/gifthawk/internal/platform/logging"
	"github.com/riskibarqy/gifthawk/internal/platform/resilience"
	"github.com/riskibarqy/gifthawk/internal/usecase"
)

const (
	defaultBaseURL     = "https://www.steamgifts.com"
	defaultUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	sessionCookieName  = "PHPSESSID"
	maxResponseBytes   = 6 << 20
	defaultHTTPTimeout = 20 * time.Second
)

var sessionCookieRegex = regexp.MustCompile(`PHPSESSID=[^;&\s"']+`)
var errSteamGiftsTransient = crerr.New("steamgifts transient failure")

// Session is the credential pair needed to act as the operator's account.
type Session struct {
	SessionID string
	UserAgent string
}

// SessionProvider yields the current session before each request, so a
// settings update takes effect without rebuilding the client.
type SessionProvider interface {
	CurrentSession(ctx context.Context) (Session, error)
}

type ClientConfig struct {
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	Sessions       SessionProvider
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

type Client struct {
	pages          *http.Client
	ajax           *http.Client
	baseURL        string
	sessions       SessionProvider
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight

	tokenMu   sync.Mutex
	xsrfToken string
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	retry := retryablehttp.NewClient()
	retry.RetryMax = maxInt(cfg.MaxRetries, 0)
	retry.HTTPClient.Timeout = timeout
	retry.Logger = nil

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		pages:          retry.StandardClient(),
		ajax:           &http.Client{Timeout: timeout},
		baseURL:        baseURL,
		sessions:       cfg.Sessions,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

// FetchListingsPage scrapes one search page. Page entries marked is-faded by
// the site arrive with IsEntered already set.
func (c *Client) FetchListingsPage(ctx context.Context, page int, filters usecase.ScanFilters) ([]listing.Listing, error) {
	if page <= 0 {
		page = 1
	}

	values := url.Values{}
	values.Set("page", strconv.Itoa(page))
	if filters.Wishlist {
		values.Set("type", "wishlist")
	}
	if filters.DLC {
		values.Set("dlc", "true")
	}
	if q := strings.TrimSpace(filters.Query); q != "" {
		values.Set("q", q)
	}

	doc, err := c.fetchDocument(ctx, "/giveaways/search?"+values.Encode())
	if err != nil {
		return nil, fmt.Errorf("fetch listings page=%d: %w", page, err)
	}

	now := time.Now().UTC()
	items := parseListingsPage(doc, now)
	for i := range items {
		items[i].IsWishlisted = filters.Wishlist
		if filters.DLC {
			items[i].IsDLC = true
		}
		if items[i].URL != "" && !strings.HasPrefix(items[i].URL, "http") {
			items[i].URL = c.baseURL + items[i].URL
		}
	}
	return items, nil
}

// SubmitEntry posts the entry form for one giveaway code. A rejected entry is
// not an error: the outcome carries the site's reason.
func (c *Client) SubmitEntry(ctx context.Context, code string) (usecase.EntryOutcome, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return usecase.EntryOutcome{}, fmt.Errorf("%w: giveaway code is required", usecase.ErrInvalidInput)
	}

	token, err := c.currentXSRFToken(ctx)
	if err != nil {
		return usecase.EntryOutcome{}, err
	}

	form := url.Values{}
	form.Set("xsrf_token", token)
	form.Set("do", "entry_insert")
	form.Set("code", code)

	raw, err := c.postAjax(ctx, form)
	if err != nil {
		return usecase.EntryOutcome{}, err
	}

	if gjson.GetBytes(raw, "type").String() == "success" {
		return usecase.EntryOutcome{Success: true}, nil
	}

	reason := strings.TrimSpace(gjson.GetBytes(raw, "msg").String())
	if reason == "" {
		reason = "entry rejected"
	}

	// A stale form token is recoverable: refresh it once and retry.
	if isTokenError(reason) {
		if token, err = c.refreshXSRFToken(ctx); err != nil {
			return usecase.EntryOutcome{}, err
		}
		form.Set("xsrf_token", token)
		raw, err = c.postAjax(ctx, form)
		if err != nil {
			return usecase.EntryOutcome{}, err
		}
		if gjson.GetBytes(raw, "type").String() == "success" {
			return usecase.EntryOutcome{Success: true}, nil
		}
		if msg := strings.TrimSpace(gjson.GetBytes(raw, "msg").String()); msg != "" {
			reason = msg
		}
	}

	return usecase.EntryOutcome{Success: false, Reason: reason}, nil
}

// FetchAccountState scrapes the landing page header. The points counter only
// renders for authenticated users, so its absence marks the session invalid.
func (c *Client) FetchAccountState(ctx context.Context) (account.State, error) {
	doc, err := c.fetchDocument(ctx, "/")
	if err != nil {
		return account.State{}, fmt.Errorf("fetch account state: %w", err)
	}

	now := time.Now().UTC()
	points, ok := parseAccountPoints(doc)
	if !ok {
		return account.State{SessionValid: false, SyncedAt: &now}, nil
	}

	if token := parseXSRFToken(doc); token != "" {
		c.storeXSRFToken(token)
	}

	return account.State{
		CurrentPoints: points,
		Username:      parseUsername(doc),
		SessionValid:  true,
		SyncedAt:      &now,
	}, nil
}

// HideListing hides every giveaway of the game on the remote site.
func (c *Client) HideListing(ctx context.Context, gameID string) error {
	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return fmt.Errorf("%w: game id is required", usecase.ErrInvalidInput)
	}

	token, err := c.currentXSRFToken(ctx)
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("xsrf_token", token)
	form.Set("do", "hide_giveaways_by_game_id")
	form.Set("game_id", gameID)

	if _, err := c.postAjax(ctx, form); err != nil {
		return fmt.Errorf("hide game_id=%s: %w", gameID, err)
	}
	return nil
}

// FetchWonListings returns the giveaway codes on the first won page.
func (c *Client) FetchWonListings(ctx context.Context) ([]string, error) {
	doc, err := c.fetchDocument(ctx, "/giveaways/won")
	if err != nil {
		return nil, fmt.Errorf("fetch won listings: %w", err)
	}
	return parseTableCodes(doc), nil
}

// FetchEnteredListings returns the giveaway codes on the first entered page.
func (c *Client) FetchEnteredListings(ctx context.Context) ([]string, error) {
	doc, err := c.fetchDocument(ctx, "/giveaways/entered")
	if err != nil {
		return nil, fmt.Errorf("fetch entered listings: %w", err)
	}
	return parseTableCodes(doc), nil
}

// FetchListingDescription loads the giveaway detail page and returns its
// description text for safety evaluation.
func (c *Client) FetchListingDescription(ctx context.Context, code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("%w: giveaway code is required", usecase.ErrInvalidInput)
	}

	doc, err := c.fetchDocument(ctx, "/giveaway/"+code+"/")
	if err != nil {
		return "", fmt.Errorf("fetch listing description code=%s: %w", code, err)
	}
	return parseDescription(doc), nil
}

func (c *Client) fetchDocument(ctx context.Context, path string) (*goquery.Document, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "steamgifts circuit breaker rejected request", "state", c.breaker.State())
			return nil, fmt.Errorf("%w: giveaway site is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	out, err, _ := c.flight.Do(path, func() (any, error) {
		raw, reqErr := c.executeGet(ctx, c.baseURL+path)
		if c.circuitEnabled {
			if reqErr != nil && crerr.Is(reqErr, errSteamGiftsTransient) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return nil, err
	}

	raw, ok := out.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected response payload type %T", out)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return doc, nil
}

func (c *Client) executeGet(ctx context.Context, fullURL string) ([]byte, error) {
	session, err := c.currentSession(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.decorateRequest(req, session)

	resp, err := c.pages.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: send request: %s", errSteamGiftsTransient, sanitizeSensitiveText(err.Error(), session.SessionID))
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %v", errSteamGiftsTransient, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if isRetryableStatus(resp.StatusCode) {
			return nil, fmt.Errorf("%w: site status=%d", errSteamGiftsTransient, resp.StatusCode)
		}
		return nil, fmt.Errorf("site status=%d", resp.StatusCode)
	}
	return raw, nil
}

func (c *Client) postAjax(ctx context.Context, form url.Values) ([]byte, error) {
	session, err := c.currentSession(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ajax.php", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.decorateRequest(req, session)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	// Entry submissions are not idempotent: one attempt, no transport retries.
	resp, err := c.ajax.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: send ajax request: %s", errSteamGiftsTransient, sanitizeSensitiveText(err.Error(), session.SessionID))
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read ajax response: %v", errSteamGiftsTransient, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ajax status=%d", resp.StatusCode)
	}
	return raw, nil
}

func (c *Client) decorateRequest(req *http.Request, session Session) {
	userAgent := session.UserAgent
	if strings.TrimSpace(userAgent) == "" {
		userAgent = defaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)
	if session.SessionID != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: session.SessionID})
	}
}

func (c *Client) currentSession(ctx context.Context) (Session, error) {
	if c.sessions == nil {
		return Session{}, nil
	}
	session, err := c.sessions.CurrentSession(ctx)
	if err != nil {
		return Session{}, fmt.Errorf("resolve session: %w", err)
	}
	return session, nil
}

func (c *Client) currentXSRFToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	token := c.xsrfToken
	c.tokenMu.Unlock()
	if token != "" {
		return token, nil
	}
	return c.refreshXSRFToken(ctx)
}

func (c *Client) refreshXSRFToken(ctx context.Context) (string, error) {
	doc, err := c.fetchDocument(ctx, "/")
	if err != nil {
		return "", fmt.Errorf("refresh form token: %w", err)
	}
	token := parseXSRFToken(doc)
	if token == "" {
		return "", fmt.Errorf("%w: landing page carries no form token", usecase.ErrSessionInvalid)
	}
	c.storeXSRFToken(token)
	return token, nil
}

func (c *Client) storeXSRFToken(token string) {
	c.tokenMu.Lock()
	c.xsrfToken = token
	c.tokenMu.Unlock()
}

func isTokenError(reason string) bool {
	lowered := strings.ToLower(reason)
	return strings.Contains(lowered, "token") || strings.Contains(lowered, "xsrf")
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func sanitizeSensitiveText(value, sessionID string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	if sessionID != "" {
		value = strings.ReplaceAll(value, sessionID, "REDACTED")
	}
	return sessionCookieRegex.ReplaceAllString(value, "PHPSESSID=REDACTED")
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
