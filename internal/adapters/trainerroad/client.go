// Package trainerroad is an HTTP client for the TrainerRoad app API.
// It speaks the same cookie-session dialect the web app does: a login
// form handshake guarded by an anti-forgery token, then api calls under
// /app/api/* authenticated by the shared auth cookie
package trainerroad

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	perr "trcli/internal/platform/errors"
	"trcli/internal/platform/logger"
)

const (
	baseURLDefault     = "https://www.trainerroad.com"
	defaultTimeout     = 30 * time.Second
	defaultUA          = "trainerroad-cli/0.1 (unofficial; personal data export; +https://www.trainerroad.com)"
	sessionFileDefault = ".trainerroad/session.json"

	// AuthCookie is the cookie that marks a session as authenticated
	AuthCookie = "SharedTrainerRoadAuth"

	jsonFormatHeader = "trainerroad-jsonformat"
	cacheHeader      = "tr-cache-control"
	idsHeader        = "ids"

	// ids per detail request; the endpoint rejects bigger batches
	idBatchSize = 100

	maxBodyBytes  = 8 << 20
	errorTailSize = 2048
)

var (
	verificationTokenPattern = regexp.MustCompile(`(?i)name="__RequestVerificationToken"\s+type="hidden"\s+value="([^"]+)"`)
	returnURLPattern         = regexp.MustCompile(`(?i)id="ReturnUrl"\s+name="ReturnUrl"\s+type="hidden"\s+value="([^"]+)"`)
)

// Options configures the Client
type Options struct {
	BaseURL     string
	UserAgent   string
	Timeout     time.Duration
	SessionFile string

	// Credentials for Login; api calls only need a loaded session
	Username string
	Password string
}

// Client holds the cookie jar and the session store. Not safe for
// concurrent use; the jar mutates on every response
type Client struct {
	http      *http.Client
	httpNoFwd *http.Client
	opts      Options
	jar       *Jar
	store     *SessionStore
	log       logger.Logger
	now       func() time.Time
}

// NewClient creates a Client with sane defaults
func NewClient(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.SessionFile == "" {
		o.SessionFile = sessionFileDefault
	}
	return &Client{
		http: &http.Client{Timeout: o.Timeout},
		httpNoFwd: &http.Client{
			Timeout: o.Timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		opts:  o,
		jar:   NewJar(nil),
		store: NewSessionStore(o.SessionFile),
		log:   *logger.Named("trainerroad"),
		now:   time.Now,
	}
}

// Username returns the configured login username, "" when none
func (c *Client) Username() string { return c.opts.Username }

// HasAuthCookie reports whether the jar carries the auth cookie
func (c *Client) HasAuthCookie() bool { return c.jar.Has(AuthCookie) }

// LoadSession restores the jar from the session file. A missing or
// unreadable file leaves the jar empty and reports false
func (c *Client) LoadSession() bool {
	sess, ok := c.store.Load()
	if !ok {
		return false
	}
	c.jar = NewJar(sess.Cookies)
	return true
}

// SaveSession persists the jar; mutate is applied to the session record
// before writing
func (c *Client) SaveSession(mutate func(*Session)) error {
	sess := Session{
		Cookies:   c.jar.Snapshot(),
		UpdatedAt: c.now().UTC().Format(time.RFC3339),
	}
	if mutate != nil {
		mutate(&sess)
	}
	return c.store.Save(sess)
}

// ClearSession empties the jar and removes the session file
func (c *Client) ClearSession() error {
	c.jar = NewJar(nil)
	return c.store.Clear()
}

// StatusError is a non-2xx upstream response with a truncated body tail
// for diagnostics
type StatusError struct {
	Status int
	Path   string
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed: %d for %s -> %s", e.Status, e.Path, e.Body)
}

// do issues one request. It owns the ambient headers (user agent,
// accept, cookie) and folds response Set-Cookie values back into the
// jar, last write wins
func (c *Client) do(ctx context.Context, method, path string, hdr http.Header, body io.Reader, followRedirects bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.opts.BaseURL+path, body)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "trainerroad new request failed")
	}
	for name, values := range hdr {
		for _, v := range values {
			req.Header.Set(name, v)
		}
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json, text/plain, */*")
	}
	if cookie := c.jar.Header(); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	client := c.http
	if !followRedirects {
		client = c.httpNoFwd
	}

	start := c.now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUpstream, "trainerroad request failed")
	}

	c.jar.ApplySetCookies(resp.Header.Values("Set-Cookie"))
	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", c.now().Sub(start)).
		Msg("trainerroad http response")
	return resp, nil
}

// requestJSON issues a request and decodes a 2xx JSON body into out.
// Non-2xx responses become an upstream error carrying a StatusError
func (c *Client) requestJSON(ctx context.Context, method, path string, hdr http.Header, body io.Reader, out any) error {
	resp, err := c.do(ctx, method, path, hdr, body, true)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Error().Err(cerr).Str("path", path).Msg("trainerroad close body failed")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		tail, _ := io.ReadAll(io.LimitReader(resp.Body, errorTailSize))
		return perr.Wrap(
			&StatusError{Status: resp.StatusCode, Path: path, Body: strings.TrimSpace(string(tail))},
			perr.ErrorCodeUpstream,
			"trainerroad request failed",
		)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUpstream, "trainerroad read body failed")
	}
	if out == nil {
		return nil
	}
	// a non-JSON body where JSON was expected is an upstream fault,
	// same bucket as a non-2xx status
	if err := unmarshalJSON(data, out); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUpstream, "trainerroad decode %s failed", path)
	}
	return nil
}

// LoginResult reports where the post-login redirect pointed
type LoginResult struct {
	Redirect      string `json:"redirect"`
	HasAuthCookie bool   `json:"hasAuthCookie"`
}

// Login performs the two-step form handshake: fetch the login page for
// the hidden anti-forgery fields, then post the credentials. Success is
// a 3xx redirect that set the auth cookie; the session is persisted
// before returning
func (c *Client) Login(ctx context.Context, returnPath string) (LoginResult, error) {
	if c.opts.Username == "" || c.opts.Password == "" {
		return LoginResult{}, perr.AuthFailedf("username and password are required for login")
	}
	if returnPath == "" {
		returnPath = "/app/career/" + c.opts.Username
	}
	if !strings.HasPrefix(returnPath, "/") {
		returnPath = "/" + returnPath
	}
	loginPath := "/app/login?ReturnUrl=" + url.QueryEscape(returnPath)

	pageHdr := http.Header{}
	pageHdr.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	page, err := c.do(ctx, http.MethodGet, loginPath, pageHdr, nil, false)
	if err != nil {
		return LoginResult{}, err
	}
	html, readErr := io.ReadAll(io.LimitReader(page.Body, maxBodyBytes))
	if cerr := page.Body.Close(); cerr != nil {
		c.log.Error().Err(cerr).Msg("trainerroad close login page failed")
	}
	if readErr != nil {
		return LoginResult{}, perr.Wrapf(readErr, perr.ErrorCodeUpstream, "trainerroad read login page failed")
	}

	token := verificationTokenPattern.FindSubmatch(html)
	if token == nil {
		return LoginResult{}, perr.AuthFailedf("could not locate the verification token on the login page")
	}
	returnURL := returnURLPattern.FindSubmatch(html)
	if returnURL == nil {
		return LoginResult{}, perr.AuthFailedf("could not locate the ReturnUrl field on the login page")
	}

	form := url.Values{}
	form.Set("Username", c.opts.Username)
	form.Set("Password", c.opts.Password)
	form.Set("ReturnUrl", string(returnURL[1]))
	form.Set("__RequestVerificationToken", string(token[1]))

	postHdr := http.Header{}
	postHdr.Set("Content-Type", "application/x-www-form-urlencoded")
	postHdr.Set("Origin", c.opts.BaseURL)
	postHdr.Set("Referer", c.opts.BaseURL+loginPath)
	resp, err := c.do(ctx, http.MethodPost, "/app/login", postHdr, strings.NewReader(form.Encode()), false)
	if err != nil {
		return LoginResult{}, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Error().Err(cerr).Msg("trainerroad close login response failed")
		}
	}()

	if resp.StatusCode < 300 || resp.StatusCode > 399 {
		tail, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return LoginResult{}, perr.AuthFailedf(
			"login did not redirect: status %d body %s", resp.StatusCode, strings.TrimSpace(string(tail)))
	}
	if !c.jar.Has(AuthCookie) {
		return LoginResult{}, perr.AuthFailedf("login redirect succeeded but the auth cookie is missing")
	}

	location := resp.Header.Get("Location")
	if err := c.SaveSession(func(s *Session) {
		s.AuthenticatedAt = c.now().UTC().Format(time.RFC3339)
		s.LastLoginRedirect = location
	}); err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Redirect: location, HasAuthCookie: true}, nil
}
