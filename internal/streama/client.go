// Package streama is the REST client for a Streama media server: login,
// catalog listings, search, media details and authenticated file access.
package streama

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"streamadesk/internal/domain"
	"streamadesk/internal/stream"
)

const (
	metadataTimeout = 15 * time.Second
	loginTimeout    = 10 * time.Second
	imageTimeout    = 10 * time.Second

	defaultTMDBImageBase = "https://image.tmdb.org/t/p/"
	userAgent            = "StreamaDesk/1.0"
)

// Options configures a Client.
type Options struct {
	BaseURL          string // e.g. "https://media.example.com:8080"
	InsecureSSL      bool
	TMDBImageBaseURL string
	Logger           *slog.Logger
}

// Client talks to one Streama server. Auth cookies captured at login live in
// the client's jar and ride along on every request. Safe for concurrent use.
type Client struct {
	baseURL       string
	tmdbImageBase string
	logger        *slog.Logger
	http          *http.Client
	jar           *sessionJar
}

// sessionJar guards the cookie jar so Logout can swap it out while requests
// are in flight.
type sessionJar struct {
	mu  sync.RWMutex
	jar *cookiejar.Jar
}

func newSessionJar() (*sessionJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &sessionJar{jar: jar}, nil
}

func (j *sessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	j.jar.SetCookies(u, cookies)
}

func (j *sessionJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.jar.Cookies(u)
}

// reset replaces the jar, dropping every stored cookie.
func (j *sessionJar) reset() {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return
	}
	j.mu.Lock()
	j.jar = jar
	j.mu.Unlock()
}

func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		return nil, domain.ErrNotConfigured
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	jar, err := newSessionJar()
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.InsecureSSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	imageBase := opts.TMDBImageBaseURL
	if imageBase == "" {
		imageBase = defaultTMDBImageBase
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:       base,
		tmdbImageBase: imageBase,
		logger:        logger,
		jar:           jar,
		http: &http.Client{
			Timeout:   metadataTimeout,
			Jar:       jar,
			Transport: otelhttp.NewTransport(transport),
		},
	}, nil
}

func (c *Client) BaseURL() string { return c.baseURL }

type loginResponse struct {
	Success  bool   `json:"success"`
	Username string `json:"username"`
	Error    string `json:"error"`
}

// Login authenticates against the server. On success the session cookies
// are captured into the client's jar.
func (c *Client) Login(ctx context.Context, username, password string) error {
	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)
	form.Set("remember_me", "on")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/login/authenticate", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("User-Agent", userAgent)

	var out loginResponse
	if err := c.doJSON(req, &out); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if !out.Success {
		if out.Error != "" {
			return fmt.Errorf("login rejected: %s", out.Error)
		}
		return fmt.Errorf("login rejected")
	}
	c.logger.Info("logged in", slog.String("username", out.Username))
	return nil
}

// Logout drops the captured session cookies. Client-side only, matching the
// server's cookie-based session model.
func (c *Client) Logout() {
	c.jar.reset()
}

// SessionCookies returns the auth cookies captured at login, in jar order,
// for forwarding on the raw streaming request.
func (c *Client) SessionCookies() []stream.Cookie {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil
	}
	raw := c.jar.Cookies(u)
	cookies := make([]stream.Cookie, 0, len(raw))
	for _, ck := range raw {
		cookies = append(cookies, stream.Cookie{Name: ck.Name, Value: ck.Value})
	}
	return cookies
}

// LoggedIn reports whether a login captured at least one session cookie.
func (c *Client) LoggedIn() bool {
	return len(c.SessionCookies()) > 0
}

// ListMovies returns one page of the movie catalog.
func (c *Client) ListMovies(ctx context.Context, max, offset int) (domain.MediaPage, error) {
	return c.listPage(ctx, "/dash/listMovies.json", max, offset)
}

// ListShows returns one page of the TV show catalog.
func (c *Client) ListShows(ctx context.Context, max, offset int) (domain.MediaPage, error) {
	return c.listPage(ctx, "/dash/listShows.json", max, offset)
}

// ListGenericVideos returns one page of the generic video catalog.
func (c *Client) ListGenericVideos(ctx context.Context, max, offset int) (domain.MediaPage, error) {
	return c.listPage(ctx, "/dash/listGenericVideos.json", max, offset)
}

func (c *Client) listPage(ctx context.Context, endpoint string, max, offset int) (domain.MediaPage, error) {
	if max <= 0 {
		max = 50
	}
	q := url.Values{}
	q.Set("max", strconv.Itoa(max))
	q.Set("offset", strconv.Itoa(offset))

	var page domain.MediaPage
	if err := c.getJSON(ctx, endpoint+"?"+q.Encode(), &page); err != nil {
		return domain.MediaPage{}, err
	}
	return page, nil
}

// ContinueWatching returns the server's in-progress list. Unlike the catalog
// pages this endpoint responds with a bare array.
func (c *Client) ContinueWatching(ctx context.Context, max int) ([]domain.MediaItem, error) {
	if max <= 0 {
		max = 50
	}
	var items []domain.MediaItem
	err := c.getJSON(ctx, "/dash/listContinueWatching.json?max="+strconv.Itoa(max), &items)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Search queries all media kinds at once.
func (c *Client) Search(ctx context.Context, query string) (domain.SearchResult, error) {
	var out domain.SearchResult
	err := c.getJSON(ctx, "/dash/searchMedia.json?query="+url.QueryEscape(query), &out)
	if err != nil {
		return domain.SearchResult{}, err
	}
	return out, nil
}

// VideoDetails fetches a single movie or generic video.
func (c *Client) VideoDetails(ctx context.Context, id int64) (domain.MediaItem, error) {
	var out domain.MediaItem
	err := c.getJSON(ctx, "/video/show.json?id="+strconv.FormatInt(id, 10), &out)
	return out, err
}

// ShowDetails fetches a single TV show.
func (c *Client) ShowDetails(ctx context.Context, id int64) (domain.MediaItem, error) {
	var out domain.MediaItem
	err := c.getJSON(ctx, "/tvShow/show.json?id="+strconv.FormatInt(id, 10), &out)
	return out, err
}

// Episodes lists every episode of a TV show.
func (c *Client) Episodes(ctx context.Context, showID int64) ([]domain.Episode, error) {
	var out []domain.Episode
	err := c.getJSON(ctx, "/tvShow/episodesForTvShow.json?id="+strconv.FormatInt(showID, 10), &out)
	return out, err
}

// HasTMDBKey reports whether the server has TheMovieDB configured, which
// decides whether relative poster paths can be resolved.
func (c *Client) HasTMDBKey(ctx context.Context) (bool, error) {
	var out struct {
		Key bool `json:"key"`
	}
	if err := c.getJSON(ctx, "/theMovieDb/hasKey.json", &out); err != nil {
		return false, err
	}
	return out.Key, nil
}

// StreamURL resolves the direct-serve URL for a file. No network call.
func (c *Client) StreamURL(file domain.FileRef) (string, error) {
	if c.baseURL == "" {
		return "", domain.ErrNotConfigured
	}
	ext := file.Extension
	if ext == "" {
		ext = "mp4"
	}
	ext = strings.TrimPrefix(ext, ".")
	return fmt.Sprintf("%s/file/serve/%d.%s", c.baseURL, file.ID, ext), nil
}

// DownloadSubtitle fetches a caption file over the authenticated session.
func (c *Client) DownloadSubtitle(ctx context.Context, sub domain.SubtitleRef) ([]byte, error) {
	u, err := c.StreamURL(domain.FileRef{ID: sub.ID, Extension: "srt"})
	if err != nil {
		return nil, err
	}
	return c.getBytes(ctx, u, metadataTimeout)
}

// ImageURL resolves a poster path: absolute URLs pass through, relative TMDB
// paths get the configured image base prefixed.
func (c *Client) ImageURL(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.tmdbImageBase + "w342" + ensureLeadingSlash(path)
}

// DownloadImage fetches a poster over the session, following ImageURL rules.
func (c *Client) DownloadImage(ctx context.Context, path string) ([]byte, error) {
	u := c.ImageURL(path)
	if u == "" {
		return nil, domain.ErrNotFound
	}
	return c.getBytes(ctx, u, imageTimeout)
}

func (c *Client) getJSON(ctx context.Context, endpoint string, dst any) error {
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	return c.doJSON(req, dst)
}

// doJSON executes req, enforces a 2xx status and decodes the body into dst.
// Errors include the status and a short body snippet for diagnosis.
func (c *Client) doJSON(req *http.Request, dst any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("http %d from %s: %s", resp.StatusCode, req.URL.Path, snippet(body))
	}
	if dst == nil {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode %s: %w; body: %q", req.URL.Path, err, snippet(body))
	}
	return nil
}

func (c *Client) getBytes(ctx context.Context, rawURL string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d from %s", resp.StatusCode, req.URL.Path)
	}
	return io.ReadAll(resp.Body)
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 240 {
		s = s[:240] + "..."
	}
	return s
}

func ensureLeadingSlash(s string) string {
	if strings.HasPrefix(s, "/") {
		return s
	}
	return "/" + s
}
