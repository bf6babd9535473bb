package streama

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"streamadesk/internal/domain"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(Options{
		BaseURL: baseURL,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(Options{}); err != domain.ErrNotConfigured {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestLoginCapturesSessionCookies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/login/authenticate" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("username") != "demo" || r.PostForm.Get("remember_me") != "on" {
			t.Errorf("unexpected form: %v", r.PostForm)
		}
		if r.Header.Get("X-Requested-With") != "XMLHttpRequest" {
			t.Errorf("missing XHR header")
		}
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "deadbeef", Path: "/"})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"username":"demo"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	if c.LoggedIn() {
		t.Fatal("logged in before login")
	}
	if err := c.Login(context.Background(), "demo", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}

	cookies := c.SessionCookies()
	if len(cookies) != 1 || cookies[0].Name != "JSESSIONID" || cookies[0].Value != "deadbeef" {
		t.Fatalf("cookies = %v", cookies)
	}
	if !c.LoggedIn() {
		t.Fatal("not logged in after login")
	}

	c.Logout()
	if c.LoggedIn() {
		t.Fatal("still logged in after logout")
	}
}

func TestLogoutSafeWithConcurrentCookieReads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "deadbeef", Path: "/"})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"username":"demo"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	if err := c.Login(context.Background(), "demo", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = c.SessionCookies()
				c.Logout()
			}
		}()
	}
	wg.Wait()

	if c.LoggedIn() {
		t.Fatal("still logged in after logout")
	}
}

func TestLoginRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":false,"error":"Invalid credentials"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	err := c.Login(context.Background(), "demo", "wrong")
	if err == nil || !strings.Contains(err.Error(), "Invalid credentials") {
		t.Fatalf("err = %v", err)
	}
}

func TestListMoviesPagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/dash/listMovies.json" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		if q.Get("max") != "50" || q.Get("offset") != "100" {
			t.Errorf("query = %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total":123,"list":[
			{"id":7,"title":"Blade Runner","mediaType":"movie",
			 "files":[{"id":70,"extension":".mp4","size":1000}],
			 "subtitles":[{"id":71,"originalFilename":"en.srt"}]}
		]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	page, err := c.ListMovies(context.Background(), 50, 100)
	if err != nil {
		t.Fatalf("list movies: %v", err)
	}
	if page.Total != 123 || len(page.List) != 1 {
		t.Fatalf("page = %+v", page)
	}
	m := page.List[0]
	if m.DisplayTitle() != "Blade Runner" || len(m.Files) != 1 || m.Files[0].ID != 70 {
		t.Fatalf("item = %+v", m)
	}
}

func TestSearchFlattensResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("query"); got != "blade runner" {
			t.Errorf("query = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"movies":[{"id":1,"title":"Blade Runner"}],
			"shows":[{"id":2,"name":"Blade Runner: The Series"}],
			"genericVideos":[]
		}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	res, err := c.Search(context.Background(), "blade runner")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	all := res.All()
	if len(all) != 2 {
		t.Fatalf("got %d results", len(all))
	}
	if all[1].DisplayTitle() != "Blade Runner: The Series" {
		t.Fatalf("second result = %+v", all[1])
	}
}

func TestContinueWatchingBareArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":9,"title":"Half Watched"}]`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	items, err := c.ContinueWatching(context.Background(), 50)
	if err != nil {
		t.Fatalf("continue watching: %v", err)
	}
	if len(items) != 1 || items[0].ID != 9 {
		t.Fatalf("items = %+v", items)
	}
}

func TestEpisodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tvShow/episodesForTvShow.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":30,"name":"Pilot","season_number":1,"episode_number":1},
			{"id":31,"name":"Two","season_number":1,"episode_number":2}
		]`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	eps, err := c.Episodes(context.Background(), 2)
	if err != nil {
		t.Fatalf("episodes: %v", err)
	}
	if len(eps) != 2 || eps[1].EpisodeNumber != 2 {
		t.Fatalf("episodes = %+v", eps)
	}
}

func TestStreamURL(t *testing.T) {
	c := newTestClient(t, "https://media.example.com:8443")

	tests := []struct {
		file domain.FileRef
		want string
	}{
		{domain.FileRef{ID: 42, Extension: "mkv"}, "https://media.example.com:8443/file/serve/42.mkv"},
		{domain.FileRef{ID: 42, Extension: ".mp4"}, "https://media.example.com:8443/file/serve/42.mp4"},
		{domain.FileRef{ID: 7}, "https://media.example.com:8443/file/serve/7.mp4"},
	}
	for _, tt := range tests {
		got, err := c.StreamURL(tt.file)
		if err != nil {
			t.Fatalf("stream url: %v", err)
		}
		if got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}

func TestImageURL(t *testing.T) {
	c := newTestClient(t, "http://localhost:8080")

	if got := c.ImageURL("http://cdn.example.com/p.jpg"); got != "http://cdn.example.com/p.jpg" {
		t.Errorf("absolute passthrough: %q", got)
	}
	if got := c.ImageURL("/abc.jpg"); got != "https://image.tmdb.org/t/p/w342/abc.jpg" {
		t.Errorf("relative: %q", got)
	}
	if got := c.ImageURL(""); got != "" {
		t.Errorf("empty: %q", got)
	}
}

func TestErrorIncludesStatusAndSnippet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "session expired", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.ListShows(context.Background(), 50, 0)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "401") || !strings.Contains(err.Error(), "session expired") {
		t.Fatalf("err = %v", err)
	}
}
