package apihttp

import (
	"net/http"
	"strings"

	"streamadesk/internal/domain"
	"streamadesk/internal/metrics"
)

// pageSize matches the server's dashboard pagination.
const pageSize = 50

func (s *Server) handleLibrary(kind domain.MediaType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
			return
		}
		page, err := parseOptionalIntQuery(r.URL.Query().Get("page"), 1)
		if err != nil || page < 1 {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid page")
			return
		}
		offset := (page - 1) * pageSize

		var result domain.MediaPage
		switch kind {
		case domain.MediaTVShow:
			result, err = s.catalog.ListShows(r.Context(), pageSize, offset)
		case domain.MediaGeneric:
			result, err = s.catalog.ListGenericVideos(r.Context(), pageSize, offset)
		default:
			result, err = s.catalog.ListMovies(r.Context(), pageSize, offset)
		}
		if err != nil {
			metrics.APIRequestsTotal.WithLabelValues("library", "error").Inc()
			writeDomainError(w, err)
			return
		}
		metrics.APIRequestsTotal.WithLabelValues("library", "ok").Inc()
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) handleContinueWatching(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	items, err := s.catalog.ContinueWatching(r.Context(), pageSize)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if items == nil {
		items = []domain.MediaItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	// Matches the minimum-length guard the search box applies before firing.
	if len(query) < 2 {
		writeError(w, http.StatusBadRequest, "invalid_request", "query must be at least 2 characters")
		return
	}
	result, err := s.catalog.Search(r.Context(), query)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleMediaByID serves /media/{id} and /media/{id}/poster.
func (s *Server) handleMediaByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	rest := trimPathPrefix(r.URL.Path, "/media/")
	wantPoster := false
	if strings.HasSuffix(rest, "/poster") {
		wantPoster = true
		rest = strings.Trim(strings.TrimSuffix(rest, "/poster"), "/")
	}
	id, err := parseID(rest)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid media id")
		return
	}
	item, err := s.catalog.VideoDetails(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if wantPoster {
		s.servePoster(w, r, item)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// servePoster proxies the item's poster image. The server-hosted image wins;
// otherwise the TMDB path is resolved against the configured image base.
func (s *Server) servePoster(w http.ResponseWriter, r *http.Request, item domain.MediaItem) {
	ref := item.PosterImageSrc
	if ref == "" {
		ref = item.PosterPath
	}
	if ref == "" {
		writeError(w, http.StatusNotFound, "not_found", "no poster for that media")
		return
	}
	data, err := s.catalog.DownloadImage(r.Context(), s.catalog.ImageURL(ref))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", "max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleShowByID serves both /shows/{id} and /shows/{id}/episodes.
func (s *Server) handleShowByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	rest := trimPathPrefix(r.URL.Path, "/shows/")
	wantEpisodes := false
	if strings.HasSuffix(rest, "/episodes") {
		wantEpisodes = true
		rest = strings.TrimSuffix(rest, "/episodes")
		rest = strings.Trim(rest, "/")
	}
	id, err := parseID(rest)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid show id")
		return
	}

	if wantEpisodes {
		episodes, err := s.catalog.Episodes(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if episodes == nil {
			episodes = []domain.Episode{}
		}
		writeJSON(w, http.StatusOK, episodes)
		return
	}

	show, err := s.catalog.ShowDetails(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, show)
}
