package domain

// MediaType discriminates catalog entries as the server reports them.
type MediaType string

const (
	MediaMovie   MediaType = "movie"
	MediaTVShow  MediaType = "tvShow"
	MediaGeneric MediaType = "genericVideo"
	MediaEpisode MediaType = "episode"
)

// FileRef is a playable file attached to a media item. The stream URL is
// resolved from its ID and extension.
type FileRef struct {
	ID        int64  `json:"id"`
	Extension string `json:"extension"`
	Size      int64  `json:"size"`
}

// SubtitleRef points at a caption file on the server.
type SubtitleRef struct {
	ID               int64  `json:"id"`
	OriginalFilename string `json:"originalFilename"`
}

// MediaItem is one catalog entry (movie, show or generic video).
type MediaItem struct {
	ID             int64         `json:"id"`
	Title          string        `json:"title"`
	Name           string        `json:"name"`
	Overview       string        `json:"overview"`
	MediaType      MediaType     `json:"mediaType"`
	PosterImageSrc string        `json:"poster_image_src"`
	PosterPath     string        `json:"poster_path"`
	Files          []FileRef     `json:"files"`
	Subtitles      []SubtitleRef `json:"subtitles"`
}

// DisplayTitle prefers the movie title, falling back to the show/video name.
func (m MediaItem) DisplayTitle() string {
	if m.Title != "" {
		return m.Title
	}
	return m.Name
}

// Episode is one entry of a TV show season.
type Episode struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	Overview      string        `json:"overview"`
	SeasonNumber  int           `json:"season_number"`
	EpisodeNumber int           `json:"episode_number"`
	StillPath     string        `json:"still_path"`
	Files         []FileRef     `json:"files"`
	Subtitles     []SubtitleRef `json:"subtitles"`
}

// MediaPage is one page of a paginated catalog listing.
type MediaPage struct {
	Total int         `json:"total"`
	List  []MediaItem `json:"list"`
}

// SearchResult groups matches by media kind, as the search endpoint returns them.
type SearchResult struct {
	Movies        []MediaItem `json:"movies"`
	Shows         []MediaItem `json:"shows"`
	GenericVideos []MediaItem `json:"genericVideos"`
}

// All flattens a search result in display order.
func (r SearchResult) All() []MediaItem {
	out := make([]MediaItem, 0, len(r.Movies)+len(r.Shows)+len(r.GenericVideos))
	out = append(out, r.Movies...)
	out = append(out, r.Shows...)
	out = append(out, r.GenericVideos...)
	return out
}
