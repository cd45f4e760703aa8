package models

// SearchResult is one normalized row from a TMDB search or listing call.
type SearchResult struct {
	TMDBID       int64     `json:"tmdbId"`
	MediaType    MediaType `json:"mediaType"`
	Title        string    `json:"title"`
	Overview     string    `json:"overview"`
	PosterURL    string    `json:"posterUrl,omitempty"`
	ReleaseDate  string    `json:"releaseDate,omitempty"`
	VoteAverage  float64   `json:"voteAverage"`
	Popularity   float64   `json:"popularity"`
	OriginalLang string    `json:"originalLanguage,omitempty"`
}

// SearchPage is a page of search or listing results.
type SearchPage struct {
	Page         int            `json:"page"`
	TotalPages   int            `json:"totalPages"`
	TotalResults int            `json:"totalResults"`
	Results      []SearchResult `json:"results"`
}

// TitleDetails is the full detail payload for one movie or TV series,
// including resolved poster and trailer references.
type TitleDetails struct {
	TMDBID      int64     `json:"tmdbId"`
	MediaType   MediaType `json:"mediaType"`
	Title       string    `json:"title"`
	Overview    string    `json:"overview"`
	PosterURL   string    `json:"posterUrl,omitempty"`
	ReleaseDate string    `json:"releaseDate,omitempty"`
	ReleaseYear *int      `json:"releaseYear,omitempty"`
	YouTubeID   string    `json:"youtubeId,omitempty"`
	VoteAverage float64   `json:"voteAverage"`
	Seasons     []Season  `json:"seasons,omitempty"`
	Videos      []Video   `json:"videos,omitempty"`
}

// Season summarizes one season of a TV series.
type Season struct {
	SeasonNumber int    `json:"seasonNumber"`
	Name         string `json:"name"`
	EpisodeCount int    `json:"episodeCount"`
	AirDate      string `json:"airDate,omitempty"`
	PosterURL    string `json:"posterUrl,omitempty"`
}

// SeasonDetails carries the episode list for one season.
type SeasonDetails struct {
	TMDBID       int64     `json:"tmdbId"`
	SeasonNumber int       `json:"seasonNumber"`
	Name         string    `json:"name"`
	Overview     string    `json:"overview"`
	AirDate      string    `json:"airDate,omitempty"`
	Episodes     []Episode `json:"episodes"`
}

// Episode is one episode of a season as reported by the metadata provider.
type Episode struct {
	EpisodeNumber int     `json:"episodeNumber"`
	SeasonNumber  int     `json:"seasonNumber"`
	Name          string  `json:"name"`
	Overview      string  `json:"overview"`
	AirDate       string  `json:"airDate,omitempty"`
	StillURL      string  `json:"stillUrl,omitempty"`
	VoteAverage   float64 `json:"voteAverage"`
}

// Video is a trailer/teaser entry attached to a title.
type Video struct {
	Site string `json:"site"`
	Key  string `json:"key"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// DiscoverBundle aggregates the homepage listing calls.
type DiscoverBundle struct {
	PopularMovies  []SearchResult `json:"popularMovies"`
	PopularTV      []SearchResult `json:"popularTv"`
	TopRatedMovies []SearchResult `json:"topRatedMovies"`
}
