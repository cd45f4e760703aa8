package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"

	"cinestack/config"
	"cinestack/models"
)

var (
	// ErrNotFound is returned when the provider reports no such title.
	ErrNotFound = errors.New("title not found")
	// ErrAPIKeyRequired is returned when no TMDB API key is configured.
	ErrAPIKeyRequired = errors.New("tmdb api key is not configured")
)

const (
	requestTimeout = 10 * time.Second
	maxAttempts    = 3
)

// Client wraps the TMDB HTTP API. Successful responses are cached on disk
// with a TTL; transient upstream failures are retried.
type Client struct {
	apiKey     string
	baseURL    string
	imageBase  string
	httpClient *http.Client
	cache      *fileCache
}

// NewClient creates a TMDB client. fs backs the response cache; pass an
// in-memory filesystem in tests.
func NewClient(cfg config.TMDBConfig, fs afero.Fs) *Client {
	ttl := time.Duration(cfg.CacheTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		imageBase:  strings.TrimRight(cfg.ImageBase, "/"),
		httpClient: &http.Client{Timeout: requestTimeout},
		cache:      newFileCache(fs, cfg.CacheDir, ttl),
	}
}

// raw TMDB payload shapes

type tmdbListResponse struct {
	Page         int          `json:"page"`
	TotalPages   int          `json:"total_pages"`
	TotalResults int          `json:"total_results"`
	Results      []tmdbResult `json:"results"`
}

type tmdbResult struct {
	ID               int64   `json:"id"`
	MediaType        string  `json:"media_type"`
	Title            string  `json:"title"`
	Name             string  `json:"name"`
	Overview         string  `json:"overview"`
	PosterPath       string  `json:"poster_path"`
	ReleaseDate      string  `json:"release_date"`
	FirstAirDate     string  `json:"first_air_date"`
	VoteAverage      float64 `json:"vote_average"`
	Popularity       float64 `json:"popularity"`
	OriginalLanguage string  `json:"original_language"`
}

type tmdbDetails struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	OriginalTit  string  `json:"original_title"`
	Name         string  `json:"name"`
	OriginalName string  `json:"original_name"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	VoteAverage  float64 `json:"vote_average"`
	Videos       struct {
		Results []tmdbVideo `json:"results"`
	} `json:"videos"`
	Seasons []tmdbSeason `json:"seasons"`
}

type tmdbVideo struct {
	Site string `json:"site"`
	Key  string `json:"key"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type tmdbSeason struct {
	SeasonNumber int    `json:"season_number"`
	Name         string `json:"name"`
	EpisodeCount int    `json:"episode_count"`
	AirDate      string `json:"air_date"`
	PosterPath   string `json:"poster_path"`
}

type tmdbSeasonDetails struct {
	SeasonNumber int           `json:"season_number"`
	Name         string        `json:"name"`
	Overview     string        `json:"overview"`
	AirDate      string        `json:"air_date"`
	Episodes     []tmdbEpisode `json:"episodes"`
}

type tmdbEpisode struct {
	EpisodeNumber int     `json:"episode_number"`
	SeasonNumber  int     `json:"season_number"`
	Name          string  `json:"name"`
	Overview      string  `json:"overview"`
	AirDate       string  `json:"air_date"`
	StillPath     string  `json:"still_path"`
	VoteAverage   float64 `json:"vote_average"`
}

// Search queries TMDB for movies and/or TV series. kind is "movie", "tv"
// or "multi" (the default); multi searches both and drops person results.
func (c *Client) Search(ctx context.Context, query string, page int, kind string) (*models.SearchPage, error) {
	if page < 1 {
		page = 1
	}
	kind = strings.ToLower(kind)
	if kind != "movie" && kind != "tv" {
		kind = "multi"
	}

	key := cacheKey("search", kind, strconv.Itoa(page), query)
	var cached models.SearchPage
	if c.cache.get(key, &cached) {
		return &cached, nil
	}

	var raw tmdbListResponse
	params := url.Values{"query": {query}, "page": {strconv.Itoa(page)}}
	if err := c.getJSON(ctx, "/search/"+kind, params, &raw); err != nil {
		return nil, err
	}

	result := &models.SearchPage{
		Page:         raw.Page,
		TotalPages:   raw.TotalPages,
		TotalResults: raw.TotalResults,
		Results:      c.normalizeResults(raw.Results, kind),
	}
	c.cache.set(key, result)
	return result, nil
}

// Details fetches full details for one title, including videos. Unknown
// kinds are treated as movies.
func (c *Client) Details(ctx context.Context, tmdbID int64, kind models.MediaType) (*models.TitleDetails, error) {
	kind = models.NormalizeMediaType(string(kind))

	key := cacheKey("details", string(kind), strconv.FormatInt(tmdbID, 10))
	var cached models.TitleDetails
	if c.cache.get(key, &cached) {
		return &cached, nil
	}

	path := fmt.Sprintf("/movie/%d", tmdbID)
	if kind == models.MediaTypeTV {
		path = fmt.Sprintf("/tv/%d", tmdbID)
	}

	var raw tmdbDetails
	params := url.Values{"append_to_response": {"videos"}}
	if err := c.getJSON(ctx, path, params, &raw); err != nil {
		return nil, err
	}

	details := &models.TitleDetails{
		TMDBID:      raw.ID,
		MediaType:   kind,
		Overview:    raw.Overview,
		PosterURL:   c.imageURL(raw.PosterPath),
		VoteAverage: raw.VoteAverage,
	}
	if kind == models.MediaTypeTV {
		details.Title = firstNonEmpty(raw.Name, raw.OriginalName)
		details.ReleaseDate = raw.FirstAirDate
	} else {
		details.Title = firstNonEmpty(raw.Title, raw.OriginalTit)
		details.ReleaseDate = raw.ReleaseDate
	}
	details.ReleaseYear = parseYear(details.ReleaseDate)

	for _, video := range raw.Videos.Results {
		details.Videos = append(details.Videos, models.Video{
			Site: video.Site, Key: video.Key, Name: video.Name, Type: video.Type,
		})
		if details.YouTubeID == "" && strings.EqualFold(video.Site, "youtube") && video.Key != "" {
			details.YouTubeID = video.Key
		}
	}
	for _, season := range raw.Seasons {
		details.Seasons = append(details.Seasons, models.Season{
			SeasonNumber: season.SeasonNumber,
			Name:         season.Name,
			EpisodeCount: season.EpisodeCount,
			AirDate:      season.AirDate,
			PosterURL:    c.imageURL(season.PosterPath),
		})
	}

	c.cache.set(key, details)
	return details, nil
}

// Season fetches the episode list for one season of a series.
func (c *Client) Season(ctx context.Context, tmdbID int64, seasonNumber int) (*models.SeasonDetails, error) {
	key := cacheKey("season", strconv.FormatInt(tmdbID, 10), strconv.Itoa(seasonNumber))
	var cached models.SeasonDetails
	if c.cache.get(key, &cached) {
		return &cached, nil
	}

	var raw tmdbSeasonDetails
	path := fmt.Sprintf("/tv/%d/season/%d", tmdbID, seasonNumber)
	if err := c.getJSON(ctx, path, nil, &raw); err != nil {
		return nil, err
	}

	details := &models.SeasonDetails{
		TMDBID:       tmdbID,
		SeasonNumber: raw.SeasonNumber,
		Name:         raw.Name,
		Overview:     raw.Overview,
		AirDate:      raw.AirDate,
	}
	for _, episode := range raw.Episodes {
		details.Episodes = append(details.Episodes, models.Episode{
			EpisodeNumber: episode.EpisodeNumber,
			SeasonNumber:  episode.SeasonNumber,
			Name:          episode.Name,
			Overview:      episode.Overview,
			AirDate:       episode.AirDate,
			StillURL:      c.imageURL(episode.StillPath),
			VoteAverage:   episode.VoteAverage,
		})
	}

	c.cache.set(key, details)
	return details, nil
}

// Popular fetches the popular listing for a media kind.
func (c *Client) Popular(ctx context.Context, kind string, page int) (*models.SearchPage, error) {
	return c.listing(ctx, "popular", kind, page)
}

// TopRated fetches the top-rated listing for a media kind.
func (c *Client) TopRated(ctx context.Context, kind string, page int) (*models.SearchPage, error) {
	return c.listing(ctx, "top_rated", kind, page)
}

// Discover aggregates the homepage listings with one concurrent fan-out.
func (c *Client) Discover(ctx context.Context) (*models.DiscoverBundle, error) {
	bundle := &models.DiscoverBundle{}

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		page, err := c.Popular(ctx, "movie", 1)
		if err != nil {
			return err
		}
		bundle.PopularMovies = page.Results
		return nil
	})
	p.Go(func(ctx context.Context) error {
		page, err := c.Popular(ctx, "tv", 1)
		if err != nil {
			return err
		}
		bundle.PopularTV = page.Results
		return nil
	})
	p.Go(func(ctx context.Context) error {
		page, err := c.TopRated(ctx, "movie", 1)
		if err != nil {
			return err
		}
		bundle.TopRatedMovies = page.Results
		return nil
	})

	if err := p.Wait(); err != nil {
		return nil, err
	}
	return bundle, nil
}

// ClearCache drops all cached provider responses.
func (c *Client) ClearCache() error {
	return c.cache.clear()
}

func (c *Client) listing(ctx context.Context, listName, kind string, page int) (*models.SearchPage, error) {
	if page < 1 {
		page = 1
	}
	normalized := models.NormalizeMediaType(kind)

	key := cacheKey(listName, string(normalized), strconv.Itoa(page))
	var cached models.SearchPage
	if c.cache.get(key, &cached) {
		return &cached, nil
	}

	path := fmt.Sprintf("/%s/%s", normalized, listName)
	var raw tmdbListResponse
	if err := c.getJSON(ctx, path, url.Values{"page": {strconv.Itoa(page)}}, &raw); err != nil {
		return nil, err
	}

	result := &models.SearchPage{
		Page:         raw.Page,
		TotalPages:   raw.TotalPages,
		TotalResults: raw.TotalResults,
		Results:      c.normalizeResults(raw.Results, string(normalized)),
	}
	c.cache.set(key, result)
	return result, nil
}

// normalizeResults stamps a media type on each row and drops person
// results from multi searches.
func (c *Client) normalizeResults(raw []tmdbResult, kind string) []models.SearchResult {
	results := make([]models.SearchResult, 0, len(raw))
	for _, row := range raw {
		mediaType := row.MediaType
		if kind != "multi" {
			mediaType = kind
		}
		if mediaType != "movie" && mediaType != "tv" {
			continue
		}

		result := models.SearchResult{
			TMDBID:       row.ID,
			MediaType:    models.MediaType(mediaType),
			Overview:     row.Overview,
			PosterURL:    c.imageURL(row.PosterPath),
			VoteAverage:  row.VoteAverage,
			Popularity:   row.Popularity,
			OriginalLang: row.OriginalLanguage,
		}
		if mediaType == "tv" {
			result.Title = row.Name
			result.ReleaseDate = row.FirstAirDate
		} else {
			result.Title = row.Title
			result.ReleaseDate = row.ReleaseDate
		}
		results = append(results, result)
	}
	return results
}

// getJSON performs one GET against the TMDB API with retries on transient
// failures. A 404 maps to ErrNotFound and is never retried; other non-2xx
// statuses surface as upstream errors.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	if c.apiKey == "" {
		return ErrAPIKeyRequired
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	requestURL := c.baseURL + path + "?" + params.Encode()

	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("tmdb request: %w", err)
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusNotFound:
				return retry.Unrecoverable(ErrNotFound)
			case resp.StatusCode >= 500:
				return fmt.Errorf("tmdb upstream status %d", resp.StatusCode)
			case resp.StatusCode < 200 || resp.StatusCode >= 300:
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
				return retry.Unrecoverable(fmt.Errorf("tmdb status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
			}

			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("decode tmdb response: %w", err)
			}
			return nil
		},
		retry.Attempts(maxAttempts),
		retry.Delay(300*time.Millisecond),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
}

func (c *Client) imageURL(path string) string {
	if path == "" {
		return ""
	}
	return c.imageBase + path
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// parseYear extracts the year from a TMDB date such as "2010-07-15".
func parseYear(date string) *int {
	if len(date) < 4 {
		return nil
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return nil
	}
	return &year
}
