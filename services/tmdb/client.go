package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	tmdbAPIBaseURL   = "https://api.themoviedb.org/3"
	tmdbImageBaseURL = "https://image.tmdb.org/t/p"

	// Identical queries are common while the user is still typing, so search
	// results are cached briefly. Detail records barely ever change.
	searchCacheTTL  = time.Minute
	detailsCacheTTL = time.Hour
)

var (
	// ErrMissingAPIKey is returned at construction when no credential is
	// configured. This is a deployment fault, not a runtime condition.
	ErrMissingAPIKey = errors.New("tmdb api key is not configured")

	// ErrNotFound is returned by Details when TMDB reports the id does not exist.
	ErrNotFound = errors.New("movie not found")
)

// Movie is a single search result from the TMDB search endpoint. PosterURL
// is not part of the TMDB payload; the client fills it in from PosterPath.
type Movie struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	PosterPath  string  `json:"poster_path"`
	PosterURL   string  `json:"poster_url"`
	ReleaseDate string  `json:"release_date"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
}

// Genre is a TMDB genre tag on a detail record.
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// MovieDetails is the full detail record for a single movie.
type MovieDetails struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	Tagline      string  `json:"tagline"`
	PosterPath   string  `json:"poster_path"`
	PosterURL    string  `json:"poster_url"`
	BackdropPath string  `json:"backdrop_path"`
	BackdropURL  string  `json:"backdrop_url"`
	ReleaseDate  string  `json:"release_date"`
	Runtime      int     `json:"runtime"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
	Genres       []Genre `json:"genres"`
	Status       string  `json:"status"`
	Homepage     string  `json:"homepage"`
	IMDBID       string  `json:"imdb_id"`
}

// SearchResponse is the paged result set from the TMDB search endpoint.
type SearchResponse struct {
	Page         int     `json:"page"`
	Results      []Movie `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

type searchCacheEntry struct {
	response  *SearchResponse
	fetchedAt time.Time
}

type detailsCacheEntry struct {
	details   *MovieDetails
	fetchedAt time.Time
}

// Client handles requests to the TMDB API for movie search and details.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	cacheMu      sync.RWMutex
	searchCache  map[string]*searchCacheEntry
	detailsCache map[int64]*detailsCacheEntry
}

// NewClient creates a TMDB client. The API key is mandatory.
func NewClient(apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	return &Client{
		apiKey:       apiKey,
		baseURL:      tmdbAPIBaseURL,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		searchCache:  make(map[string]*searchCacheEntry),
		detailsCache: make(map[int64]*detailsCacheEntry),
	}, nil
}

// Search queries TMDB for movies matching query. A blank query returns an
// empty result set without any network call.
func (c *Client) Search(ctx context.Context, query string) (*SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return &SearchResponse{Page: 1, Results: []Movie{}}, nil
	}

	c.cacheMu.RLock()
	if entry, ok := c.searchCache[query]; ok && time.Since(entry.fetchedAt) < searchCacheTTL {
		c.cacheMu.RUnlock()
		return entry.response, nil
	}
	c.cacheMu.RUnlock()

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("query", query)
	params.Set("include_adult", "false")
	params.Set("language", "en-US")
	params.Set("page", "1")

	var response SearchResponse
	if err := c.getJSON(ctx, c.baseURL+"/search/movie?"+params.Encode(), &response); err != nil {
		return nil, fmt.Errorf("search movies: %w", err)
	}
	if response.Results == nil {
		response.Results = []Movie{}
	}
	for i := range response.Results {
		response.Results[i].PosterURL = ImageURL(response.Results[i].PosterPath, "w342")
	}

	c.cacheMu.Lock()
	c.searchCache[query] = &searchCacheEntry{response: &response, fetchedAt: time.Now()}
	c.cacheMu.Unlock()

	return &response, nil
}

// Details fetches the detail record for movieID. Returns ErrNotFound when
// TMDB reports the id does not exist.
func (c *Client) Details(ctx context.Context, movieID int64) (*MovieDetails, error) {
	c.cacheMu.RLock()
	if entry, ok := c.detailsCache[movieID]; ok && time.Since(entry.fetchedAt) < detailsCacheTTL {
		c.cacheMu.RUnlock()
		return entry.details, nil
	}
	c.cacheMu.RUnlock()

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("language", "en-US")

	var details MovieDetails
	err := c.getJSON(ctx, fmt.Sprintf("%s/movie/%d?%s", c.baseURL, movieID, params.Encode()), &details)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get movie details: %w", err)
	}
	details.PosterURL = ImageURL(details.PosterPath, "w500")
	details.BackdropURL = ImageURL(details.BackdropPath, "w780")

	c.cacheMu.Lock()
	c.detailsCache[movieID] = &detailsCacheEntry{details: &details, fetchedAt: time.Now()}
	c.cacheMu.Unlock()

	return &details, nil
}

// getJSON performs a GET with bounded retries and decodes the body into out.
// Transient transport errors and 5xx responses are retried; client errors
// are not.
func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("create request: %w", err))
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("http request: %w", err)
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusOK:
				if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
					return retry.Unrecoverable(fmt.Errorf("decode response: %w", err))
				}
				return nil
			case resp.StatusCode == http.StatusNotFound:
				return retry.Unrecoverable(ErrNotFound)
			case resp.StatusCode >= 500:
				return fmt.Errorf("unexpected status: %d", resp.StatusCode)
			default:
				return retry.Unrecoverable(fmt.Errorf("unexpected status: %d", resp.StatusCode))
			}
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
	)
}

// ImageURL builds a CDN URL for a TMDB image path. Returns "" for an empty
// path so templates can fall back to a placeholder.
func ImageURL(path, size string) string {
	if path == "" {
		return ""
	}
	switch size {
	case "w92", "w154", "w185", "w342", "w500", "w780", "original":
	default:
		size = "w500"
	}
	return tmdbImageBaseURL + "/" + size + path
}
