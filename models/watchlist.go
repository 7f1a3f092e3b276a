package models

import "time"

// List identifies one of the two watchlist tables an entry can live in.
type List string

const (
	// ListPlanToWatch holds movies the user intends to watch.
	ListPlanToWatch List = "plan_to_watch"
	// ListWatched holds movies the user has finished watching.
	ListWatched List = "watched"
)

// WatchlistEntry represents one row associating a user with a movie in
// either the plan-to-watch or the watched list.
type WatchlistEntry struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	MovieID     int64     `json:"movieId"`
	Title       string    `json:"title"`
	ReleaseDate string    `json:"releaseDate,omitempty"`
	Runtime     int       `json:"runtime,omitempty"`
	PosterPath  string    `json:"posterPath,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// MovieData captures the snapshot needed to create a watchlist entry.
// Title and MovieID are required; the rest is optional denormalized
// metadata taken from the gateway at the time of the action and never
// refreshed afterwards.
type MovieData struct {
	MovieID     int64  `json:"movieId"`
	Title       string `json:"title"`
	ReleaseDate string `json:"releaseDate,omitempty"`
	Runtime     int    `json:"runtime,omitempty"`
	PosterPath  string `json:"posterPath,omitempty"`
}

// WatchlistStatus reports which lists contain a movie for a given user.
type WatchlistStatus struct {
	IsPlanToWatch bool `json:"isPlanToWatch"`
	IsWatched     bool `json:"isWatched"`
}
