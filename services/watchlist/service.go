package watchlist

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"cinelist/internal/database"
	"cinelist/models"
)

// Repository is the persistence surface the service needs: single-row
// lookups, inserts and deletes keyed by (user, movie), plus the ordered
// per-user listing.
type Repository interface {
	FindEntry(ctx context.Context, list models.List, userID string, movieID int64) (*models.WatchlistEntry, error)
	Insert(ctx context.Context, list models.List, entry *models.WatchlistEntry) error
	Delete(ctx context.Context, list models.List, userID string, movieID int64) error
	ListByUser(ctx context.Context, list models.List, userID string) ([]models.WatchlistEntry, error)
	MoveToWatched(ctx context.Context, entry *models.WatchlistEntry) error
}

var _ Repository = (*database.WatchlistRepository)(nil)

// Service enforces the legal state transitions of a (user, movie) pair
// across the plan-to-watch and watched lists. Every mutation validates its
// input and authorizes the caller before any I/O. The caller identity is
// always passed in explicitly; the service holds no session state.
type Service struct {
	repo Repository
}

// NewService returns a watchlist service over the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Status reports which lists contain movieID for the caller. It never
// fails on malformed input or a missing session: both degrade to an
// all-false status, since page renders must not break on bad ids. The two
// membership checks are independent reads and run concurrently.
func (s *Service) Status(ctx context.Context, caller models.Caller, movieID int64) (models.WatchlistStatus, error) {
	if !caller.Authenticated() || movieID <= 0 {
		return models.WatchlistStatus{}, nil
	}

	var (
		planned, watched  *models.WatchlistEntry
		planErr, watchErr error
	)

	var wg conc.WaitGroup
	wg.Go(func() {
		planned, planErr = s.repo.FindEntry(ctx, models.ListPlanToWatch, caller.UserID, movieID)
	})
	wg.Go(func() {
		watched, watchErr = s.repo.FindEntry(ctx, models.ListWatched, caller.UserID, movieID)
	})
	wg.Wait()

	if planErr != nil {
		return models.WatchlistStatus{}, planErr
	}
	if watchErr != nil {
		return models.WatchlistStatus{}, watchErr
	}

	return models.WatchlistStatus{
		IsPlanToWatch: planned != nil,
		IsWatched:     watched != nil,
	}, nil
}

// AddToPlanToWatch creates a plan-to-watch entry for the caller. The
// existence checks are a fast path; the unique index on (user_id, movie_id)
// is the final authority, and losing the insert race reports the same
// conflict the advisory check would have.
func (s *Service) AddToPlanToWatch(ctx context.Context, caller models.Caller, movie models.MovieData) (*models.WatchlistEntry, error) {
	if err := validateMovie(movie); err != nil {
		return nil, err
	}
	if !caller.Authenticated() {
		return nil, ErrUnauthorized
	}

	existing, err := s.repo.FindEntry(ctx, models.ListPlanToWatch, caller.UserID, movie.MovieID)
	if err != nil {
		return nil, s.persistence("add movie to plan to watch", err)
	}
	if existing != nil {
		return nil, &ConflictError{Message: "movie already in plan to watch"}
	}

	// A watched movie has no direct path back into plan-to-watch; it must be
	// removed from watched first. This also keeps a movie out of both lists.
	watched, err := s.repo.FindEntry(ctx, models.ListWatched, caller.UserID, movie.MovieID)
	if err != nil {
		return nil, s.persistence("add movie to plan to watch", err)
	}
	if watched != nil {
		return nil, &ConflictError{Message: "movie already marked as watched"}
	}

	entry := newEntry(caller.UserID, movie)
	if err := s.repo.Insert(ctx, models.ListPlanToWatch, entry); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, &ConflictError{Message: "movie already in plan to watch"}
		}
		return nil, s.persistence("add movie to plan to watch", err)
	}

	return entry, nil
}

// RemoveFromPlanToWatch deletes the caller's plan-to-watch entry for
// movieID. Removing an entry that does not exist succeeds; the operation
// is idempotent.
func (s *Service) RemoveFromPlanToWatch(ctx context.Context, caller models.Caller, movieID int64) error {
	if movieID <= 0 {
		return &ValidationError{Reason: "movie id must be a positive integer"}
	}
	if !caller.Authenticated() {
		return ErrUnauthorized
	}

	if err := s.repo.Delete(ctx, models.ListPlanToWatch, caller.UserID, movieID); err != nil {
		return s.persistence("remove movie from plan to watch", err)
	}
	return nil
}

// AddToWatched creates a watched entry for the caller and clears any
// plan-to-watch entry for the same movie as one logical unit, collapsing
// both the Untracked and Planned states into Watched.
func (s *Service) AddToWatched(ctx context.Context, caller models.Caller, movie models.MovieData) (*models.WatchlistEntry, error) {
	if err := validateMovie(movie); err != nil {
		return nil, err
	}
	if !caller.Authenticated() {
		return nil, ErrUnauthorized
	}

	existing, err := s.repo.FindEntry(ctx, models.ListWatched, caller.UserID, movie.MovieID)
	if err != nil {
		return nil, s.persistence("mark movie as watched", err)
	}
	if existing != nil {
		return nil, &ConflictError{Message: "movie already marked as watched"}
	}

	entry := newEntry(caller.UserID, movie)
	if err := s.repo.MoveToWatched(ctx, entry); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, &ConflictError{Message: "movie already marked as watched"}
		}
		return nil, s.persistence("mark movie as watched", err)
	}

	return entry, nil
}

// RemoveFromWatched deletes the caller's watched entry for movieID.
// Idempotent, like RemoveFromPlanToWatch.
func (s *Service) RemoveFromWatched(ctx context.Context, caller models.Caller, movieID int64) error {
	if movieID <= 0 {
		return &ValidationError{Reason: "movie id must be a positive integer"}
	}
	if !caller.Authenticated() {
		return ErrUnauthorized
	}

	if err := s.repo.Delete(ctx, models.ListWatched, caller.UserID, movieID); err != nil {
		return s.persistence("remove movie from watched", err)
	}
	return nil
}

// ListPlanToWatch returns the caller's plan-to-watch entries, newest first.
// An absent session yields an empty list, not an error.
func (s *Service) ListPlanToWatch(ctx context.Context, caller models.Caller) ([]models.WatchlistEntry, error) {
	return s.list(ctx, caller, models.ListPlanToWatch)
}

// ListWatched returns the caller's watched entries, newest first.
func (s *Service) ListWatched(ctx context.Context, caller models.Caller) ([]models.WatchlistEntry, error) {
	return s.list(ctx, caller, models.ListWatched)
}

func (s *Service) list(ctx context.Context, caller models.Caller, list models.List) ([]models.WatchlistEntry, error) {
	if !caller.Authenticated() {
		return []models.WatchlistEntry{}, nil
	}
	return s.repo.ListByUser(ctx, list, caller.UserID)
}

// persistence logs the underlying failure and returns the generic error
// the caller is allowed to see.
func (s *Service) persistence(action string, err error) error {
	log.Printf("[watchlist] %s: %v", action, err)
	return &PersistenceError{Action: action, Err: err}
}

func newEntry(userID string, movie models.MovieData) *models.WatchlistEntry {
	return &models.WatchlistEntry{
		ID:          uuid.NewString(),
		UserID:      userID,
		MovieID:     movie.MovieID,
		Title:       strings.TrimSpace(movie.Title),
		ReleaseDate: movie.ReleaseDate,
		Runtime:     movie.Runtime,
		PosterPath:  movie.PosterPath,
		CreatedAt:   time.Now().UTC(),
	}
}

func validateMovie(movie models.MovieData) error {
	if movie.MovieID <= 0 {
		return &ValidationError{Reason: "movie id must be a positive integer"}
	}
	if strings.TrimSpace(movie.Title) == "" {
		return &ValidationError{Reason: "title is required"}
	}
	if movie.Runtime < 0 {
		return &ValidationError{Reason: "runtime must be a positive integer"}
	}
	return nil
}
