package watchlist_test

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/mattn/go-sqlite3"

	"cinelist/models"
	"cinelist/services/watchlist"
)

// stubRepository keeps entries in memory and mimics the unique index on
// (user, movie) the real sqlite schema enforces.
type stubRepository struct {
	lists map[models.List][]models.WatchlistEntry
}

func newStubRepository() *stubRepository {
	return &stubRepository{lists: map[models.List][]models.WatchlistEntry{
		models.ListPlanToWatch: {},
		models.ListWatched:     {},
	}}
}

func uniqueViolation() error {
	return sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}
}

func (s *stubRepository) FindEntry(_ context.Context, list models.List, userID string, movieID int64) (*models.WatchlistEntry, error) {
	for _, e := range s.lists[list] {
		if e.UserID == userID && e.MovieID == movieID {
			entry := e
			return &entry, nil
		}
	}
	return nil, nil
}

func (s *stubRepository) Insert(ctx context.Context, list models.List, entry *models.WatchlistEntry) error {
	if existing, _ := s.FindEntry(ctx, list, entry.UserID, entry.MovieID); existing != nil {
		return uniqueViolation()
	}
	s.lists[list] = append(s.lists[list], *entry)
	return nil
}

func (s *stubRepository) Delete(_ context.Context, list models.List, userID string, movieID int64) error {
	kept := s.lists[list][:0]
	for _, e := range s.lists[list] {
		if e.UserID != userID || e.MovieID != movieID {
			kept = append(kept, e)
		}
	}
	s.lists[list] = kept
	return nil
}

func (s *stubRepository) ListByUser(_ context.Context, list models.List, userID string) ([]models.WatchlistEntry, error) {
	var entries []models.WatchlistEntry
	for i := len(s.lists[list]) - 1; i >= 0; i-- {
		if s.lists[list][i].UserID == userID {
			entries = append(entries, s.lists[list][i])
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

func (s *stubRepository) MoveToWatched(ctx context.Context, entry *models.WatchlistEntry) error {
	if err := s.Insert(ctx, models.ListWatched, entry); err != nil {
		return err
	}
	return s.Delete(ctx, models.ListPlanToWatch, entry.UserID, entry.MovieID)
}

// failingRepository fails every operation, standing in for a broken store.
type failingRepository struct{}

var errStore = errors.New("disk on fire")

func (failingRepository) FindEntry(context.Context, models.List, string, int64) (*models.WatchlistEntry, error) {
	return nil, errStore
}
func (failingRepository) Insert(context.Context, models.List, *models.WatchlistEntry) error {
	return errStore
}
func (failingRepository) Delete(context.Context, models.List, string, int64) error {
	return errStore
}
func (failingRepository) ListByUser(context.Context, models.List, string) ([]models.WatchlistEntry, error) {
	return nil, errStore
}
func (failingRepository) MoveToWatched(context.Context, *models.WatchlistEntry) error {
	return errStore
}

var (
	alice     = models.Caller{UserID: "user-alice", Name: "alice"}
	anonymous = models.Caller{}
)

func movie(id int64, title string) models.MovieData {
	return models.MovieData{MovieID: id, Title: title}
}

func TestAddToPlanToWatchSetsStatus(t *testing.T) {
	svc := watchlist.NewService(newStubRepository())
	ctx := context.Background()

	if _, err := svc.AddToPlanToWatch(ctx, alice, movie(42, "Blade Runner")); err != nil {
		t.Fatalf("add returned error: %v", err)
	}

	status, err := svc.Status(ctx, alice, 42)
	if err != nil {
		t.Fatalf("status returned error: %v", err)
	}
	if !status.IsPlanToWatch || status.IsWatched {
		t.Fatalf("expected {true,false}, got %+v", status)
	}
}

func TestAddToWatchedCollapsesFromEitherState(t *testing.T) {
	for _, planned := range []bool{false, true} {
		svc := watchlist.NewService(newStubRepository())
		ctx := context.Background()

		if planned {
			if _, err := svc.AddToPlanToWatch(ctx, alice, movie(7, "Heat")); err != nil {
				t.Fatalf("add to plan returned error: %v", err)
			}
		}

		if _, err := svc.AddToWatched(ctx, alice, movie(7, "Heat")); err != nil {
			t.Fatalf("add to watched (planned=%t) returned error: %v", planned, err)
		}

		status, err := svc.Status(ctx, alice, 7)
		if err != nil {
			t.Fatalf("status returned error: %v", err)
		}
		if status.IsPlanToWatch || !status.IsWatched {
			t.Fatalf("planned=%t: expected {false,true}, got %+v", planned, status)
		}
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	svc := watchlist.NewService(newStubRepository())
	ctx := context.Background()

	if err := svc.RemoveFromPlanToWatch(ctx, alice, 999); err != nil {
		t.Fatalf("removing absent plan entry should succeed, got %v", err)
	}
	if err := svc.RemoveFromWatched(ctx, alice, 999); err != nil {
		t.Fatalf("removing absent watched entry should succeed, got %v", err)
	}
}

func TestDuplicateAddConflicts(t *testing.T) {
	repo := newStubRepository()
	svc := watchlist.NewService(repo)
	ctx := context.Background()

	if _, err := svc.AddToPlanToWatch(ctx, alice, movie(12, "Alien")); err != nil {
		t.Fatalf("first add returned error: %v", err)
	}

	_, err := svc.AddToPlanToWatch(ctx, alice, movie(12, "Alien"))
	var conflict *watchlist.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}

	if n := len(repo.lists[models.ListPlanToWatch]); n != 1 {
		t.Fatalf("expected exactly one persisted entry, got %d", n)
	}
}

func TestInsertRaceSurfacesAsConflict(t *testing.T) {
	// Two concurrent identical requests can both pass the advisory check;
	// the loser's insert hits the unique index and must read as a conflict.
	repo := newStubRepository()
	ctx := context.Background()

	raced := &models.WatchlistEntry{ID: "raced", UserID: alice.UserID, MovieID: 12, Title: "Alien"}
	if err := repo.Insert(ctx, models.ListPlanToWatch, raced); err != nil {
		t.Fatalf("seed insert returned error: %v", err)
	}

	svc := watchlist.NewService(&advisoryBlindRepo{stubRepository: repo})
	_, err := svc.AddToPlanToWatch(ctx, alice, movie(12, "Alien"))
	var conflict *watchlist.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict from raced insert, got %v", err)
	}

	if n := len(repo.lists[models.ListPlanToWatch]); n != 1 {
		t.Fatalf("expected the raced pair to stay at one row, got %d", n)
	}
}

// advisoryBlindRepo hides existing rows from FindEntry so the service's
// fast-path check passes, simulating the check/insert race window.
type advisoryBlindRepo struct {
	*stubRepository
}

func (r *advisoryBlindRepo) FindEntry(context.Context, models.List, string, int64) (*models.WatchlistEntry, error) {
	return nil, nil
}

func TestListOrderingNewestFirst(t *testing.T) {
	svc := watchlist.NewService(newStubRepository())
	ctx := context.Background()

	titles := []string{"first", "second", "third"}
	for i, title := range titles {
		if _, err := svc.AddToPlanToWatch(ctx, alice, movie(int64(i+1), title)); err != nil {
			t.Fatalf("add %q returned error: %v", title, err)
		}
	}

	entries, err := svc.ListPlanToWatch(ctx, alice)
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, want := range []string{"third", "second", "first"} {
		if entries[i].Title != want {
			t.Fatalf("position %d: expected %q, got %q", i, want, entries[i].Title)
		}
	}
}

func TestUnauthenticatedCaller(t *testing.T) {
	svc := watchlist.NewService(newStubRepository())
	ctx := context.Background()

	if _, err := svc.AddToPlanToWatch(ctx, anonymous, movie(1, "Dune")); !errors.Is(err, watchlist.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := svc.RemoveFromWatched(ctx, anonymous, 1); !errors.Is(err, watchlist.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	status, err := svc.Status(ctx, anonymous, 1)
	if err != nil {
		t.Fatalf("status returned error: %v", err)
	}
	if status.IsPlanToWatch || status.IsWatched {
		t.Fatalf("expected neutral status, got %+v", status)
	}

	entries, err := svc.ListPlanToWatch(ctx, anonymous)
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty list, got %d entries", len(entries))
	}
}

func TestValidation(t *testing.T) {
	svc := watchlist.NewService(newStubRepository())
	ctx := context.Background()

	cases := []struct {
		name  string
		movie models.MovieData
	}{
		{"negative id", models.MovieData{MovieID: -1, Title: "X"}},
		{"zero id", models.MovieData{MovieID: 0, Title: "X"}},
		{"empty title", models.MovieData{MovieID: 5, Title: ""}},
		{"blank title", models.MovieData{MovieID: 5, Title: "   "}},
		{"negative runtime", models.MovieData{MovieID: 5, Title: "X", Runtime: -90}},
	}

	for _, tc := range cases {
		_, err := svc.AddToPlanToWatch(ctx, alice, tc.movie)
		var validation *watchlist.ValidationError
		if !errors.As(err, &validation) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}

		_, err = svc.AddToWatched(ctx, alice, tc.movie)
		if !errors.As(err, &validation) {
			t.Fatalf("%s (watched): expected validation error, got %v", tc.name, err)
		}
	}

	if err := svc.RemoveFromPlanToWatch(ctx, alice, 0); err == nil {
		t.Fatalf("expected validation error for zero id remove")
	}
}

func TestStatusTreatsInvalidIDAsNotFound(t *testing.T) {
	svc := watchlist.NewService(failingRepository{})

	// With a non-positive id the service must not even touch the store.
	status, err := svc.Status(context.Background(), alice, -3)
	if err != nil {
		t.Fatalf("status returned error: %v", err)
	}
	if status.IsPlanToWatch || status.IsWatched {
		t.Fatalf("expected neutral status, got %+v", status)
	}
}

func TestNoWatchedToPlannedShortcut(t *testing.T) {
	svc := watchlist.NewService(newStubRepository())
	ctx := context.Background()

	if _, err := svc.AddToWatched(ctx, alice, movie(77, "Ran")); err != nil {
		t.Fatalf("add to watched returned error: %v", err)
	}

	_, err := svc.AddToPlanToWatch(ctx, alice, movie(77, "Ran"))
	var conflict *watchlist.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict for watched movie, got %v", err)
	}

	// Leaving watched first re-opens the plan-to-watch path.
	if err := svc.RemoveFromWatched(ctx, alice, 77); err != nil {
		t.Fatalf("remove from watched returned error: %v", err)
	}
	if _, err := svc.AddToPlanToWatch(ctx, alice, movie(77, "Ran")); err != nil {
		t.Fatalf("re-add after unwatch returned error: %v", err)
	}
}

func TestPersistenceFailuresStayGeneric(t *testing.T) {
	svc := watchlist.NewService(failingRepository{})
	ctx := context.Background()

	_, err := svc.AddToPlanToWatch(ctx, alice, movie(3, "Stalker"))
	var persistence *watchlist.PersistenceError
	if !errors.As(err, &persistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if got := persistence.Error(); got != "failed to add movie to plan to watch" {
		t.Fatalf("unexpected user-facing message %q", got)
	}
	if !errors.Is(err, errStore) {
		t.Fatalf("expected wrapped cause for the logs")
	}
}

func TestCrossListTransition(t *testing.T) {
	repo := newStubRepository()
	svc := watchlist.NewService(repo)
	ctx := context.Background()

	if _, err := svc.AddToPlanToWatch(ctx, alice, movie(603, "The Matrix")); err != nil {
		t.Fatalf("add to plan returned error: %v", err)
	}
	if _, err := svc.AddToWatched(ctx, alice, movie(603, "The Matrix")); err != nil {
		t.Fatalf("add to watched returned error: %v", err)
	}

	plan, err := svc.ListPlanToWatch(ctx, alice)
	if err != nil {
		t.Fatalf("list plan returned error: %v", err)
	}
	if len(plan) != 0 {
		t.Fatalf("expected plan-to-watch to be cleared, got %d entries", len(plan))
	}

	watched, err := svc.ListWatched(ctx, alice)
	if err != nil {
		t.Fatalf("list watched returned error: %v", err)
	}
	if len(watched) != 1 || watched[0].MovieID != 603 {
		t.Fatalf("expected watched to contain movie 603, got %+v", watched)
	}
}

func TestEndToEndScenario(t *testing.T) {
	svc := watchlist.NewService(newStubRepository())
	ctx := context.Background()

	check := func(step string, wantPlan, wantWatched bool) {
		t.Helper()
		status, err := svc.Status(ctx, alice, 603)
		if err != nil {
			t.Fatalf("%s: status returned error: %v", step, err)
		}
		if status.IsPlanToWatch != wantPlan || status.IsWatched != wantWatched {
			t.Fatalf("%s: expected {%t,%t}, got %+v", step, wantPlan, wantWatched, status)
		}
	}

	if _, err := svc.AddToPlanToWatch(ctx, alice, movie(603, "The Matrix")); err != nil {
		t.Fatalf("add to plan returned error: %v", err)
	}
	check("after plan", true, false)

	if _, err := svc.AddToWatched(ctx, alice, movie(603, "The Matrix")); err != nil {
		t.Fatalf("add to watched returned error: %v", err)
	}
	check("after watched", false, true)

	if err := svc.RemoveFromWatched(ctx, alice, 603); err != nil {
		t.Fatalf("remove from watched returned error: %v", err)
	}
	check("after remove", false, false)
}

func TestUsersAreIsolated(t *testing.T) {
	svc := watchlist.NewService(newStubRepository())
	ctx := context.Background()
	bob := models.Caller{UserID: "user-bob", Name: "bob"}

	if _, err := svc.AddToPlanToWatch(ctx, alice, movie(5, "Solaris")); err != nil {
		t.Fatalf("add returned error: %v", err)
	}

	status, err := svc.Status(ctx, bob, 5)
	if err != nil {
		t.Fatalf("status returned error: %v", err)
	}
	if status.IsPlanToWatch || status.IsWatched {
		t.Fatalf("expected bob to see nothing, got %+v", status)
	}

	entries, err := svc.ListPlanToWatch(ctx, bob)
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty list for bob, got %d", len(entries))
	}
}
