package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/stories/internal/services/player/storage"
)

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestCreateGetUserRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, time.March, 3, 9, 30, 0, 0, time.UTC)
	input := storage.User{
		ID:     "user-1",
		Name:   "user1",
		Avatar: "https://picsum.photos/80/80",
		Slides: []storage.Slide{
			{Content: "https://picsum.photos/1080/1920"},
			{Content: "https://picsum.photos/1000/1800", Duration: 1500 * time.Millisecond},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.CreateUser(context.Background(), input); err != nil {
		t.Fatalf("create user: %v", err)
	}

	got, err := store.GetUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.Name != input.Name {
		t.Fatalf("name = %q, want %q", got.Name, input.Name)
	}
	if got.Avatar != input.Avatar {
		t.Fatalf("avatar = %q, want %q", got.Avatar, input.Avatar)
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("created_at = %v, want %v", got.CreatedAt, now)
	}
	if len(got.Slides) != 2 {
		t.Fatalf("slides = %d, want 2", len(got.Slides))
	}
	if got.Slides[1].Duration != 1500*time.Millisecond {
		t.Fatalf("slide duration = %v, want 1.5s", got.Slides[1].Duration)
	}
	if got.Slides[0].Content != input.Slides[0].Content {
		t.Fatalf("slide content = %q, want %q", got.Slides[0].Content, input.Slides[0].Content)
	}
}

func TestCreateUserGeneratesIDAndPosition(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	for _, name := range []string{"first", "second"} {
		if err := store.CreateUser(ctx, storage.User{Name: name}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	users, err := store.Catalog(ctx)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("users = %d, want 2", len(users))
	}
	if users[0].Name != "first" || users[1].Name != "second" {
		t.Fatalf("order = %q, %q", users[0].Name, users[1].Name)
	}
	if users[0].ID == "" || users[0].ID == users[1].ID {
		t.Fatalf("ids = %q, %q, want distinct generated ids", users[0].ID, users[1].ID)
	}
	if users[1].Position != users[0].Position+1 {
		t.Fatalf("positions = %d, %d", users[0].Position, users[1].Position)
	}
}

func TestCreateUserReturnsAlreadyExistsOnDuplicateName(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	if err := store.CreateUser(ctx, storage.User{Name: "user1"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	err := store.CreateUser(ctx, storage.User{Name: "user1"})
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("err = %v, want %v", err, storage.ErrAlreadyExists)
	}
}

func TestCreateUserRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	tests := []struct {
		name string
		user storage.User
	}{
		{name: "missing name", user: storage.User{Name: "  "}},
		{name: "empty slide", user: storage.User{Name: "a", Slides: []storage.Slide{{Content: ""}}}},
		{name: "negative duration", user: storage.User{Name: "b", Slides: []storage.Slide{{Content: "x", Duration: -time.Second}}}},
	}
	for _, tc := range tests {
		if err := store.CreateUser(context.Background(), tc.user); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestGetUserNotFound(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	_, err := store.GetUser(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestListUsersPaginates(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	users := []storage.User{
		{Name: "user1", Slides: []storage.Slide{{Content: "a"}, {Content: "b"}}},
		{Name: "user2", Slides: []storage.Slide{{Content: "c"}}},
		{Name: "user3", Slides: []storage.Slide{{Content: "d"}}},
	}
	if err := store.ReplaceCatalog(ctx, users); err != nil {
		t.Fatalf("replace catalog: %v", err)
	}

	first, err := store.ListUsers(ctx, 2, "")
	if err != nil {
		t.Fatalf("list first page: %v", err)
	}
	if len(first.Users) != 2 {
		t.Fatalf("first page = %d, want 2", len(first.Users))
	}
	if first.NextPageToken == "" {
		t.Fatal("expected next page token")
	}
	if len(first.Users[0].Slides) != 2 {
		t.Fatalf("first user slides = %d, want 2", len(first.Users[0].Slides))
	}

	second, err := store.ListUsers(ctx, 2, first.NextPageToken)
	if err != nil {
		t.Fatalf("list second page: %v", err)
	}
	if len(second.Users) != 1 || second.Users[0].Name != "user3" {
		t.Fatalf("second page = %+v, want user3", second.Users)
	}
	if second.NextPageToken != "" {
		t.Fatalf("next page token = %q, want empty", second.NextPageToken)
	}
}

func TestListUsersRejectsBadInput(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if _, err := store.ListUsers(context.Background(), 0, ""); err == nil {
		t.Fatal("expected page size error")
	}
	if _, err := store.ListUsers(context.Background(), 1, "garbage"); !errors.Is(err, storage.ErrInvalidPageToken) {
		t.Fatalf("err = %v, want %v", err, storage.ErrInvalidPageToken)
	}
}

func TestReplaceCatalogSwapsUsers(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	if err := store.ReplaceCatalog(ctx, []storage.User{{Name: "old", Slides: []storage.Slide{{Content: "x"}}}}); err != nil {
		t.Fatalf("replace catalog: %v", err)
	}
	if err := store.ReplaceCatalog(ctx, []storage.User{{Name: "b"}, {Name: "a"}}); err != nil {
		t.Fatalf("replace catalog: %v", err)
	}

	users, err := store.Catalog(ctx)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if len(users) != 2 || users[0].Name != "b" || users[1].Name != "a" {
		t.Fatalf("catalog = %+v, want [b a]", users)
	}
	if len(users[0].Slides) != 0 {
		t.Fatalf("slides = %d, want 0", len(users[0].Slides))
	}
}

func TestReplaceCatalogRollsBackOnFailure(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	if err := store.ReplaceCatalog(ctx, []storage.User{{Name: "keep"}}); err != nil {
		t.Fatalf("replace catalog: %v", err)
	}
	err := store.ReplaceCatalog(ctx, []storage.User{{Name: "dup"}, {Name: "dup"}})
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("err = %v, want %v", err, storage.ErrAlreadyExists)
	}

	users, err := store.Catalog(ctx)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if len(users) != 1 || users[0].Name != "keep" {
		t.Fatalf("catalog = %+v, want [keep]", users)
	}
}

func TestReplaceCatalogClearsOldSlides(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	if err := store.ReplaceCatalog(ctx, []storage.User{{Name: "ana", Slides: []storage.Slide{{Content: "x"}}}}); err != nil {
		t.Fatalf("replace catalog: %v", err)
	}
	if err := store.ReplaceCatalog(ctx, []storage.User{{Name: "bo"}}); err != nil {
		t.Fatalf("replace catalog: %v", err)
	}

	var count int
	if err := store.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM story_slides`).Scan(&count); err != nil {
		t.Fatalf("count slides: %v", err)
	}
	if count != 0 {
		t.Fatalf("story_slides rows = %d, want 0", count)
	}
}

func TestReplaceCatalogTwiceWithSameIDs(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	catalog := []storage.User{{ID: "u1", Name: "ana", Slides: []storage.Slide{{Content: "a"}, {Content: "b"}}}}
	for i := 0; i < 2; i++ {
		if err := store.ReplaceCatalog(ctx, catalog); err != nil {
			t.Fatalf("replace catalog %d: %v", i, err)
		}
	}

	user, err := store.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if len(user.Slides) != 2 {
		t.Fatalf("slides = %d, want 2", len(user.Slides))
	}
}

func TestOpenEnablesConnectionPragmas(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	var foreignKeys int
	if err := store.sqlDB.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&foreignKeys); err != nil {
		t.Fatalf("read foreign_keys: %v", err)
	}
	if foreignKeys != 1 {
		t.Fatalf("foreign_keys = %d, want 1", foreignKeys)
	}
	var busyTimeout int
	if err := store.sqlDB.QueryRowContext(ctx, `PRAGMA busy_timeout`).Scan(&busyTimeout); err != nil {
		t.Fatalf("read busy_timeout: %v", err)
	}
	if busyTimeout != 5000 {
		t.Fatalf("busy_timeout = %d, want 5000", busyTimeout)
	}
}

func TestStorySetConvertsSlides(t *testing.T) {
	t.Parallel()

	user := storage.User{Name: "n", Avatar: "a", Slides: []storage.Slide{{Content: "c", Duration: time.Second}}}
	set := user.StorySet()
	if set.Name != "n" || set.Avatar != "a" {
		t.Fatalf("set = %+v", set)
	}
	if len(set.Slides) != 1 || set.Slides[0].Duration != time.Second {
		t.Fatalf("slides = %+v", set.Slides)
	}
}

func TestClosedStoreErrors(t *testing.T) {
	t.Parallel()

	var store *Store
	if err := store.Close(); err != nil {
		t.Fatalf("close nil store: %v", err)
	}
	if _, err := store.Catalog(context.Background()); err == nil {
		t.Fatal("expected unconfigured store error")
	}
}

func openTempStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "stories.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}
