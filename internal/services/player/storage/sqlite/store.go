// Package sqlite provides a SQLite-backed story catalog.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/stories/internal/platform/id"
	sqlitemigrate "github.com/louisbranch/stories/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/stories/internal/services/player/storage"
	"github.com/louisbranch/stories/internal/services/player/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists the story catalog in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
	newID func() (string, error)
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite catalog store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	ctx := context.Background()
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlitemigrate.ApplyMigrations(ctx, sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now, newID: id.NewID}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreateUser inserts one author after the current last position.
func (s *Store) CreateUser(ctx context.Context, user storage.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create user: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var next int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position) + 1, 0) FROM story_users`).Scan(&next); err != nil {
		return fmt.Errorf("next user position: %w", err)
	}
	user.Position = next
	if err := s.insertUser(ctx, tx, user); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create user: %w", err)
	}
	return nil
}

// GetUser returns one author with slides.
func (s *Store) GetUser(ctx context.Context, userID string) (storage.User, error) {
	if err := ctx.Err(); err != nil {
		return storage.User{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.User{}, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return storage.User{}, fmt.Errorf("user id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, name, avatar, position, created_at, updated_at
		   FROM story_users
		  WHERE id = ?`,
		userID,
	)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.User{}, storage.ErrNotFound
		}
		return storage.User{}, fmt.Errorf("get user: %w", err)
	}
	users := []storage.User{user}
	if err := s.loadSlides(ctx, users); err != nil {
		return storage.User{}, err
	}
	return users[0], nil
}

// ListUsers returns one page of authors in session order.
func (s *Store) ListUsers(ctx context.Context, pageSize int, pageToken string) (storage.UserPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.UserPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.UserPage{}, fmt.Errorf("storage is not configured")
	}
	if pageSize <= 0 {
		return storage.UserPage{}, fmt.Errorf("page size must be greater than zero")
	}

	var (
		rows *sql.Rows
		err  error
	)
	pageToken = strings.TrimSpace(pageToken)
	if pageToken == "" {
		rows, err = s.sqlDB.QueryContext(
			ctx,
			`SELECT id, name, avatar, position, created_at, updated_at
			   FROM story_users
			  ORDER BY position ASC, id ASC
			  LIMIT ?`,
			pageSize+1,
		)
	} else {
		position, afterID, parseErr := parsePageToken(pageToken)
		if parseErr != nil {
			return storage.UserPage{}, parseErr
		}
		rows, err = s.sqlDB.QueryContext(
			ctx,
			`SELECT id, name, avatar, position, created_at, updated_at
			   FROM story_users
			  WHERE position > ? OR (position = ? AND id > ?)
			  ORDER BY position ASC, id ASC
			  LIMIT ?`,
			position, position, afterID,
			pageSize+1,
		)
	}
	if err != nil {
		return storage.UserPage{}, fmt.Errorf("list users: %w", err)
	}
	users, err := scanUsers(rows)
	if err != nil {
		return storage.UserPage{}, fmt.Errorf("list users: %w", err)
	}

	page := storage.UserPage{}
	if len(users) > pageSize {
		last := users[pageSize-1]
		page.NextPageToken = pageTokenFor(last)
		users = users[:pageSize]
	}
	if err := s.loadSlides(ctx, users); err != nil {
		return storage.UserPage{}, err
	}
	page.Users = users
	return page, nil
}

// Catalog returns every author in session order.
func (s *Store) Catalog(ctx context.Context) ([]storage.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, name, avatar, position, created_at, updated_at
		   FROM story_users
		  ORDER BY position ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	users, err := scanUsers(rows)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if err := s.loadSlides(ctx, users); err != nil {
		return nil, err
	}
	return users, nil
}

// ReplaceCatalog deletes every author and inserts users in order.
func (s *Store) ReplaceCatalog(ctx context.Context, users []storage.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace catalog: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Slides are cleared explicitly so the swap does not depend on the
	// connection's foreign key setting.
	if _, err := tx.ExecContext(ctx, `DELETE FROM story_slides`); err != nil {
		return fmt.Errorf("clear catalog slides: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM story_users`); err != nil {
		return fmt.Errorf("clear catalog: %w", err)
	}
	for i, user := range users {
		user.Position = i
		if err := s.insertUser(ctx, tx, user); err != nil {
			return fmt.Errorf("user %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace catalog: %w", err)
	}
	return nil
}

func (s *Store) insertUser(ctx context.Context, tx *sql.Tx, user storage.User) error {
	name := strings.TrimSpace(user.Name)
	if name == "" {
		return fmt.Errorf("user name is required")
	}
	for i, slide := range user.Slides {
		if strings.TrimSpace(slide.Content) == "" {
			return fmt.Errorf("slide %d content is required", i)
		}
		if slide.Duration < 0 {
			return fmt.Errorf("slide %d duration must not be negative", i)
		}
	}
	userID := strings.TrimSpace(user.ID)
	if userID == "" {
		generated, err := s.newID()
		if err != nil {
			return err
		}
		userID = generated
	}
	createdAt := user.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = s.now().UTC()
	}
	updatedAt := user.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO story_users (id, name, avatar, position, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID,
		name,
		strings.TrimSpace(user.Avatar),
		user.Position,
		toMillis(createdAt),
		toMillis(updatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	for i, slide := range user.Slides {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO story_slides (user_id, position, content, duration_ms) VALUES (?, ?, ?, ?)`,
			userID,
			i,
			strings.TrimSpace(slide.Content),
			slide.Duration.Milliseconds(),
		); err != nil {
			return fmt.Errorf("insert slide %d: %w", i, err)
		}
	}
	return nil
}

func (s *Store) loadSlides(ctx context.Context, users []storage.User) error {
	if len(users) == 0 {
		return nil
	}
	index := make(map[string]int, len(users))
	placeholders := make([]string, len(users))
	args := make([]any, len(users))
	for i, u := range users {
		index[u.ID] = i
		placeholders[i] = "?"
		args[i] = u.ID
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT user_id, content, duration_ms
		   FROM story_slides
		  WHERE user_id IN (`+strings.Join(placeholders, ", ")+`)
		  ORDER BY user_id, position ASC`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("load slides: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID string
		var slide storage.Slide
		var durationMS int64
		if err := rows.Scan(&userID, &slide.Content, &durationMS); err != nil {
			return fmt.Errorf("load slides: %w", err)
		}
		slide.Duration = time.Duration(durationMS) * time.Millisecond
		i := index[userID]
		users[i].Slides = append(users[i].Slides, slide)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load slides: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (storage.User, error) {
	var user storage.User
	var createdAt, updatedAt int64
	if err := row.Scan(&user.ID, &user.Name, &user.Avatar, &user.Position, &createdAt, &updatedAt); err != nil {
		return storage.User{}, err
	}
	user.CreatedAt = fromMillis(createdAt)
	user.UpdatedAt = fromMillis(updatedAt)
	return user, nil
}

func scanUsers(rows *sql.Rows) ([]storage.User, error) {
	defer rows.Close()
	var users []storage.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func pageTokenFor(user storage.User) string {
	return strconv.Itoa(user.Position) + ":" + user.ID
}

func parsePageToken(token string) (int, string, error) {
	positionPart, userID, ok := strings.Cut(token, ":")
	position, err := strconv.Atoi(positionPart)
	if !ok || err != nil || userID == "" {
		return 0, "", fmt.Errorf("%w: %q", storage.ErrInvalidPageToken, token)
	}
	return position, userID, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed")
}

var _ storage.CatalogStore = (*Store)(nil)
