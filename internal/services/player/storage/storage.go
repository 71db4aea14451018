// Package storage defines persistence contracts for the player's story
// catalog: the authors and slides a playback session is built from.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/stories/internal/playback/story"
)

var (
	// ErrNotFound indicates a requested catalog record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates an author name is already taken.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrInvalidPageToken indicates a page token this store did not issue.
	ErrInvalidPageToken = errors.New("invalid page token")
)

// Slide is one stored slide. A zero Duration means the session default.
type Slide struct {
	Content  string
	Duration time.Duration
}

// User is one author and their ordered slides.
type User struct {
	ID     string
	Name   string
	Avatar string
	// Position orders authors within a linear session.
	Position  int
	Slides    []Slide
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StorySet converts the record into the playback model.
func (u User) StorySet() story.UserStorySet {
	set := story.UserStorySet{Name: u.Name, Avatar: u.Avatar}
	for _, s := range u.Slides {
		set.Slides = append(set.Slides, story.Slide{Content: s.Content, Duration: s.Duration})
	}
	return set
}

// UserPage stores one page of authors.
type UserPage struct {
	Users         []User
	NextPageToken string
}

// CatalogStore persists authors and their slides.
type CatalogStore interface {
	// CreateUser inserts one author at the end of the catalog.
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	// ListUsers pages authors in session order. Page tokens are opaque.
	ListUsers(ctx context.Context, pageSize int, pageToken string) (UserPage, error)
	// Catalog returns every author in session order.
	Catalog(ctx context.Context) ([]User, error)
	// ReplaceCatalog atomically swaps the whole catalog for users.
	ReplaceCatalog(ctx context.Context, users []User) error
}
