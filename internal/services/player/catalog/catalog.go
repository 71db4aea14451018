// Package catalog loads story catalogs from JSON files or the built-in demo
// set and imports them into the player's catalog store.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/louisbranch/stories/internal/playback/story"
	"github.com/louisbranch/stories/internal/services/player/storage"
)

type filePayload struct {
	Users []userPayload `json:"users"`
}

type userPayload struct {
	Name   string         `json:"name"`
	Avatar string         `json:"avatar"`
	Slides []slidePayload `json:"slides"`
}

type slidePayload struct {
	Content    string `json:"content"`
	DurationMS int64  `json:"duration_ms"`
}

// Decode reads one catalog document.
func Decode(r io.Reader) ([]storage.User, error) {
	var payload filePayload
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	users := make([]storage.User, 0, len(payload.Users))
	for _, u := range payload.Users {
		user := storage.User{Name: u.Name, Avatar: u.Avatar}
		for _, s := range u.Slides {
			user.Slides = append(user.Slides, storage.Slide{
				Content:  s.Content,
				Duration: time.Duration(s.DurationMS) * time.Millisecond,
			})
		}
		users = append(users, user)
	}
	return users, nil
}

// ReadFile decodes the catalog document at path.
func ReadFile(path string) ([]storage.User, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Demo returns the sample catalog shipped with the player.
func Demo() []storage.User {
	return []storage.User{
		{
			Name:   "user1",
			Avatar: "https://picsum.photos/80/80",
			Slides: []storage.Slide{
				{Content: "https://picsum.photos/1080/1920"},
				{Content: "https://picsum.photos/1000/1800"},
			},
		},
		{
			Name:   "user2",
			Avatar: "https://picsum.photos/100/100",
			Slides: []storage.Slide{{Content: "https://picsum.photos/800/1600"}},
		},
		{
			Name:   "user3",
			Avatar: "https://picsum.photos/120/120",
			Slides: []storage.Slide{{Content: "https://picsum.photos/900/1700"}},
		},
		{
			Name:   "user4",
			Avatar: "https://picsum.photos/130/130",
			Slides: []storage.Slide{{Content: "https://picsum.photos/600/800"}},
		},
	}
}

// Normalize trims and NFC-normalises every user and validates the result.
// Authors without slides are kept; the session skips them.
func Normalize(users []storage.User) ([]storage.User, error) {
	if len(users) == 0 {
		return nil, errors.New("catalog has no users")
	}

	normalized := make([]storage.User, 0, len(users))
	seen := make(map[string]int, len(users))
	navigable := false
	for i, user := range users {
		set := story.NormalizeUserStorySet(user.StorySet())
		if set.Name == "" {
			return nil, fmt.Errorf("user %d: name is required", i)
		}
		if prev, ok := seen[set.Name]; ok {
			return nil, fmt.Errorf("user %d: name %q duplicates user %d", i, set.Name, prev)
		}
		seen[set.Name] = i

		out := storage.User{ID: strings.TrimSpace(user.ID), Name: set.Name, Avatar: set.Avatar}
		for j, slide := range set.Slides {
			if slide.Content == "" {
				return nil, fmt.Errorf("user %q slide %d: content is required", set.Name, j)
			}
			if slide.Duration < 0 {
				return nil, fmt.Errorf("user %q slide %d: duration must not be negative", set.Name, j)
			}
			out.Slides = append(out.Slides, storage.Slide{Content: slide.Content, Duration: slide.Duration})
		}
		if set.Navigable() {
			navigable = true
		}
		normalized = append(normalized, out)
	}
	if !navigable {
		return nil, errors.New("catalog has no slides")
	}
	return normalized, nil
}
