// Package story defines the playback data model: slides, per-author slide
// sets and the session configuration shared by every controller.
package story

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Slide is one timed unit of content. Content is an opaque reference such as
// a URI or content id; rendering it is the host's concern.
type Slide struct {
	Content string
	// Duration overrides the session default when positive.
	Duration time.Duration
}

// UserStorySet is the ordered slide sequence of one author.
type UserStorySet struct {
	Name   string
	Avatar string
	Slides []Slide
}

// Navigable reports whether the set has at least one slide.
func (u UserStorySet) Navigable() bool {
	return len(u.Slides) > 0
}

// NormalizeUserStorySet trims the author fields and NFC-normalises the name
// so the same author typed on different keyboards compares equal. Slides are
// copied so callers cannot mutate a set after handing it over.
func NormalizeUserStorySet(set UserStorySet) UserStorySet {
	normalized := UserStorySet{
		Name:   norm.NFC.String(strings.TrimSpace(set.Name)),
		Avatar: strings.TrimSpace(set.Avatar),
	}
	if len(set.Slides) > 0 {
		normalized.Slides = make([]Slide, 0, len(set.Slides))
		for _, slide := range set.Slides {
			normalized.Slides = append(normalized.Slides, Slide{
				Content:  strings.TrimSpace(slide.Content),
				Duration: slide.Duration,
			})
		}
	}
	return normalized
}
