// Package notes holds the canonical Shelfmark entity types and the pure
// ordering rules that govern them. Both the server (store, app) and the
// client cache mirror import this package, so section renumbering and
// marker ordering have exactly one implementation.
package notes

import "time"

// Resource types.
const (
	TypeBook    = "book"
	TypePodcast = "podcast"
	TypeArticle = "article"
	TypeCourse  = "course"
)

// Marker types.
const (
	MarkerGeneral  = "general"
	MarkerConcept  = "concept"
	MarkerQuestion = "question"
	MarkerSummary  = "summary"
)

type Resource struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Author    string    `json:"author,omitempty"`
	SourceURL string    `json:"sourceUrl,omitempty"`
	IsPublic  bool      `json:"isPublic"`
	Sections  []Section `json:"sections"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Section is a numbered division of a resource. Numbers within a resource
// are unique and contiguous from 1; the repository and the mirror both
// maintain that invariant through the functions in ordering.go.
type Section struct {
	ID         string    `json:"id"`
	ResourceID string    `json:"resourceId"`
	Title      string    `json:"title"`
	Number     int       `json:"number"`
	Markers    []Marker  `json:"markers"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Marker is a note anchored to a position within a section. Position is a
// free-form string: decimal page digits for book/article, a timestamp or
// label for audio types. OrderNum is an insertion counter used as a sort
// tie-break; it is never renumbered, so gaps appear after deletes.
// The external JSON name for OrderNum is "order".
type Marker struct {
	ID        string    `json:"id"`
	SectionID string    `json:"sectionId"`
	AuthorID  string    `json:"authorId"`
	Position  string    `json:"position"`
	OrderNum  int       `json:"order"`
	Quote     string    `json:"quote,omitempty"`
	Note      string    `json:"note"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Comment struct {
	ID         string    `json:"id"`
	MarkerID   string    `json:"markerId"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ValidType reports whether t is one of the allowed resource types.
func ValidType(t string) bool {
	switch t {
	case TypeBook, TypePodcast, TypeArticle, TypeCourse:
		return true
	}
	return false
}

// ValidMarkerType reports whether t is one of the allowed marker types.
func ValidMarkerType(t string) bool {
	switch t {
	case MarkerGeneral, MarkerConcept, MarkerQuestion, MarkerSummary:
		return true
	}
	return false
}
