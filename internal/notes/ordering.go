package notes

import (
	"sort"
	"strconv"
)

// NextSectionNumber returns the number to assign a section appended to
// existing: max+1, or 1 when the resource has no sections yet.
func NextSectionNumber(existing []Section) int {
	next := 1
	for _, section := range existing {
		if section.Number >= next {
			next = section.Number + 1
		}
	}
	return next
}

// Renumber is one section's new number after a sibling delete.
type Renumber struct {
	ID        string
	NewNumber int
}

// RenumberAfterDelete returns the number changes needed to close the gap
// left by deleting the section numbered deletedNumber. Sections below the
// deleted number are unaffected and omitted from the result.
func RenumberAfterDelete(existing []Section, deletedNumber int) []Renumber {
	changes := make([]Renumber, 0)
	for _, section := range existing {
		if section.Number > deletedNumber {
			changes = append(changes, Renumber{ID: section.ID, NewNumber: section.Number - 1})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].NewNumber < changes[j].NewNumber })
	return changes
}

// NextOrderNum returns the insertion counter for a marker appended to
// existing. Deleted markers leave gaps; the counter only moves forward.
func NextOrderNum(existing []Marker) int {
	next := 1
	for _, marker := range existing {
		if marker.OrderNum >= next {
			next = marker.OrderNum + 1
		}
	}
	return next
}

// SortMarkers returns markers in display order for the given resource
// type. Book and article positions are page numbers and compare
// numerically (a non-numeric position parses as 0 and sorts first). Every
// other type compares positions as plain strings, which matches how the
// positions are entered for audio resources: note that "9:00" sorts after
// "10:00" lexicographically. That is the established behavior, kept as-is.
// Equal positions fall back to ascending OrderNum. The input is not
// modified.
func SortMarkers(markers []Marker, resourceType string) []Marker {
	sorted := make([]Marker, len(markers))
	copy(sorted, markers)

	numeric := resourceType == TypeBook || resourceType == TypeArticle
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if numeric {
			pa, pb := pageValue(a.Position), pageValue(b.Position)
			if pa != pb {
				return pa < pb
			}
		} else if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.OrderNum < b.OrderNum
	})
	return sorted
}

func pageValue(position string) int {
	value, err := strconv.Atoi(position)
	if err != nil {
		return 0
	}
	return value
}
