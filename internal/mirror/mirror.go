// Package mirror keeps a client-side copy of the resource tree in sync
// with server responses. It applies the same ordering rules the server
// does, so a subscriber never sees section numbers or marker order drift
// from what a reload would return.
package mirror

import (
	"sort"
	"sync"

	"shelfmark/api/internal/notes"
)

// Snapshot is an immutable view handed to subscribers.
type Snapshot struct {
	Resources []notes.Resource
	ActiveID  string
	Loading   bool
	Err       error
}

type listener func(Snapshot)

// Store holds the mirrored state. All methods are safe for concurrent
// use; subscribers are notified synchronously after each change, with
// the lock released, so a listener may call back into the store.
type Store struct {
	mu        sync.Mutex
	resources []notes.Resource
	activeID  string
	loading   bool
	err       error

	nextSub   int
	listeners map[int]listener
}

func NewStore() *Store {
	return &Store{listeners: make(map[int]listener)}
}

// Subscribe registers fn and immediately calls it with the current
// snapshot. The returned function unsubscribes.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	fn(snapshot)
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Resources: cloneResources(s.resources),
		ActiveID:  s.activeID,
		Loading:   s.loading,
		Err:       s.err,
	}
}

// broadcastLocked captures the snapshot and listener set under the lock
// and returns the delivery step to run after the lock is released.
// Invoking listeners with the mutex held would deadlock any subscriber
// that reads the store from its callback.
func (s *Store) broadcastLocked() func() {
	snapshot := s.snapshotLocked()
	listeners := make([]listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	return func() {
		for _, fn := range listeners {
			fn(snapshot)
		}
	}
}

// SetLoading marks a fetch in flight and clears any stale error.
func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	s.loading = loading
	if loading {
		s.err = nil
	}
	notify := s.broadcastLocked()
	s.mu.Unlock()
	notify()
}

func (s *Store) SetError(err error) {
	s.mu.Lock()
	s.err = err
	s.loading = false
	notify := s.broadcastLocked()
	s.mu.Unlock()
	notify()
}

// ReplaceAll swaps in a freshly fetched list, preserving the active
// selection when it survived the reload.
func (s *Store) ReplaceAll(resources []notes.Resource) {
	s.mu.Lock()
	s.resources = cloneResources(resources)
	s.loading = false
	s.err = nil
	if s.activeID != "" && s.findLocked(s.activeID) == nil {
		s.activeID = ""
	}
	notify := s.broadcastLocked()
	s.mu.Unlock()
	notify()
}

func (s *Store) SetActive(resourceID string) {
	s.mu.Lock()
	if resourceID != "" && s.findLocked(resourceID) == nil {
		s.mu.Unlock()
		return
	}
	s.activeID = resourceID
	notify := s.broadcastLocked()
	s.mu.Unlock()
	notify()
}

// Active returns the selected resource, or false when nothing is
// selected.
func (s *Store) Active() (notes.Resource, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item := s.findLocked(s.activeID)
	if item == nil {
		return notes.Resource{}, false
	}
	return cloneResource(*item), true
}

func (s *Store) findLocked(resourceID string) *notes.Resource {
	for i := range s.resources {
		if s.resources[i].ID == resourceID {
			return &s.resources[i]
		}
	}
	return nil
}

// ApplyResource upserts one resource, typically from a create or a full
// tree fetch.
func (s *Store) ApplyResource(resource notes.Resource) {
	s.mu.Lock()
	incoming := cloneResource(resource)
	for i := range incoming.Sections {
		incoming.Sections[i].Markers = notes.SortMarkers(incoming.Sections[i].Markers, incoming.Type)
	}
	if existing := s.findLocked(resource.ID); existing != nil {
		*existing = incoming
	} else {
		s.resources = append(s.resources, incoming)
	}
	notify := s.broadcastLocked()
	s.mu.Unlock()
	notify()
}

func (s *Store) RemoveResource(resourceID string) {
	s.mu.Lock()
	for i := range s.resources {
		if s.resources[i].ID == resourceID {
			s.resources = append(s.resources[:i], s.resources[i+1:]...)
			break
		}
	}
	if s.activeID == resourceID {
		s.activeID = ""
	}
	notify := s.broadcastLocked()
	s.mu.Unlock()
	notify()
}

// ApplySectionAdded appends the section the server returned.
func (s *Store) ApplySectionAdded(resourceID string, section notes.Section) {
	s.mu.Lock()
	resource := s.findLocked(resourceID)
	if resource == nil {
		s.mu.Unlock()
		return
	}
	resource.Sections = append(resource.Sections, section)
	sortSections(resource.Sections)
	notify := s.broadcastLocked()
	s.mu.Unlock()
	notify()
}

// ApplySectionDeleted removes the section and decrements every sibling
// above it, mirroring the renumbering the server commits. Dropping the
// entry without renumbering leaves the local copy with a gap the next
// fetch would silently close.
func (s *Store) ApplySectionDeleted(resourceID, sectionID string) {
	s.mu.Lock()
	resource := s.findLocked(resourceID)
	if resource == nil {
		s.mu.Unlock()
		return
	}
	deletedNumber := 0
	for i := range resource.Sections {
		if resource.Sections[i].ID == sectionID {
			deletedNumber = resource.Sections[i].Number
			resource.Sections = append(resource.Sections[:i], resource.Sections[i+1:]...)
			break
		}
	}
	if deletedNumber == 0 {
		s.mu.Unlock()
		return
	}
	for _, change := range notes.RenumberAfterDelete(resource.Sections, deletedNumber) {
		for i := range resource.Sections {
			if resource.Sections[i].ID == change.ID {
				resource.Sections[i].Number = change.NewNumber
			}
		}
	}
	sortSections(resource.Sections)
	notify := s.broadcastLocked()
	s.mu.Unlock()
	notify()
}

// ApplySections replaces the whole section list, the shape the delete
// endpoint responds with.
func (s *Store) ApplySections(resourceID string, sections []notes.Section) {
	s.mu.Lock()
	resource := s.findLocked(resourceID)
	if resource == nil {
		s.mu.Unlock()
		return
	}
	resource.Sections = append([]notes.Section(nil), sections...)
	sortSections(resource.Sections)
	notify := s.broadcastLocked()
	s.mu.Unlock()
	notify()
}

// ApplyMarkers replaces one section's marker list with the sorted list
// from a marker mutation response.
func (s *Store) ApplyMarkers(resourceID, sectionID string, markers []notes.Marker) {
	s.mu.Lock()
	resource := s.findLocked(resourceID)
	if resource == nil {
		s.mu.Unlock()
		return
	}
	for i := range resource.Sections {
		if resource.Sections[i].ID == sectionID {
			resource.Sections[i].Markers = notes.SortMarkers(markers, resource.Type)
			break
		}
	}
	notify := s.broadcastLocked()
	s.mu.Unlock()
	notify()
}

func sortSections(sections []notes.Section) {
	sort.Slice(sections, func(i, j int) bool { return sections[i].Number < sections[j].Number })
}

func cloneResources(resources []notes.Resource) []notes.Resource {
	out := make([]notes.Resource, len(resources))
	for i := range resources {
		out[i] = cloneResource(resources[i])
	}
	return out
}

func cloneResource(resource notes.Resource) notes.Resource {
	out := resource
	out.Sections = make([]notes.Section, len(resource.Sections))
	for i := range resource.Sections {
		out.Sections[i] = resource.Sections[i]
		out.Sections[i].Markers = append([]notes.Marker(nil), resource.Sections[i].Markers...)
	}
	return out
}
