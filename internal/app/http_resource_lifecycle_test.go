package app

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"shelfmark/api/internal/notes"
	"shelfmark/api/internal/store"
)

// sectionState backs a stateful fake for the section lifecycle: delete
// applies the same renumbering the real store runs in its transaction.
type sectionState struct {
	resource notes.Resource
	sections []notes.Section
}

func newSectionState(ownerID string, titles []string) *sectionState {
	state := &sectionState{
		resource: notes.Resource{ID: "res-1", OwnerID: ownerID, Name: "A Book", Type: notes.TypeBook},
	}
	for i, title := range titles {
		state.sections = append(state.sections, notes.Section{
			ID:         "sec-" + title,
			ResourceID: "res-1",
			Title:      title,
			Number:     i + 1,
		})
	}
	return state
}

func (st *sectionState) store() *fakeStore {
	return &fakeStore{
		getResourceFn: func(context.Context, string) (notes.Resource, error) {
			return st.resource, nil
		},
		listSectionsFn: func(context.Context, string) ([]notes.Section, error) {
			ordered := append([]notes.Section(nil), st.sections...)
			sort.Slice(ordered, func(i, j int) bool { return ordered[i].Number < ordered[j].Number })
			return ordered, nil
		},
		addSectionFn: func(_ context.Context, _ string, section notes.Section) (notes.Section, error) {
			section.Number = notes.NextSectionNumber(st.sections)
			st.sections = append(st.sections, section)
			return section, nil
		},
		deleteSectionFn: func(_ context.Context, _, sectionID string) error {
			idx := -1
			for i, section := range st.sections {
				if section.ID == sectionID {
					idx = i
					break
				}
			}
			if idx < 0 {
				return sql.ErrNoRows
			}
			deletedNumber := st.sections[idx].Number
			st.sections = append(st.sections[:idx], st.sections[idx+1:]...)
			for _, change := range notes.RenumberAfterDelete(st.sections, deletedNumber) {
				for i := range st.sections {
					if st.sections[i].ID == change.ID {
						st.sections[i].Number = change.NewNumber
					}
				}
			}
			return nil
		},
	}
}

func TestDeleteSectionRenumbersOverHTTP(t *testing.T) {
	state := newSectionState("user-owner", []string{"One", "Two", "Three", "Four"})
	server := NewHTTPServer(newTestService(state.store()), "*")
	handler := server.Handler()
	token := issueTestToken(t, "user-owner", "Owner")

	req := httptest.NewRequest(http.MethodDelete, "/api/resources/res-1/sections/sec-Two", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete section: got %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Sections []notes.Section `json:"sections"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(body.Sections))
	}
	wantNumbers := []int{1, 2, 3}
	wantTitles := []string{"One", "Three", "Four"}
	for i, section := range body.Sections {
		if section.Number != wantNumbers[i] {
			t.Fatalf("section %d number %d, want %d", i, section.Number, wantNumbers[i])
		}
		if section.Title != wantTitles[i] {
			t.Fatalf("section %d title %q, want %q", i, section.Title, wantTitles[i])
		}
	}
}

func TestAddSectionAppendsAtEndOverHTTP(t *testing.T) {
	state := newSectionState("user-owner", []string{"One", "Two"})
	server := NewHTTPServer(newTestService(state.store()), "*")
	handler := server.Handler()

	payload := bytes.NewBufferString(`{"title":"Three"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/resources/res-1/sections", payload)
	req.Header.Set("Authorization", "Bearer "+issueTestToken(t, "user-owner", "Owner"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add section: got %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Section  notes.Section   `json:"section"`
		Sections []notes.Section `json:"sections"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Section.Number != 3 {
		t.Fatalf("new section numbered %d, want 3", body.Section.Number)
	}
	if len(body.Sections) != 3 {
		t.Fatalf("expected 3 sections in response, got %d", len(body.Sections))
	}
}

func TestCreateResourceOverHTTP(t *testing.T) {
	var stored notes.Resource
	fs := &fakeStore{
		createResourceFn: func(_ context.Context, resource notes.Resource) (notes.Resource, error) {
			stored = resource
			return resource, nil
		},
	}
	server := NewHTTPServer(newTestService(fs), "*")
	handler := server.Handler()

	payload := bytes.NewBufferString(`{
		"name": "Go Time",
		"type": "podcast",
		"author": "Changelog",
		"sections": [
			{"title": "Episode 1", "markers": [{"position": "12:30", "note": "intro"}]},
			{"title": "Episode 2"}
		]
	}`)
	req := httptest.NewRequest(http.MethodPost, "/api/resources", payload)
	req.Header.Set("Authorization", "Bearer "+issueTestToken(t, "user-owner", "Owner"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create resource: got %d, want 201: %s", rec.Code, rec.Body.String())
	}

	if stored.Type != notes.TypePodcast {
		t.Fatalf("stored type %q", stored.Type)
	}
	if len(stored.Sections) != 2 || stored.Sections[0].Number != 1 || stored.Sections[1].Number != 2 {
		t.Fatalf("sections not numbered contiguously: %+v", stored.Sections)
	}
	if stored.Sections[0].Markers[0].AuthorID != "user-owner" {
		t.Fatalf("marker author %q, want user-owner", stored.Sections[0].Markers[0].AuthorID)
	}

	var body struct {
		Resource notes.Resource `json:"resource"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Resource.Name != "Go Time" {
		t.Fatalf("response resource name %q", body.Resource.Name)
	}
}

func TestAddMarkerReturnsSortedSection(t *testing.T) {
	existing := []notes.Marker{
		{ID: "mk-1", SectionID: "sec-1", Position: "10", OrderNum: 1},
		{ID: "mk-2", SectionID: "sec-1", Position: "2", OrderNum: 2},
	}
	fs := &fakeStore{
		getResourceFn: func(context.Context, string) (notes.Resource, error) {
			return notes.Resource{ID: "res-1", OwnerID: "user-owner", Type: notes.TypeBook}, nil
		},
		addMarkerFn: func(_ context.Context, _, sectionID string, marker notes.Marker) (notes.Marker, error) {
			marker.SectionID = sectionID
			marker.OrderNum = notes.NextOrderNum(existing)
			existing = append(existing, marker)
			return marker, nil
		},
		listMarkersFn: func(context.Context, string) ([]notes.Marker, error) {
			return existing, nil
		},
	}
	server := NewHTTPServer(newTestService(fs), "*")
	handler := server.Handler()

	payload := bytes.NewBufferString(`{"position": "5", "note": "midpoint", "type": "concept"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/resources/res-1/sections/sec-1/markers", payload)
	req.Header.Set("Authorization", "Bearer "+issueTestToken(t, "user-owner", "Owner"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add marker: got %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Marker  notes.Marker   `json:"marker"`
		Markers []notes.Marker `json:"markers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Marker.OrderNum != 3 {
		t.Fatalf("new marker order %d, want 3", body.Marker.OrderNum)
	}
	wantPositions := []string{"2", "5", "10"}
	for i, marker := range body.Markers {
		if marker.Position != wantPositions[i] {
			t.Fatalf("marker %d position %q, want %q", i, marker.Position, wantPositions[i])
		}
	}
}

func TestSignUpThenCreateResourceFlow(t *testing.T) {
	users := make(map[string]store.User)
	emails := make(map[string]string)
	var created notes.Resource
	fs := &fakeStore{
		createUserFn: func(_ context.Context, user store.User) error {
			users[user.ID] = user
			emails[user.Email] = user.ID
			return nil
		},
		getUserByEmailFn: func(_ context.Context, email string) (store.User, error) {
			if id, ok := emails[email]; ok {
				return users[id], nil
			}
			return store.User{}, sql.ErrNoRows
		},
		getUserByIDFn: func(_ context.Context, userID string) (store.User, error) {
			if user, ok := users[userID]; ok {
				return user, nil
			}
			return store.User{}, sql.ErrNoRows
		},
		createResourceFn: func(_ context.Context, resource notes.Resource) (notes.Resource, error) {
			created = resource
			return resource, nil
		},
	}
	server := NewHTTPServer(newTestService(fs), "*")
	handler := server.Handler()

	signup := bytes.NewBufferString(`{"email":"reader@example.com","password":"correct horse","displayName":"Reader"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", signup)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: got %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var sessionBody struct {
		Token  string `json:"token"`
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &sessionBody); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if sessionBody.Token == "" {
		t.Fatal("signup returned no access token")
	}

	create := bytes.NewBufferString(`{"name":"A Book","type":"book","sections":[{"title":"One"}]}`)
	req = httptest.NewRequest(http.MethodPost, "/api/resources", create)
	req.Header.Set("Authorization", "Bearer "+sessionBody.Token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create resource with fresh token: got %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if created.OwnerID != sessionBody.UserID {
		t.Fatalf("resource owner %q, want %q", created.OwnerID, sessionBody.UserID)
	}
}
