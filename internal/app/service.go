package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"shelfmark/api/internal/access"
	"shelfmark/api/internal/auth"
	"shelfmark/api/internal/authpw"
	"shelfmark/api/internal/config"
	"shelfmark/api/internal/notes"
	"shelfmark/api/internal/session"
	"shelfmark/api/internal/store"
	"shelfmark/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	JTI          string
	ExpiresAt    time.Time
}

type CreateResourceInput struct {
	Name      string         `json:"name"`
	Type      string         `json:"type"`
	Author    string         `json:"author"`
	SourceURL string         `json:"sourceUrl"`
	IsPublic  bool           `json:"isPublic"`
	Sections  []SectionInput `json:"sections"`
}

type SectionInput struct {
	Title   string        `json:"title"`
	Markers []MarkerInput `json:"markers"`
}

type MarkerInput struct {
	Position string `json:"position"`
	Quote    string `json:"quote"`
	Note     string `json:"note"`
	Type     string `json:"type"`
}

type UpdateResourceInput struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Author    string `json:"author"`
	SourceURL string `json:"sourceUrl"`
}

type UpdateMarkerInput struct {
	Position *string `json:"position"`
	Quote    *string `json:"quote"`
	Note     *string `json:"note"`
	Type     *string `json:"type"`
}

type dataStore interface {
	CreateUser(context.Context, store.User) error
	GetUserByEmail(context.Context, string) (store.User, error)
	GetUserByID(context.Context, string) (store.User, error)

	CreateResource(context.Context, notes.Resource) (notes.Resource, error)
	GetResource(context.Context, string) (notes.Resource, error)
	GetResourceTree(context.Context, string) (notes.Resource, error)
	ListVisible(context.Context, string) ([]notes.Resource, error)
	UpdateResourceMeta(context.Context, string, string, string, string, string) (notes.Resource, error)
	SetResourceVisibility(context.Context, string, bool) (notes.Resource, error)
	DeleteResource(context.Context, string) (bool, error)

	ListSections(context.Context, string) ([]notes.Section, error)
	AddSection(context.Context, string, notes.Section) (notes.Section, error)
	RenameSection(context.Context, string, string, string) (notes.Section, error)
	DeleteSection(context.Context, string, string) error

	ListMarkers(context.Context, string) ([]notes.Marker, error)
	GetMarker(context.Context, string, string, string) (notes.Marker, error)
	AddMarker(context.Context, string, string, notes.Marker) (notes.Marker, error)
	UpdateMarker(context.Context, string, string, string, store.MarkerPatch) (notes.Marker, error)
	DeleteMarker(context.Context, string, string, string) (bool, error)

	InsertComment(context.Context, notes.Comment) (notes.Comment, error)
	ListComments(context.Context, string) ([]notes.Comment, error)
	GetComment(context.Context, string, string) (notes.Comment, error)
	DeleteComment(context.Context, string, string) (bool, error)

	Ping(ctx context.Context) error
}

type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, userID, displayName string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (session.TokenData, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
	Ping(ctx context.Context) error
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions sessionStore
	auth     *authpw.Service
}

func New(cfg config.Config, dataStore *store.PostgresStore, sessions *session.RedisStore) *Service {
	return &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: sessions,
		auth:     authpw.NewService(dataStore),
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) PingSessions(ctx context.Context) error {
	return s.sessions.Ping(ctx)
}

// ── Sessions ──

func (s *Service) SignUp(ctx context.Context, email, password, displayName string) (Session, error) {
	user, err := s.auth.SignUp(ctx, authpw.SignUpRequest{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
	})
	if err != nil {
		return Session{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
	}
	return s.issueSession(ctx, user)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	user, err := s.auth.SignIn(ctx, authpw.SignInRequest{Email: email, Password: password})
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Invalid email or password", nil)
	}
	return s.issueSession(ctx, user)
}

// Refresh rotates the refresh token: the presented one is revoked and a
// fresh pair is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	data, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	user, err := s.store.GetUserByID(ctx, data.UserID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti_")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:  user.ID,
		Name: user.DisplayName,
		JTI:  jti,
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft_") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, user.DisplayName, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

// ── Access gates ──

func (s *Service) readableResource(ctx context.Context, requesterID, resourceID string) (notes.Resource, error) {
	resource, err := s.store.GetResource(ctx, resourceID)
	if err != nil {
		return notes.Resource{}, err
	}
	if !access.CanRead(requesterID, resource) {
		return notes.Resource{}, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	return resource, nil
}

func (s *Service) ownedResource(ctx context.Context, requesterID, resourceID string) (notes.Resource, error) {
	resource, err := s.store.GetResource(ctx, resourceID)
	if err != nil {
		return notes.Resource{}, err
	}
	if !access.CanWrite(requesterID, resource) {
		return notes.Resource{}, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	return resource, nil
}

// ── Resources ──

func (s *Service) ListResources(ctx context.Context, requesterID string) (map[string]any, error) {
	items, err := s.store.ListVisible(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"resources": items}, nil
}

// GetResource returns the full tree with every section's markers in
// display order for the resource type.
func (s *Service) GetResource(ctx context.Context, requesterID, resourceID string) (map[string]any, error) {
	if _, err := s.readableResource(ctx, requesterID, resourceID); err != nil {
		return nil, err
	}
	tree, err := s.store.GetResourceTree(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"resource": sortedTree(tree)}, nil
}

// sortedTree returns a copy of resource with every section's markers in
// display order. The section slice is copied first: the store's return
// value may alias state the store still owns, and response shaping must
// not write into it.
func sortedTree(resource notes.Resource) notes.Resource {
	out := resource
	out.Sections = make([]notes.Section, len(resource.Sections))
	copy(out.Sections, resource.Sections)
	for i := range out.Sections {
		out.Sections[i].Markers = notes.SortMarkers(out.Sections[i].Markers, out.Type)
	}
	return out
}

func (s *Service) CreateResource(ctx context.Context, session Session, input CreateResourceInput) (map[string]any, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	if !notes.ValidType(input.Type) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "type must be one of book, podcast, article, course", nil)
	}
	if len(input.Sections) == 0 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "at least one section is required", nil)
	}

	resource := notes.Resource{
		ID:        util.NewID("res_"),
		OwnerID:   session.UserID,
		Name:      input.Name,
		Type:      input.Type,
		Author:    strings.TrimSpace(input.Author),
		SourceURL: strings.TrimSpace(input.SourceURL),
		IsPublic:  input.IsPublic,
	}
	for i, sectionInput := range input.Sections {
		title := strings.TrimSpace(sectionInput.Title)
		if title == "" {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "section title is required", nil)
		}
		section := notes.Section{
			ID:     util.NewID("sec_"),
			Title:  title,
			Number: i + 1,
		}
		for j, markerInput := range sectionInput.Markers {
			marker, err := buildMarker(session.UserID, markerInput)
			if err != nil {
				return nil, err
			}
			marker.OrderNum = j + 1
			section.Markers = append(section.Markers, marker)
		}
		resource.Sections = append(resource.Sections, section)
	}

	created, err := s.store.CreateResource(ctx, resource)
	if err != nil {
		return nil, err
	}
	return map[string]any{"resource": sortedTree(created)}, nil
}

func buildMarker(authorID string, input MarkerInput) (notes.Marker, error) {
	position := strings.TrimSpace(input.Position)
	if position == "" {
		return notes.Marker{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "marker position is required", nil)
	}
	markerType := input.Type
	if markerType == "" {
		markerType = notes.MarkerGeneral
	}
	if !notes.ValidMarkerType(markerType) {
		return notes.Marker{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "marker type must be one of general, concept, question, summary", nil)
	}
	return notes.Marker{
		ID:       util.NewID("mk_"),
		AuthorID: authorID,
		Position: position,
		Quote:    input.Quote,
		Note:     input.Note,
		Type:     markerType,
	}, nil
}

func (s *Service) UpdateResourceMeta(ctx context.Context, session Session, resourceID string, input UpdateResourceInput) (map[string]any, error) {
	if _, err := s.ownedResource(ctx, session.UserID, resourceID); err != nil {
		return nil, err
	}
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	if !notes.ValidType(input.Type) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "type must be one of book, podcast, article, course", nil)
	}
	item, err := s.store.UpdateResourceMeta(ctx, resourceID, input.Name, input.Type, strings.TrimSpace(input.Author), strings.TrimSpace(input.SourceURL))
	if err != nil {
		return nil, err
	}
	return map[string]any{"resource": item}, nil
}

func (s *Service) SetResourceVisibility(ctx context.Context, session Session, resourceID string, isPublic bool) (map[string]any, error) {
	if _, err := s.ownedResource(ctx, session.UserID, resourceID); err != nil {
		return nil, err
	}
	item, err := s.store.SetResourceVisibility(ctx, resourceID, isPublic)
	if err != nil {
		return nil, err
	}
	return map[string]any{"resource": item}, nil
}

func (s *Service) DeleteResource(ctx context.Context, session Session, resourceID string) (map[string]any, error) {
	if _, err := s.ownedResource(ctx, session.UserID, resourceID); err != nil {
		return nil, err
	}
	if _, err := s.store.DeleteResource(ctx, resourceID); err != nil {
		return nil, err
	}
	return map[string]any{"ok": true}, nil
}

// ── Sections ──

func (s *Service) AddSection(ctx context.Context, session Session, resourceID, title string) (map[string]any, error) {
	if _, err := s.ownedResource(ctx, session.UserID, resourceID); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}
	added, err := s.store.AddSection(ctx, resourceID, notes.Section{
		ID:    util.NewID("sec_"),
		Title: title,
	})
	if err != nil {
		return nil, err
	}
	sections, err := s.store.ListSections(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"section": added, "sections": sections}, nil
}

func (s *Service) RenameSection(ctx context.Context, session Session, resourceID, sectionID, title string) (map[string]any, error) {
	if _, err := s.ownedResource(ctx, session.UserID, resourceID); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}
	item, err := s.store.RenameSection(ctx, resourceID, sectionID, title)
	if err != nil {
		return nil, err
	}
	return map[string]any{"section": item}, nil
}

// DeleteSection returns every remaining section so clients can take the
// renumbered list wholesale instead of patching their own copy.
func (s *Service) DeleteSection(ctx context.Context, session Session, resourceID, sectionID string) (map[string]any, error) {
	if _, err := s.ownedResource(ctx, session.UserID, resourceID); err != nil {
		return nil, err
	}
	if err := s.store.DeleteSection(ctx, resourceID, sectionID); err != nil {
		return nil, err
	}
	sections, err := s.store.ListSections(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"sections": sections}, nil
}

// ── Markers ──

func (s *Service) sortedSectionMarkers(ctx context.Context, sectionID, resourceType string) ([]notes.Marker, error) {
	markers, err := s.store.ListMarkers(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	return notes.SortMarkers(markers, resourceType), nil
}

func (s *Service) AddMarker(ctx context.Context, session Session, resourceID, sectionID string, input MarkerInput) (map[string]any, error) {
	resource, err := s.ownedResource(ctx, session.UserID, resourceID)
	if err != nil {
		return nil, err
	}
	marker, err := buildMarker(session.UserID, input)
	if err != nil {
		return nil, err
	}
	added, err := s.store.AddMarker(ctx, resourceID, sectionID, marker)
	if err != nil {
		return nil, err
	}
	markers, err := s.sortedSectionMarkers(ctx, sectionID, resource.Type)
	if err != nil {
		return nil, err
	}
	return map[string]any{"marker": added, "markers": markers}, nil
}

func (s *Service) UpdateMarker(ctx context.Context, session Session, resourceID, sectionID, markerID string, input UpdateMarkerInput) (map[string]any, error) {
	resource, err := s.ownedResource(ctx, session.UserID, resourceID)
	if err != nil {
		return nil, err
	}
	if input.Position != nil && strings.TrimSpace(*input.Position) == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "marker position cannot be empty", nil)
	}
	if input.Type != nil && !notes.ValidMarkerType(*input.Type) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "marker type must be one of general, concept, question, summary", nil)
	}
	item, err := s.store.UpdateMarker(ctx, resourceID, sectionID, markerID, store.MarkerPatch{
		Position: input.Position,
		Quote:    input.Quote,
		Note:     input.Note,
		Type:     input.Type,
	})
	if err != nil {
		return nil, err
	}
	markers, err := s.sortedSectionMarkers(ctx, sectionID, resource.Type)
	if err != nil {
		return nil, err
	}
	return map[string]any{"marker": item, "markers": markers}, nil
}

// DeleteMarker removes a marker; remaining order values keep their gaps.
func (s *Service) DeleteMarker(ctx context.Context, session Session, resourceID, sectionID, markerID string) (map[string]any, error) {
	resource, err := s.ownedResource(ctx, session.UserID, resourceID)
	if err != nil {
		return nil, err
	}
	deleted, err := s.store.DeleteMarker(ctx, resourceID, sectionID, markerID)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
	markers, err := s.sortedSectionMarkers(ctx, sectionID, resource.Type)
	if err != nil {
		return nil, err
	}
	return map[string]any{"markers": markers}, nil
}

// ── Comments ──

// resolveMarker checks the full (resource, section, marker) path under
// the requester's read access before any comment operation.
func (s *Service) resolveMarker(ctx context.Context, requesterID, resourceID, sectionID, markerID string) (notes.Resource, notes.Marker, error) {
	resource, err := s.readableResource(ctx, requesterID, resourceID)
	if err != nil {
		return notes.Resource{}, notes.Marker{}, err
	}
	marker, err := s.store.GetMarker(ctx, resourceID, sectionID, markerID)
	if err != nil {
		return notes.Resource{}, notes.Marker{}, err
	}
	return resource, marker, nil
}

func (s *Service) ListComments(ctx context.Context, requesterID, resourceID, sectionID, markerID string) (map[string]any, error) {
	if _, _, err := s.resolveMarker(ctx, requesterID, resourceID, sectionID, markerID); err != nil {
		return nil, err
	}
	items, err := s.store.ListComments(ctx, markerID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"comments": items}, nil
}

// AddComment is open to any signed-in user who can read the resource,
// not just the owner.
func (s *Service) AddComment(ctx context.Context, session Session, resourceID, sectionID, markerID, content string) (map[string]any, error) {
	if _, _, err := s.resolveMarker(ctx, session.UserID, resourceID, sectionID, markerID); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "content is required", nil)
	}
	item, err := s.store.InsertComment(ctx, notes.Comment{
		ID:       util.NewID("cm_"),
		MarkerID: markerID,
		AuthorID: session.UserID,
		Content:  content,
	})
	if err != nil {
		return nil, err
	}
	item.AuthorName = session.UserName
	return map[string]any{"comment": item}, nil
}

// DeleteComment allows the comment author and the resource owner.
func (s *Service) DeleteComment(ctx context.Context, session Session, resourceID, sectionID, markerID, commentID string) (map[string]any, error) {
	resource, _, err := s.resolveMarker(ctx, session.UserID, resourceID, sectionID, markerID)
	if err != nil {
		return nil, err
	}
	comment, err := s.store.GetComment(ctx, markerID, commentID)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != session.UserID && resource.OwnerID != session.UserID {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if _, err := s.store.DeleteComment(ctx, markerID, commentID); err != nil {
		return nil, err
	}
	return map[string]any{"ok": true}, nil
}
