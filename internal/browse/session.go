package browse

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"stealthcompany.com/archaeoseeker/internal/auth"
	"stealthcompany.com/archaeoseeker/internal/catalog"
)

// Catalog is the part of the catalog the public flow reads and writes
type Catalog interface {
	GetItems(ctx context.Context, filters catalog.FilterCriteria, pageSize int, cursor string) (catalog.Page, error)
	GetArtifactsInMuseum(ctx context.Context, museumID string) ([]catalog.Item, error)
	GetItemsByIds(ctx context.Context, ids []string) ([]catalog.Item, error)
	AddRequest(ctx context.Context, req catalog.AdditionRequest) (string, error)
}

// Authenticator signs the session in and out and reports the current user
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) error
	SignOut(ctx context.Context) error
	Subscribe(fn func(*auth.User)) (unsubscribe func())
}

// Limiter caps failed admin sign-ins
type Limiter interface {
	ReserveAttempt(ctx context.Context) (remaining int, allowed bool)
	ResetLoginAttempts(ctx context.Context) error
}

// Related holds the items shown under a detail view
type Related struct {
	Title string         `json:"title,omitempty"`
	Items []catalog.Item `json:"items"`
}

// State is a snapshot of a session
type State struct {
	View     View                   `json:"view"`
	Filters  catalog.FilterCriteria `json:"filters"`
	Items    []catalog.Item         `json:"items"`
	HasMore  bool                   `json:"hasMore"`
	Fetching bool                   `json:"fetching"`
	Selected *catalog.Item          `json:"selected,omitempty"`
	Related  Related                `json:"related"`
	Message  string                 `json:"message,omitempty"`
	User     *auth.User             `json:"user,omitempty"`
}

// Session is one visitor's browsing flow
type Session struct {
	catalog  Catalog
	auth     Authenticator
	limiter  Limiter
	pageSize int

	mu       sync.Mutex
	view     View
	filters  catalog.FilterCriteria
	items    []catalog.Item
	cursor   string
	hasMore  bool
	fetching bool
	selected *catalog.Item
	related  Related
	message  string
	user     *auth.User

	unsubscribe func()
}

// NewSession starts a session on the list view and subscribes to auth state.
// Close releases the subscription.
func NewSession(cat Catalog, authenticator Authenticator, limiter Limiter, pageSize int) *Session {
	if pageSize <= 0 {
		pageSize = catalog.DefaultPageSize
	}
	s := &Session{
		catalog:  cat,
		auth:     authenticator,
		limiter:  limiter,
		pageSize: pageSize,
		view:     ViewList,
		hasMore:  true,
	}
	s.unsubscribe = authenticator.Subscribe(s.onAuthChange)
	return s
}

// Close releases the auth subscription
func (s *Session) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func (s *Session) onAuthChange(user *auth.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.user = user
	if user == nil && s.view == ViewAdmin {
		log.Info().Msg("Authentication lost while in admin view, returning to list")
		s.view = ViewList
	}
}

// State returns a snapshot of the session
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		View:     s.view,
		Filters:  s.filters,
		Items:    append([]catalog.Item(nil), s.items...),
		HasMore:  s.hasMore,
		Fetching: s.fetching,
		Related:  Related{Title: s.related.Title, Items: append([]catalog.Item(nil), s.related.Items...)},
		Message:  s.message,
	}
	if s.selected != nil {
		item := *s.selected
		st.Selected = &item
	}
	if s.user != nil {
		user := *s.user
		st.User = &user
	}
	return st
}

// View returns the current view
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// transitionLocked moves to the target view if the flow allows it.
// Entering detail needs a selection and entering admin needs a user.
func (s *Session) transitionLocked(to View) error {
	if !CanTransition(s.view, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.view, to)
	}
	switch to {
	case ViewDetail:
		if s.selected == nil {
			return fmt.Errorf("%w: no item selected", ErrInvalidTransition)
		}
	case ViewAdmin:
		if s.user == nil {
			return fmt.Errorf("%w: not signed in", ErrInvalidTransition)
		}
	case ViewList:
		s.selected = nil
		s.related = Related{}
	}
	s.view = to
	return nil
}

// Search resets pagination and fetches the first page for the filters
func (s *Session) Search(ctx context.Context, filters catalog.FilterCriteria) error {
	s.mu.Lock()
	if s.view != ViewList {
		from := s.view
		s.mu.Unlock()
		return fmt.Errorf("%w: search from %s", ErrInvalidTransition, from)
	}
	s.mu.Unlock()
	return s.refresh(ctx, filters)
}

// refresh replaces the listing with the first page for filters
func (s *Session) refresh(ctx context.Context, filters catalog.FilterCriteria) error {
	s.mu.Lock()
	if s.fetching {
		s.mu.Unlock()
		return ErrFetchInFlight
	}
	s.filters = filters
	s.cursor = ""
	s.hasMore = true
	s.fetching = true
	s.message = ""
	s.mu.Unlock()

	page, err := s.catalog.GetItems(ctx, filters, s.pageSize, "")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetching = false
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch items")
		s.items = nil
		s.hasMore = false
		s.message = MsgFetchFailed
		return catalog.NewUserError(MsgFetchFailed, err)
	}
	s.items = page.Items
	s.cursor = page.NextCursor
	s.hasMore = page.HasMore(s.pageSize)
	return nil
}

// LoadMore appends the next page of the current listing
func (s *Session) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	if s.view != ViewList {
		from := s.view
		s.mu.Unlock()
		return fmt.Errorf("%w: load more from %s", ErrInvalidTransition, from)
	}
	if s.fetching {
		s.mu.Unlock()
		return ErrFetchInFlight
	}
	if !s.hasMore || s.cursor == "" {
		s.mu.Unlock()
		return ErrNoMorePages
	}
	filters, cursor := s.filters, s.cursor
	s.fetching = true
	s.message = ""
	s.mu.Unlock()

	page, err := s.catalog.GetItems(ctx, filters, s.pageSize, cursor)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetching = false
	if err != nil {
		log.Error().Err(err).Str("cursor", cursor).Msg("Failed to load more items")
		s.message = MsgLoadMoreFailed
		return catalog.NewUserError(MsgLoadMoreFailed, err)
	}
	s.items = append(s.items, page.Items...)
	s.cursor = page.NextCursor
	s.hasMore = page.HasMore(s.pageSize)
	return nil
}

// Select opens the detail view for item and loads its related items.
// A failed related lookup leaves the detail view usable with a message.
func (s *Session) Select(ctx context.Context, item catalog.Item) error {
	s.mu.Lock()
	prevSelected := s.selected
	s.selected = &item
	if err := s.transitionLocked(ViewDetail); err != nil {
		s.selected = prevSelected
		s.mu.Unlock()
		return err
	}
	s.related = Related{}
	s.message = ""
	s.mu.Unlock()

	related, err := RelatedItems(ctx, s.catalog, item)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil || s.selected.ID != item.ID {
		return nil
	}
	if err != nil {
		log.Error().Err(err).Str("item_id", item.ID).Msg("Failed to load related items")
		s.message = MsgRelatedFailed
		return nil
	}
	s.related = related
	return nil
}

// Back returns to the list from detail, login, request or education
func (s *Session) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.view == ViewList {
		return nil
	}
	if s.view == ViewAdmin {
		return fmt.Errorf("%w: leave admin by signing out", ErrInvalidTransition)
	}
	s.message = ""
	return s.transitionLocked(ViewList)
}

// OpenLogin shows the admin sign-in form
func (s *Session) OpenLogin() error {
	return s.open(ViewLogin)
}

// OpenRequestForm shows the addition request form
func (s *Session) OpenRequestForm() error {
	return s.open(ViewRequest)
}

// OpenEducation shows the education page
func (s *Session) OpenEducation() error {
	return s.open(ViewEducation)
}

func (s *Session) open(to View) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transitionLocked(to); err != nil {
		return err
	}
	s.message = ""
	return nil
}

// Login signs the administrator in and enters the admin view
func (s *Session) Login(ctx context.Context, email, password string) error {
	s.mu.Lock()
	if s.view != ViewLogin {
		from := s.view
		s.mu.Unlock()
		return fmt.Errorf("%w: login from %s", ErrInvalidTransition, from)
	}
	s.message = ""
	s.mu.Unlock()

	err := AttemptLogin(ctx, s.limiter, func(ctx context.Context) error {
		return s.auth.SignIn(ctx, email, password)
	})
	var userErr *catalog.UserError
	if errors.As(err, &userErr) {
		return s.loginFailed(userErr)
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(ViewAdmin)
}

func (s *Session) loginFailed(err *catalog.UserError) error {
	s.mu.Lock()
	s.message = err.Message
	s.mu.Unlock()
	return err
}

// Logout signs out, clears the filters and refetches the listing
func (s *Session) Logout(ctx context.Context) error {
	if err := s.auth.SignOut(ctx); err != nil {
		log.Error().Err(err).Msg("Sign-out failed")
		s.mu.Lock()
		s.message = MsgSignOutFailed
		s.mu.Unlock()
		return catalog.NewUserError(MsgSignOutFailed, err)
	}

	s.mu.Lock()
	if s.view != ViewList {
		if err := s.transitionLocked(ViewList); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.mu.Unlock()

	return s.refresh(ctx, catalog.FilterCriteria{})
}

// SubmitRequest stores an addition request and returns to the list
func (s *Session) SubmitRequest(ctx context.Context, req catalog.AdditionRequest) (string, error) {
	s.mu.Lock()
	if s.view != ViewRequest {
		from := s.view
		s.mu.Unlock()
		return "", fmt.Errorf("%w: submit request from %s", ErrInvalidTransition, from)
	}
	s.message = ""
	s.mu.Unlock()

	id, err := s.catalog.AddRequest(ctx, req)
	if err != nil {
		log.Error().Err(err).Msg("Failed to submit addition request")
		s.mu.Lock()
		s.message = MsgRequestFailed
		s.mu.Unlock()
		return "", catalog.NewUserError(MsgRequestFailed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transitionLocked(ViewList); err != nil {
		return id, err
	}
	return id, nil
}
