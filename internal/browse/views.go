// Package browse drives one visitor's public browsing session: listing,
// detail, admin sign-in, addition requests and education pages.
package browse

import "errors"

// View is a screen of the browsing flow
type View string

const (
	ViewList      View = "list"
	ViewDetail    View = "detail"
	ViewLogin     View = "login"
	ViewAdmin     View = "admin"
	ViewRequest   View = "request"
	ViewEducation View = "education"
)

var (
	ErrInvalidTransition = errors.New("invalid view transition")
	ErrFetchInFlight     = errors.New("a fetch is already in flight")
	ErrNoMorePages       = errors.New("no more pages")
)

// User-facing messages
const (
	MsgFetchFailed      = "Failed to fetch archaeological data. Please try again later."
	MsgLoadMoreFailed   = "Failed to load more data."
	MsgRelatedFailed    = "Could not load related items."
	MsgLockedOut        = "Too many failed login attempts. Please try again later."
	MsgBadCredentials   = "Incorrect email or password. Please try again."
	MsgRequestFailed    = "There was an error submitting your request. Please try again."
	MsgSignOutFailed    = "Could not sign out. Please try again."
	TitleMuseumContents = "Artifacts in this Museum"
	TitleDisplayedIn    = "Displayed in Museum(s)"
)

// transitions lists the views reachable from each view
var transitions = map[View][]View{
	ViewList:      {ViewList, ViewDetail, ViewLogin, ViewRequest, ViewEducation},
	ViewDetail:    {ViewDetail, ViewList},
	ViewLogin:     {ViewAdmin, ViewList},
	ViewAdmin:     {ViewList},
	ViewRequest:   {ViewList},
	ViewEducation: {ViewList},
}

// CanTransition reports whether from → to is an edge of the flow
func CanTransition(from, to View) bool {
	for _, v := range transitions[from] {
		if v == to {
			return true
		}
	}
	return false
}
