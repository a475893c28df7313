// Package views decides which screen a browser sees and renders it.
package views

import (
	"peoplepulse/internal/navigation"
	"peoplepulse/internal/session"
)

// Kind is the top-level screen
type Kind int

const (
	KindLoading Kind = iota
	KindLogin
	KindShell
)

func (k Kind) String() string {
	switch k {
	case KindLoading:
		return "loading"
	case KindLogin:
		return "login"
	default:
		return "shell"
	}
}

// View is the routing decision for one render
type View struct {
	Kind Kind
	Page navigation.PageID
}

// Route shows a loading screen while the session is loading, the login
// screen when nobody is logged in, and otherwise the shell with the selected
// page. Unknown page identifiers show the dashboard.
func Route(snap session.Snapshot, page string) View {
	switch {
	case snap.Loading:
		return View{Kind: KindLoading}
	case snap.User == nil:
		return View{Kind: KindLogin}
	}
	return View{Kind: KindShell, Page: navigation.ParsePage(page)}
}
