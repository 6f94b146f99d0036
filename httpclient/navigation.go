package httpclient

import (
	"context"
	"sync/atomic"
)

// Navigator is the host's routing boundary. NavigateToLogin sends the user to
// the login screen; AtLogin reports whether they are already there.
type Navigator interface {
	AtLogin() bool
	NavigateToLogin(ctx context.Context)
}

// Notifier receives every terminal failure exactly once, e.g. to show a toast.
type Notifier interface {
	Notify(ctx context.Context, err *ClassifiedError)
}

// NavigatorFuncs adapts two functions to a Navigator.
type NavigatorFuncs struct {
	AtLoginFunc         func() bool
	NavigateToLoginFunc func(ctx context.Context)
}

func (n NavigatorFuncs) AtLogin() bool {
	return n.AtLoginFunc != nil && n.AtLoginFunc()
}

func (n NavigatorFuncs) NavigateToLogin(ctx context.Context) {
	if n.NavigateToLoginFunc != nil {
		n.NavigateToLoginFunc(ctx)
	}
}

// NotifierFunc adapts a function to a Notifier.
type NotifierFunc func(ctx context.Context, err *ClassifiedError)

func (f NotifierFunc) Notify(ctx context.Context, err *ClassifiedError) {
	f(ctx, err)
}

// unauthorizedGuard lets exactly one 401 per session generation through.
// An episode is identified by the session generation the request was sent with.
type unauthorizedGuard struct {
	lastHandled atomic.Int64
}

func newUnauthorizedGuard() *unauthorizedGuard {
	g := &unauthorizedGuard{}
	g.lastHandled.Store(-1)
	return g
}

// claim reports whether the caller is the first to handle episode.
// Episodes older than the last handled one are never claimed.
func (g *unauthorizedGuard) claim(episode uint64) bool {
	ep := int64(episode)
	for {
		last := g.lastHandled.Load()
		if last >= ep {
			return false
		}
		if g.lastHandled.CompareAndSwap(last, ep) {
			return true
		}
	}
}
