package session

// Rule is an access requirement for a view or command.
type Rule int

const (
	// Public views are open to everyone.
	Public Rule = iota
	// Authenticated views need a signed-in user.
	Authenticated
	// AdminOnly views need a signed-in admin.
	AdminOnly
)

func (r Rule) String() string {
	switch r {
	case Public:
		return "public"
	case Authenticated:
		return "authenticated"
	case AdminOnly:
		return "admin"
	default:
		return "unknown"
	}
}

// Decision is the outcome of a guard check.
type Decision int

const (
	Allow Decision = iota
	// Wait means the session is still rehydrating; check again later.
	Wait
	RedirectLogin
	RedirectHome
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Wait:
		return "wait"
	case RedirectLogin:
		return "redirect-login"
	case RedirectHome:
		return "redirect-home"
	default:
		return "unknown"
	}
}

// Viewer exposes session state to the guard.
type Viewer interface {
	Snapshot() Snapshot
}

// Guard gates views on the session state.
type Guard struct {
	session Viewer
}

// NewGuard returns a Guard reading from session.
func NewGuard(session Viewer) *Guard {
	return &Guard{session: session}
}

// Check decides whether the current session satisfies rule. Anonymous
// users are sent to login; signed-in users without the admin role are sent
// home from admin views.
func (g *Guard) Check(rule Rule) Decision {
	if rule == Public {
		return Allow
	}

	s := g.session.Snapshot()
	switch s.State {
	case StateUninitialized, StateLoading:
		return Wait
	case StateAuthenticated:
	default:
		return RedirectLogin
	}

	if rule == AdminOnly && (s.User == nil || !s.User.IsAdmin()) {
		return RedirectHome
	}
	return Allow
}

// Require is Check returning a *DeniedError for anything but Allow.
func (g *Guard) Require(rule Rule) error {
	if d := g.Check(rule); d != Allow {
		return &DeniedError{Rule: rule, Decision: d}
	}
	return nil
}
