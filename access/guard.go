package access

import "github.com/jrsteele09/medix-console/users"

// Decision is the outcome of evaluating a protected route
type Decision int

const (
	DecisionAllow   Decision = iota
	DecisionWait             // session check still running, show the waiting indicator
	DecisionLogin            // not authenticated, go to the login page
	DecisionLanding          // authenticated but the role is not allowed, go to the dashboard
)

const (
	LoginPath   = "/login"
	LandingPath = "/dashboard"
)

func (d Decision) String() string {
	switch d {
	case DecisionAllow:
		return "allow"
	case DecisionWait:
		return "wait"
	case DecisionLogin:
		return "login"
	case DecisionLanding:
		return "landing"
	default:
		return "unknown"
	}
}

// Redirect returns the path to navigate to, empty for allow and wait
func (d Decision) Redirect() string {
	switch d {
	case DecisionLogin:
		return LoginPath
	case DecisionLanding:
		return LandingPath
	default:
		return ""
	}
}

// Snapshot is the part of a console session the guard looks at
type Snapshot struct {
	Loading       bool
	Authenticated bool
	Role          users.Role
}

// Evaluate decides access to a route. A nil allowed list admits every authenticated user;
// an empty non-nil list admits nobody. Loading always waits, it never redirects.
func Evaluate(s Snapshot, allowed []users.Role) Decision {
	if s.Loading {
		return DecisionWait
	}
	if !s.Authenticated {
		return DecisionLogin
	}
	if allowed != nil && !s.Role.In(allowed) {
		return DecisionLanding
	}
	return DecisionAllow
}
