package guard

import (
	goAttend "github.com/MrEthical07/goAttend"
	"github.com/MrEthical07/goAttend/role"
)

// Decision is the outcome of evaluating a route requirement.
type Decision uint8

const (
	Render Decision = iota
	RenderLoading
	RedirectLogin
	RedirectDefault
)

func (d Decision) String() string {
	switch d {
	case Render:
		return "render"
	case RenderLoading:
		return "loading"
	case RedirectLogin:
		return "redirect_login"
	case RedirectDefault:
		return "redirect_default"
	default:
		return "unknown"
	}
}

// Evaluate applies required to state. A zero role.Set admits any
// authenticated user.
func Evaluate(state goAttend.State, required role.Set) Decision {
	if !state.Resolved {
		return RenderLoading
	}
	if state.User == nil {
		return RedirectLogin
	}
	if !required.Allows(state.User.Role) {
		return RedirectDefault
	}
	return Render
}
