package state

import "github.com/utafrali/agromarket-storefront/internal/domain"

// AuthState is the signed-in user of a session. Token is the backend bearer
// token and never leaves the storefront.
type AuthState struct {
	User            *domain.User `json:"user,omitempty"`
	Token           string       `json:"token,omitempty"`
	IsAuthenticated bool         `json:"is_authenticated"`
	Loading         bool         `json:"loading"`
	Error           string       `json:"error,omitempty"`
}

// AuthAction is an event reduced by ReduceAuth.
type AuthAction interface {
	authAction()
}

type (
	// AuthRequested marks the start of a login or profile refresh.
	AuthRequested struct{}
	// LoginSucceeded carries the user and backend token returned at login.
	LoginSucceeded struct {
		User  domain.User
		Token string
	}
	// UserLoaded replaces the cached profile.
	UserLoaded struct{ User domain.User }
	// AuthFailed records a failed login or refresh and signs the user out.
	AuthFailed struct{ Message string }
	// LoggedOut resets the state.
	LoggedOut struct{}
)

func (AuthRequested) authAction()  {}
func (LoginSucceeded) authAction() {}
func (UserLoaded) authAction()     {}
func (AuthFailed) authAction()     {}
func (LoggedOut) authAction()      {}

// ReduceAuth returns the state that follows s after a.
func ReduceAuth(s AuthState, a AuthAction) AuthState {
	switch a := a.(type) {
	case AuthRequested:
		s.Loading = true
		s.Error = ""
	case LoginSucceeded:
		u := a.User
		return AuthState{User: &u, Token: a.Token, IsAuthenticated: true}
	case UserLoaded:
		u := a.User
		s.User = &u
		s.IsAuthenticated = s.Token != ""
		s.Loading = false
		s.Error = ""
	case AuthFailed:
		return AuthState{Error: a.Message}
	case LoggedOut:
		return AuthState{}
	}
	return s
}
