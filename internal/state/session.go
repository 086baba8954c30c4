package state

import "time"

// Session is everything the storefront keeps for one signed-in browser.
type Session struct {
	ID        string      `json:"id"`
	Auth      AuthState   `json:"auth"`
	Cart      CartState   `json:"cart"`
	Wallet    WalletState `json:"wallet"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// New returns an empty session.
func New(id string, now time.Time) *Session {
	return &Session{ID: id, CreatedAt: now, UpdatedAt: now}
}

// Apply routes a to the matching reducer. Unknown actions are ignored.
func (s *Session) Apply(a any) {
	switch a := a.(type) {
	case AuthAction:
		s.Auth = ReduceAuth(s.Auth, a)
		switch a.(type) {
		case LoggedOut, AuthFailed:
			s.Cart = CartState{}
			s.Wallet = WalletState{}
		}
	case WalletAction:
		s.Wallet = ReduceWallet(s.Wallet, a)
	case CartAction:
		s.Cart = ReduceCart(s.Cart, a)
	}
}

// UserID returns the signed-in user's ID, or "".
func (s *Session) UserID() string {
	if s.Auth.User == nil {
		return ""
	}
	return s.Auth.User.ID
}
