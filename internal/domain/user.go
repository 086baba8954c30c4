package domain

// Roles a marketplace user may hold.
const (
	RoleBuyer  = "buyer"
	RoleFarmer = "farmer"
	RoleAdmin  = "admin"
)

// User is the marketplace profile of the signed-in user.
type User struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	Phone         string `json:"phone,omitempty"`
	FarmName      string `json:"farm_name,omitempty"`
	EmailVerified bool   `json:"email_verified"`
}

// IsFarmer reports whether u may manage products and withdraw funds.
func (u User) IsFarmer() bool {
	return u.Role == RoleFarmer
}

// Credentials is the login body.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Registration is the sign-up body.
type Registration struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Role     string `json:"role" validate:"required,oneof=buyer farmer"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,phone"`
	FarmName string `json:"farm_name,omitempty" validate:"max=120"`
}

// ForgotPassword starts a password reset.
type ForgotPassword struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPassword completes a password reset.
type ResetPassword struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}
