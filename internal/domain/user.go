package domain

// User is the account record returned by the backend on login.
type User struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// Complete reports whether the user carries the fields a session requires.
// A session is either absent or holds a complete user.
func (u User) Complete() bool {
	return u.Name != "" && u.Email != ""
}

// Credentials is the login form.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Registration is the sign-up form.
type Registration struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=100"`
}

// AuthResponse is the body of /auth/login and /auth/register.
type AuthResponse struct {
	Message string `json:"message"`
	User    *User  `json:"user,omitempty"`
}
