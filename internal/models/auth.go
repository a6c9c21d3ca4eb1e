package models

// LoginCredentials is the request body for user login
type LoginCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse represents an issued token set. RefreshToken and ExpiresIn
// are optional; a missing ExpiresIn means the token lifetime is unknown and
// the session treats it as already expiring.
type LoginResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int64  `json:"expiresIn,omitempty"` // seconds
}

// RegisterCredentials is the request body for user registration
type RegisterCredentials struct {
	Name     string `json:"name"`
	Surname  string `json:"surname,omitempty"`
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Role     string `json:"role,omitempty"` // "USER", "ADMIN", etc.
}

// RegisterResponse is the registration result: an issued token set plus the
// identity fields echoed back by the server.
type RegisterResponse struct {
	Username     string `json:"username"`
	Role         string `json:"role"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int64  `json:"expiresIn,omitempty"`
	Name         string `json:"name"`
	Surname      string `json:"surname,omitempty"`
	Email        string `json:"email"`
}

// Tokens extracts the token set from a registration response
func (r *RegisterResponse) Tokens() *LoginResponse {
	return &LoginResponse{
		Token:        r.Token,
		RefreshToken: r.RefreshToken,
		ExpiresIn:    r.ExpiresIn,
	}
}

// NewProvisionalUser builds a profile from the fields present in a
// registration response. Gender, height and weight stay at their zero
// values until a real profile fetch replaces this record.
func NewProvisionalUser(r *RegisterResponse) *User {
	return &User{
		Name:    r.Name,
		Surname: r.Surname,
		Email:   r.Email,
	}
}
