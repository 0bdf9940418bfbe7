package model

// Phone numbers are restricted to Russian mobile numbers.
const (
	MinPhone int64 = 79_000_000_000
	MaxPhone int64 = 79_999_999_999
)

// User represents a user in the system
type User struct {
	ID         int64   `json:"id"`
	Username   string  `json:"username"`
	Phone      int64   `json:"phone"`
	Password   string  `json:"-"` // bcrypt hash, never exposed
	IsActive   bool    `json:"is_active"`
	IsStaff    bool    `json:"is_staff"`
	AvatarsDir *string `json:"-"`
}

// CreateUserRequest is the registration payload.
type CreateUserRequest struct {
	Username string  `json:"username" validate:"required,min=3,max=16"`
	Phone    int64   `json:"phone" validate:"required,min=79000000000,max=79999999999"`
	Password string  `json:"password" validate:"required,min=8,max=64,simplepwd"`
	Avatar   *string `json:"avatar" validate:"omitempty,b64len"`
}

// UpdateUserRequest is a partial self-update; nil fields are left untouched.
type UpdateUserRequest struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=16"`
	Phone    *int64  `json:"phone" validate:"omitempty,min=79000000000,max=79999999999"`
	Password *string `json:"password" validate:"omitempty,min=8,max=64,simplepwd"`
	Avatar   *string `json:"avatar" validate:"omitempty,b64len"`
}

// Empty reports whether the request carries no field at all.
func (r UpdateUserRequest) Empty() bool {
	return r.Username == nil && r.Phone == nil && r.Password == nil && r.Avatar == nil
}

// LoginForm is the OAuth2 password-flow form; username carries the phone.
type LoginForm struct {
	GrantType string `form:"grant_type" validate:"omitempty,eq=password"`
	Username  int64  `form:"username" validate:"required,min=79000000000,max=79999999999"`
	Password  string `form:"password" validate:"required,min=8,max=64"`
}

// ResponseUser is the public view of a user.
type ResponseUser struct {
	Username string `json:"username"`
	Phone    int64  `json:"phone"`
	IsActive bool   `json:"is_active"`
	Avatar   string `json:"avatar,omitempty"` // base64 of the smallest derivative
}

// NewResponseUser builds the public view; avatar may be empty.
func NewResponseUser(u *User, avatar string) *ResponseUser {
	return &ResponseUser{
		Username: u.Username,
		Phone:    u.Phone,
		IsActive: u.IsActive,
		Avatar:   avatar,
	}
}

// TokenResponse is returned by the token endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
