package models

// User is the profile returned by the auth and profile endpoints.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Credentials is the session material owned by the token store.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	User         *User
}

// Empty reports whether no session is held.
func (c Credentials) Empty() bool {
	return c.AccessToken == "" && c.RefreshToken == "" && c.User == nil
}

// StoredCredential is one persisted credential field in the postgres store.
type StoredCredential struct {
	BaseModel
	Namespace string `gorm:"size:64;not null;uniqueIndex:idx_credential_namespace_key" json:"namespace"`
	Key       string `gorm:"size:32;not null;uniqueIndex:idx_credential_namespace_key" json:"key"`
	Value     string `gorm:"type:text;not null" json:"-"`
}

// AuthResponse is the body of login and register responses.
type AuthResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message,omitempty"`
	User         *User  `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// LoginRequest carries email/password credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest carries the fields of a new account.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}
