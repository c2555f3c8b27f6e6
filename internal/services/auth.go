package services

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/quickcommerce/internal/api"
	"github.com/example/quickcommerce/internal/apperr"
	"github.com/example/quickcommerce/internal/models"
)

// Session is the part of the token store the auth service writes.
type Session interface {
	RefreshToken() (string, bool)
	SetTokens(ctx context.Context, access, refresh string, user *models.User) error
	SetUser(ctx context.Context, user models.User) error
	Clear(ctx context.Context) error
}

// AuthService logs the shopper in and out.
type AuthService struct {
	backend Backend
	session Session
	logger  *slog.Logger
}

// NewAuthService constructs AuthService.
func NewAuthService(backend Backend, session Session, logger *slog.Logger) *AuthService {
	return &AuthService{backend: backend, session: session, logger: logger}
}

// Login authenticates with email and password and stores the session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, error) {
	if email == "" || password == "" {
		return nil, apperr.Validation("Email and password are required.", nil)
	}
	return s.authenticate(ctx, "/auth/login", models.LoginRequest{Email: email, Password: password})
}

// Register creates an account and stores the resulting session.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	details := map[string]string{}
	if req.Name == "" {
		details["name"] = "required"
	}
	if req.Email == "" {
		details["email"] = "required"
	}
	if req.Password == "" {
		details["password"] = "required"
	}
	if len(details) > 0 {
		return nil, apperr.Validation("Please fill in all required fields.", details)
	}
	return s.authenticate(ctx, "/auth/register", req)
}

func (s *AuthService) authenticate(ctx context.Context, path string, body any) (*models.User, error) {
	var resp models.AuthResponse
	err := s.backend.DoJSON(ctx, api.Request{Method: http.MethodPost, Path: path, Body: body, Anonymous: true}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" || resp.User == nil {
		s.logger.WarnContext(ctx, "[auth] response missing tokens or user data", "path", path)
		return nil, apperr.New(apperr.KindAuth, "Login response missing tokens or user data.")
	}
	if err := s.session.SetTokens(ctx, resp.AccessToken, resp.RefreshToken, resp.User); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "Could not save your session.")
	}
	return resp.User, nil
}

// Logout revokes the refresh token on a best-effort basis and always clears
// the local session.
func (s *AuthService) Logout(ctx context.Context) error {
	if refresh, ok := s.session.RefreshToken(); ok {
		err := s.backend.DoJSON(ctx, api.Request{
			Method: http.MethodPost,
			Path:   "/auth/logout",
			Body:   map[string]string{"refreshToken": refresh},
		}, nil)
		if err != nil {
			s.logger.WarnContext(ctx, "[auth] backend logout failed, token might be invalid already", "error", err)
		}
	}
	return s.session.Clear(ctx)
}

// FetchProfile reloads the profile and caches it in the session.
func (s *AuthService) FetchProfile(ctx context.Context) (*models.User, error) {
	var resp struct {
		User *models.User `json:"user"`
	}
	if err := s.backend.DoJSON(ctx, api.Request{Method: http.MethodGet, Path: "/user/profile"}, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, apperr.New(apperr.KindBusiness, "Profile not available.")
	}
	if err := s.session.SetUser(ctx, *resp.User); err != nil {
		s.logger.WarnContext(ctx, "[auth] could not cache profile", "error", err)
	}
	return resp.User, nil
}
