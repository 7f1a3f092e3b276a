package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	pkgzauth "github.com/go-pkgz/auth/v2"
	"github.com/go-pkgz/auth/v2/avatar"
	"github.com/go-pkgz/auth/v2/middleware"
	"github.com/go-pkgz/auth/v2/provider"
	"github.com/go-pkgz/auth/v2/token"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"cinelist/internal/database"
	"cinelist/models"
)

var (
	// ErrAccountExists is returned by Register for an already-used email.
	ErrAccountExists = errors.New("an account with this email already exists")
	// ErrInvalidAccount is returned by Register for unusable credentials.
	ErrInvalidAccount = errors.New("email and a password of at least 8 characters are required")
)

// Options configures the session layer.
type Options struct {
	Secret         string
	BaseURL        string
	TokenDuration  time.Duration
	CookieDuration time.Duration
	AvatarDir      string
}

// Service owns credential accounts and session resolution. Token issuing,
// cookies and the login/logout endpoints are delegated to go-pkgz/auth; this
// service supplies the credential check over the users table and translates
// request sessions into a models.Caller for the rest of the application.
type Service struct {
	users   *database.UserRepository
	authSvc *pkgzauth.Service
}

// NewService wires the session layer over the given user repository.
func NewService(users *database.UserRepository, opts Options) (*Service, error) {
	if opts.Secret == "" {
		return nil, errors.New("auth secret is required")
	}

	s := &Service{users: users}

	authSvc := pkgzauth.NewService(pkgzauth.Opts{
		SecretReader: token.SecretFunc(func(string) (string, error) {
			return opts.Secret, nil
		}),
		TokenDuration:  opts.TokenDuration,
		CookieDuration: opts.CookieDuration,
		Issuer:         "cinelist",
		URL:            opts.BaseURL,
		AvatarStore:    avatar.NewLocalFS(opts.AvatarDir),
		Validator: token.ValidatorFunc(func(_ string, claims token.Claims) bool {
			return claims.User != nil
		}),
	})

	authSvc.AddDirectProviderWithUserIDFunc("local",
		provider.CredCheckerFunc(s.checkCredentials), s.userID)

	s.authSvc = authSvc
	return s, nil
}

// Handlers returns the login/logout and avatar routes to mount.
func (s *Service) Handlers() (http.Handler, http.Handler) {
	return s.authSvc.Handlers()
}

// Middleware returns the go-pkgz authenticator; Trace populates the session
// when present without rejecting anonymous requests.
func (s *Service) Middleware() middleware.Authenticator {
	return s.authSvc.Middleware()
}

// Caller resolves the request's session into a caller identity. A missing
// or invalid session yields the zero Caller, never an error: absence of
// identity is an expected state, and each operation decides what it means.
func (s *Service) Caller(r *http.Request) models.Caller {
	user, err := token.GetUserInfo(r)
	if err != nil || user.ID == "" {
		return models.Caller{}
	}
	return models.Caller{UserID: user.ID, Name: user.Name}
}

// Register creates a new credential account.
func (s *Service) Register(ctx context.Context, email, pass string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") || len(pass) < 8 {
		return nil, ErrInvalidAccount
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check existing account: %w", err)
	}
	if existing != nil {
		return nil, ErrAccountExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	return user, nil
}

// checkCredentials backs the direct provider's login form.
func (s *Service) checkCredentials(email, pass string) (bool, error) {
	user, err := s.users.FindByEmail(context.Background(), strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		log.Printf("[auth] credential lookup failed: %v", err)
		return false, err
	}
	if user == nil {
		return false, nil
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(pass)) == nil, nil
}

// userID maps the login email to the stable account id so watchlist rows
// survive email changes to the token's display name.
func (s *Service) userID(email string, _ *http.Request) string {
	user, err := s.users.FindByEmail(context.Background(), strings.ToLower(strings.TrimSpace(email)))
	if err != nil || user == nil {
		return email
	}
	return user.ID
}
