package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"taskpulse/internal/calendar"
	"taskpulse/internal/model"
	"taskpulse/internal/repository"
)

const (
	minPasswordLen = 6
	resetTokenTTL  = 10 * time.Minute
	defaultJWTTTL  = 7 * 24 * time.Hour
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Credentials is the signup and login payload.
type Credentials struct {
	Email    string
	Password string
}

// AuthService issues and verifies bearer tokens and manages passwords.
type AuthService struct {
	users  *repository.UserRepository
	secret []byte
	ttl    time.Duration
	clock  calendar.Clock
}

func NewAuthService(users *repository.UserRepository, secret string, ttl time.Duration, clock calendar.Clock) *AuthService {
	if ttl <= 0 {
		ttl = defaultJWTTTL
	}
	if clock == nil {
		clock = calendar.SystemClock{}
	}
	return &AuthService{users: users, secret: []byte(secret), ttl: ttl, clock: clock}
}

// Signup creates a user and returns it with a fresh token.
func (s *AuthService) Signup(ctx context.Context, in Credentials) (*model.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !emailPattern.MatchString(email) {
		return nil, "", invalid("email", "a valid email is required")
	}
	if len(in.Password) < minPasswordLen {
		return nil, "", invalid("password", fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{Email: email, PasswordHash: string(hash)}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, "", fmt.Errorf("email already registered: %w", ErrConflict)
		}
		return nil, "", err
	}

	token, err := s.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login checks the password and returns a fresh token. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, in Credentials) (*model.User, string, error) {
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, "", invalid("", "email and password are required")
	}
	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrUnauthorized
		}
		return nil, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)) != nil {
		return nil, "", ErrUnauthorized
	}

	token, err := s.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Issue signs an HS256 token carrying the user id.
func (s *AuthService) Issue(userID string) (string, error) {
	now := s.clock.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"iat":     now.Unix(),
		"exp":     now.Add(s.ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Authenticate verifies a bearer token and loads its user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrUnauthorized
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrUnauthorized
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return nil, ErrUnauthorized
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidID) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return user, nil
}

// ForgotPassword stores the hash of a new reset token and returns the
// plain token. It is valid for ten minutes.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", fmt.Errorf("no user with that email: %w", ErrNotFound)
		}
		return "", err
	}

	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	token := hex.EncodeToString(buf)

	if err := s.users.SetResetToken(ctx, user, hashToken(token), s.clock.Now().Add(resetTokenTTL)); err != nil {
		return "", err
	}
	return token, nil
}

// ResetPassword sets a new password for the holder of an unexpired token.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) (*model.User, string, error) {
	if len(password) < minPasswordLen {
		return nil, "", invalid("password", fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	user, err := s.users.FindByResetToken(ctx, hashToken(token), s.clock.Now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", invalid("token", "invalid or expired token")
		}
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user, string(hash)); err != nil {
		return nil, "", err
	}

	signed, err := s.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, signed, nil
}

// UpdatePreferences replaces the user's preferences.
func (s *AuthService) UpdatePreferences(ctx context.Context, user *model.User, prefs model.Preferences) error {
	return s.users.UpdatePreferences(ctx, user, prefs)
}

// PurgeResetTokens clears expired reset tokens.
func (s *AuthService) PurgeResetTokens(ctx context.Context) (int64, error) {
	return s.users.ClearExpiredResetTokens(ctx, s.clock.Now())
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
