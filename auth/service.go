package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials signals wrong email or password.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrMissingCredentials signals an empty email or password on login.
	ErrMissingCredentials = errors.New("auth: email and password are required")
	// ErrGoogleOnlyAccount signals a password login against an account without a password.
	ErrGoogleOnlyAccount = errors.New("auth: please login with google")
	// ErrWeakPassword signals password doesn't meet requirements.
	ErrWeakPassword = errors.New("auth: password must be at least 8 characters")
	// ErrInvalidRole signals a role outside the self-service set.
	ErrInvalidRole = errors.New("auth: invalid role")
	// ErrInvalidInput signals missing registration fields.
	ErrInvalidInput = errors.New("auth: name, email and password are required")
	// ErrGoogleVerification signals the Google access token could not be verified.
	ErrGoogleVerification = errors.New("auth: google token verification failed")
	// ErrNotAllowed signals a Google account that is not on the allow-list.
	ErrNotAllowed = errors.New("auth: account not allowed")
	// ErrGoogleDisabled signals Google login is not configured.
	ErrGoogleDisabled = errors.New("auth: google login disabled")
)

const defaultTokenTTL = 7 * 24 * time.Hour

// Service handles authentication business logic.
type Service struct {
	repo       Repository
	jwtSecret  []byte
	tokenTTL   time.Duration
	bcryptCost int
	google     GoogleVerifier
	allowList  AllowList
	now        func() time.Time
}

// Session bundles the token and domain user returned after a successful
// register or login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      User
}

// NewService creates a new authentication service.
func NewService(repo Repository, jwtSecret string) *Service {
	return &Service{
		repo:       repo,
		jwtSecret:  []byte(jwtSecret),
		tokenTTL:   defaultTokenTTL,
		bcryptCost: bcrypt.DefaultCost,
		allowList:  NewStaticAllowList(nil),
		now:        time.Now,
	}
}

func (s *Service) WithTokenTTL(ttl time.Duration) *Service {
	if ttl > 0 {
		s.tokenTTL = ttl
	}
	return s
}

func (s *Service) WithBcryptCost(cost int) *Service {
	if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
		s.bcryptCost = cost
	}
	return s
}

// WithGoogle enables Google login. Accounts are accepted only when the
// allow-list admits their email.
func (s *Service) WithGoogle(verifier GoogleVerifier, allowList AllowList) *Service {
	s.google = verifier
	if allowList != nil {
		s.allowList = allowList
	}
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// TokenTTL is the lifetime applied to issued session tokens.
func (s *Service) TokenTTL() time.Duration {
	return s.tokenTTL
}

// Register creates a new user account and opens a session for it.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (Session, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return Session{}, ErrInvalidInput
	}
	if len(req.Password) < 8 {
		return Session{}, ErrWeakPassword
	}

	role, err := selfServiceRole(req.Role)
	if err != nil {
		return Session{}, err
	}

	if _, err := s.repo.GetUserByEmail(ctx, req.Email); err == nil {
		return Session{}, ErrUserExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return Session{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return Session{}, fmt.Errorf("auth: hash password: %w", err)
	}
	passwordHash := string(hash)

	user, err := s.repo.CreateUser(ctx, CreateUserParams{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: &passwordHash,
		Role:         role,
	})
	if err != nil {
		return Session{}, err
	}

	return s.openSession(user)
}

// Login authenticates a user with email and password.
func (s *Service) Login(ctx context.Context, req LoginRequest) (Session, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return Session{}, ErrMissingCredentials
	}

	user, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}

	if user.GoogleOnly() {
		return Session{}, ErrGoogleOnlyAccount
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	return s.openSession(user)
}

// GoogleLogin verifies a Google access token, checks the allow-list and
// signs the account in, creating it on first use.
func (s *Service) GoogleLogin(ctx context.Context, req GoogleLoginRequest) (Session, error) {
	if s.google == nil {
		return Session{}, ErrGoogleDisabled
	}
	if strings.TrimSpace(req.AccessToken) == "" {
		return Session{}, fmt.Errorf("%w: missing access token", ErrGoogleVerification)
	}

	identity, err := s.google.Verify(ctx, req.AccessToken)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrGoogleVerification, err)
	}
	if identity.Email == "" || !identity.EmailVerified {
		return Session{}, fmt.Errorf("%w: email not verified", ErrGoogleVerification)
	}

	allowed, err := s.allowList.Allowed(ctx, identity.Email)
	if err != nil {
		return Session{}, fmt.Errorf("auth: check allow-list: %w", err)
	}
	if !allowed {
		return Session{}, ErrNotAllowed
	}

	user, err := s.repo.GetUserByEmail(ctx, identity.Email)
	switch {
	case errors.Is(err, ErrUserNotFound):
		role, roleErr := selfServiceRole(req.Role)
		if roleErr != nil {
			return Session{}, roleErr
		}
		name := identity.Name
		if name == "" {
			name = identity.Email
		}
		googleID := identity.Subject
		user, err = s.repo.CreateUser(ctx, CreateUserParams{
			Name:     name,
			Email:    identity.Email,
			GoogleID: &googleID,
			Role:     role,
		})
		if err != nil {
			return Session{}, err
		}
	case err != nil:
		return Session{}, err
	case user.GoogleID == nil && identity.Subject != "":
		user, err = s.repo.LinkGoogleID(ctx, user.ID, identity.Subject)
		if err != nil {
			return Session{}, err
		}
	}

	return s.openSession(user)
}

// GetUserByID retrieves user information by ID.
func (s *Service) GetUserByID(ctx context.Context, userID string) (*User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// VerifyToken validates a JWT token and returns the user ID.
func (s *Service) VerifyToken(tokenString string) (string, Role, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		return "", "", fmt.Errorf("auth: parse token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		userID, ok := claims["user_id"].(string)
		if !ok {
			return "", "", fmt.Errorf("auth: invalid user_id in token")
		}
		roleStr, ok := claims["role"].(string)
		if !ok {
			return "", "", fmt.Errorf("auth: invalid role in token")
		}
		role := Role(roleStr)
		if !isValidRole(role) {
			return "", "", fmt.Errorf("auth: invalid role %q in token", roleStr)
		}
		return userID, role, nil
	}

	return "", "", fmt.Errorf("auth: invalid token")
}

func (s *Service) openSession(user User) (Session, error) {
	expiresAt := s.now().Add(s.tokenTTL)
	token, err := s.generateToken(user.ID, user.Role, expiresAt)
	if err != nil {
		return Session{}, fmt.Errorf("auth: generate token: %w", err)
	}
	return Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// generateToken creates a JWT token for the user.
func (s *Service) generateToken(userID string, role Role, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     expiresAt.Unix(),
		"iat":     s.now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func selfServiceRole(role Role) (Role, error) {
	role = Role(strings.ToLower(strings.TrimSpace(string(role))))
	switch role {
	case "":
		return RoleCreator, nil
	case RoleBrand, RoleCreator:
		return role, nil
	default:
		return "", fmt.Errorf("%w %q", ErrInvalidRole, role)
	}
}

func isValidRole(role Role) bool {
	switch role {
	case RoleBrand, RoleCreator, RoleAdmin:
		return true
	default:
		return false
	}
}
