package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"gestion/internal/apperr"
	"gestion/internal/core"
	"gestion/internal/log"
	"gestion/internal/storage"
)

const tokenIssuer = "gestion"

var errBadCredentials = apperr.Unauthorized("Usuario o contraseña incorrectos")

// Claims represents JWT claims
type Claims struct {
	Username string `json:"username"`
	Rol      string `json:"rol"`
	jwt.RegisteredClaims
}

// Actor returns the user the token was issued to.
func (c *Claims) Actor() Actor {
	return Actor{Username: c.Username, Rol: c.Rol}
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      core.User `json:"user"`
}

// NewUser is the payload to create an account.
type NewUser struct {
	Username string `json:"username"`
	Nombre   string `json:"nombre"`
	Rol      string `json:"rol"`
	Password string `json:"password"`
}

// AuthService checks credentials and issues HS256 tokens.
type AuthService struct {
	repo   *storage.SQLiteRepository
	secret []byte
	ttl    time.Duration
	now    clock
	logger *log.Logger
}

func NewAuthService(repo *storage.SQLiteRepository, secret string, ttl time.Duration, logger *log.Logger) *AuthService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &AuthService{
		repo:   repo,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
		logger: logger.WithComponent(log.ComponentAuth),
	}
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}

// VerifyPassword compares a plain password with a hashed password
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Login verifies the credentials and returns a signed token. Unknown users,
// inactive users and wrong passwords all produce the same error.
func (s *AuthService) Login(ctx context.Context, username, password string) (LoginResult, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return LoginResult{}, apperr.Validation("username", "usuario y contraseña son obligatorios")
	}

	u, err := s.repo.GetUserByUsername(ctx, username)
	if apperr.IsNotFound(err) {
		s.logger.WarnContext(ctx, "Login for unknown user", log.FieldUsuario, username)
		return LoginResult{}, errBadCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}
	if !u.Activo || !VerifyPassword(password, u.PasswordHash) {
		s.logger.WarnContext(ctx, "Login rejected", log.FieldUsuario, username, "activo", u.Activo)
		return LoginResult{}, errBadCredentials
	}

	token, exp, err := s.IssueToken(u)
	if err != nil {
		return LoginResult{}, err
	}
	s.logger.InfoContext(ctx, "User logged in", log.FieldUsuario, username, log.FieldOperation, log.OpLogin)
	return LoginResult{Token: token, ExpiresAt: exp, User: u}, nil
}

// IssueToken creates a JWT token for u.
func (s *AuthService) IssueToken(u core.User) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := &Claims{
		Username: u.Username,
		Rol:      u.Rol,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   u.Username,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// ParseToken validates and parses a JWT token
func (s *AuthService) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.Unauthorized("La sesión expiró, inicie sesión nuevamente")
		}
		return nil, apperr.Unauthorized("Token inválido")
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperr.Unauthorized("Token inválido")
	}
	return claims, nil
}

// Me returns the stored profile of the acting user.
func (s *AuthService) Me(ctx context.Context) (core.User, error) {
	a, ok := ActorFrom(ctx)
	if !ok {
		return core.User{}, apperr.Unauthorized("")
	}
	return s.repo.GetUserByUsername(ctx, a.Username)
}

// CreateUser validates and stores a new account.
func (s *AuthService) CreateUser(ctx context.Context, in NewUser) (core.User, error) {
	u := core.User{
		Username: strings.ToLower(strings.TrimSpace(in.Username)),
		Nombre:   strings.TrimSpace(in.Nombre),
		Rol:      in.Rol,
		Activo:   true,
	}
	if u.Rol == "" {
		u.Rol = core.RolEmpleado
	}
	if err := u.Validate(); err != nil {
		return u, err
	}
	if err := core.ValidatePassword(in.Password); err != nil {
		return u, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return u, fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash

	out, err := s.repo.CreateUser(ctx, u, usuario(ctx))
	if err != nil {
		return out, err
	}
	mutated(core.RecursoUsuario, core.AccionCrear)
	s.logger.InfoContext(ctx, "User created", log.FieldUsuario, out.Username, "rol", out.Rol)
	return out, nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]core.User, error) {
	return s.repo.ListUsers(ctx)
}

// EnsureAdmin creates the first admin account when the users table is empty.
// It reports whether an account was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	n, err := s.repo.CountUsers(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 || username == "" || password == "" {
		return false, nil
	}
	_, err = s.CreateUser(ctx, NewUser{Username: username, Nombre: "Administrador", Rol: core.RolAdmin, Password: password})
	if err != nil {
		return false, err
	}
	return true, nil
}
