package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vedran77/nexttask/internal/domain"
	"github.com/vedran77/nexttask/internal/repository"
	"golang.org/x/crypto/argon2"
)

var (
	ErrEmailTaken    = errors.New("email already registered")
	ErrInvalidCreds  = errors.New("invalid email or password")
	ErrInactiveUser  = errors.New("inactive user")
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrUserNotFound  = errors.New("user not found")
	ErrWrongPassword = errors.New("current password is incorrect")
)

type AuthService struct {
	userRepo  repository.UserRepository
	jwtSecret []byte
	tokenTTL  time.Duration
	now       func() time.Time
}

func NewAuthService(userRepo repository.UserRepository, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		now:       time.Now,
	}
}

type RegisterInput struct {
	Email    string  `json:"email"`
	Name     *string `json:"name"`
	Position *string `json:"position"`
	Avatar   *string `json:"avatar"`
	Password string  `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateProfileInput struct {
	Name     *string `json:"name"`
	Position *string `json:"position"`
	Avatar   *string `json:"avatar"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type AuthResponse struct {
	User        *domain.User `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResponse, error) {
	email := strings.TrimSpace(input.Email)
	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &domain.User{
		Email:        email,
		Name:         input.Name,
		Position:     input.Position,
		Avatar:       input.Avatar,
		PasswordHash: hash,
		IsActive:     true,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return s.respond(user)
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(input.Email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCreds
	}

	if !verifyPassword(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCreds
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	return s.respond(user)
}

// ResolveSubject verifies an access token and loads the active user it names.
func (s *AuthService) ResolveSubject(ctx context.Context, tokenStr string) (*domain.User, error) {
	userID, err := s.verifyToken(tokenStr)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return user, nil
}

func (s *AuthService) Me(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		user.Name = input.Name
	}
	if input.Position != nil {
		user.Position = input.Position
	}
	if input.Avatar != nil {
		user.Avatar = input.Avatar
	}

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("updating profile: %w", err)
	}
	return user, nil
}

// ChangePassword replaces the password after checking the current one.
// Issued tokens stay valid until they expire.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, input ChangePasswordInput) error {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}
	if !verifyPassword(input.CurrentPassword, user.PasswordHash) {
		return ErrWrongPassword
	}

	hash, err := hashPassword(input.NewPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return nil
}

func (s *AuthService) respond(user *domain.User) (*AuthResponse, error) {
	token, err := s.generateToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generating token: %w", err)
	}
	return &AuthResponse{User: user, AccessToken: token, TokenType: "bearer"}, nil
}

func (s *AuthService) generateToken(userID int64) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub": strconv.FormatInt(userID, 10),
		"exp": now.Add(s.tokenTTL).Unix(),
		"iat": now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// VerifyToken returns the user id carried by a valid access token.
func (s *AuthService) VerifyToken(tokenStr string) (int64, error) {
	return s.verifyToken(tokenStr)
}

func (s *AuthService) verifyToken(tokenStr string) (int64, error) {
	if tokenStr == "" {
		return 0, ErrInvalidToken
	}

	keyFunc := func(t *jwt.Token) (any, error) {
		return s.jwtSecret, nil
	}
	token, err := jwt.Parse(tokenStr, keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return 0, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || userID <= 0 {
		return 0, ErrInvalidToken
	}
	return userID, nil
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)

	return fmt.Sprintf("%s:%s",
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

func verifyPassword(password, encoded string) bool {
	saltB64, hashB64, ok := strings.Cut(encoded, ":")
	if !ok {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(saltB64)
	if err != nil {
		return false
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(hashB64)
	if err != nil {
		return false
	}

	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	return subtle.ConstantTimeCompare(hash, expectedHash) == 1
}
