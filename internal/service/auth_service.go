package service

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/snapselect/snapselect/internal/config"
	"github.com/snapselect/snapselect/internal/models"
	"github.com/snapselect/snapselect/internal/repository"
	"github.com/snapselect/snapselect/pkg/logger"
)

var (
	ErrEmailTaken           = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrPhotographerNotFound = errors.New("photographer not found")
)

type AuthService struct {
	photographerRepo *repository.PhotographerRepository
	config           *config.Config
}

type Claims struct {
	PhotographerID string `json:"photographer_id"`
	jwt.RegisteredClaims
}

func NewAuthService(photographerRepo *repository.PhotographerRepository, cfg *config.Config) *AuthService {
	return &AuthService{photographerRepo: photographerRepo, config: cfg}
}

func canonicalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a photographer account on the configured default plan
// and returns it together with a session token.
func (s *AuthService) Register(email, password string) (*models.Photographer, string, error) {
	email = canonicalizeEmail(email)

	if existing, err := s.photographerRepo.GetByEmail(email); err == nil && existing != nil {
		return nil, "", ErrEmailTaken
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("check existing email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	photographer := &models.Photographer{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		PlanID:       s.config.Auth.DefaultPlan,
		CreatedAt:    time.Now(),
	}
	if err := s.photographerRepo.Create(photographer); err != nil {
		return nil, "", fmt.Errorf("create photographer: %w", err)
	}

	token, err := s.GenerateToken(photographer.ID)
	if err != nil {
		return nil, "", err
	}

	logger.Audit("photographer_registered", photographer.ID, map[string]string{
		"plan_id": photographer.PlanID,
	})
	return photographer, token, nil
}

func (s *AuthService) Login(email, password string) (*models.Photographer, string, error) {
	photographer, err := s.photographerRepo.GetByEmail(canonicalizeEmail(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(photographer.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.GenerateToken(photographer.ID)
	if err != nil {
		return nil, "", err
	}
	return photographer, token, nil
}

func (s *AuthService) GetByID(id string) (*models.Photographer, error) {
	photographer, err := s.photographerRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPhotographerNotFound
		}
		return nil, err
	}
	return photographer, nil
}

func (s *AuthService) GenerateToken(photographerID string) (string, error) {
	ttl := time.Duration(s.config.Auth.TokenTTL) * time.Hour
	claims := &Claims{
		PhotographerID: photographerID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   photographerID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.Auth.JWTSecret))
}

func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Auth.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
