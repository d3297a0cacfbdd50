package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"shortforge-backend/internal/middleware"
	"shortforge-backend/internal/models"
)

type tokenIssuer interface {
	GenerateAccessToken(subject string) (string, error)
}

// AdminAuth checks the single operator password and issues API tokens.
type AdminAuth struct {
	passwordHash []byte
	jwt          tokenIssuer
	expiresIn    int
	log          logrus.FieldLogger
}

func NewAdminAuth(passwordHash string, jwt *middleware.JWTAuth, log logrus.FieldLogger) *AdminAuth {
	return &AdminAuth{
		passwordHash: []byte(passwordHash),
		jwt:          jwt,
		expiresIn:    int(jwt.TTL.Seconds()),
		log:          log,
	}
}

func (s *AdminAuth) Login(ctx context.Context, req models.LoginRequest) (*models.AuthTokens, error) {
	if len(s.passwordHash) == 0 {
		return nil, &ForbiddenError{Message: "Admin login is disabled"}
	}
	if req.Password == "" {
		return nil, &ValidationError{Fields: map[string]string{"password": "Password is required"}}
	}

	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(req.Password)); err != nil {
		s.log.Warn("Failed admin login attempt")
		return nil, &UnauthorizedError{Message: "Invalid password"}
	}

	token, err := s.jwt.GenerateAccessToken(middleware.AdminSubject)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &models.AuthTokens{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   s.expiresIn,
	}, nil
}
