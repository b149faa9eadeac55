package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/medmap/scheduling-api/internal/model"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carry the identity collaborator's capability flags.
type Claims struct {
	UserID    int64  `json:"user_id"`
	Email     string `json:"email"`
	IsPatient bool   `json:"is_patient"`
	IsDoctor  bool   `json:"is_doctor"`
	IsAdmin   bool   `json:"is_admin"`
	DoctorID  int64  `json:"doctor_id,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) Identity() *model.Identity {
	return &model.Identity{
		UserID:    c.UserID,
		Email:     c.Email,
		IsPatient: c.IsPatient,
		IsDoctor:  c.IsDoctor,
		IsAdmin:   c.IsAdmin,
		DoctorID:  c.DoctorID,
	}
}

type JWTService interface {
	GenerateAccessToken(identity *model.Identity, ttl time.Duration) (string, error)
	ValidateToken(token string) (*Claims, error)
}

type jwtService struct {
	secret []byte
	issuer string
}

// NewJWTService verifies HS256 tokens minted by the identity service with the shared secret.
func NewJWTService(secret, issuer string) JWTService {
	return &jwtService{secret: []byte(secret), issuer: issuer}
}

func (s *jwtService) GenerateAccessToken(identity *model.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    identity.UserID,
		Email:     identity.Email,
		IsPatient: identity.IsPatient,
		IsDoctor:  identity.IsDoctor,
		IsAdmin:   identity.IsAdmin,
		DoctorID:  identity.DoctorID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(identity.UserID, 10),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *jwtService) ValidateToken(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid || c.UserID <= 0 {
		return nil, ErrInvalidToken
	}
	return c, nil
}
