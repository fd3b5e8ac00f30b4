package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/faxsign/faxsign/internal"
)

// Claims is the JWT payload. It mirrors the identity the UI needs for
// rendering (role, department), but the middleware reloads the user row on
// every request so a role change takes effect without re-login.
type Claims struct {
	UserID         int64   `json:"id"`
	Username       string  `json:"username"`
	Role           string  `json:"role"`
	DepartmentID   *int64  `json:"department_id"`
	DepartmentName *string `json:"department_name"`
	jwt.RegisteredClaims
}

// TokenGenerator creates and validates access tokens.
type TokenGenerator interface {
	GenerateToken(r *internal.Requester) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Repository is the data access the auth service needs.
type Repository interface {
	GetCredentials(username string) (userID int64, passwordHash string, err error)
	GetRequesterByID(userID int64) (*internal.Requester, error)
	CreateUser(username, email, passwordHash, fullName string, role internal.Role) (int64, error)
}

// LoginResult is the login response body: the signed token plus the
// identity snapshot the client caches.
type LoginResult struct {
	Token string              `json:"token"`
	User  *internal.Requester `json:"user"`
}

func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

type JWTTokenGenerator struct {
	Secret   []byte
	TokenTTL time.Duration
}

func NewJWTTokenGenerator(secret string, ttl time.Duration) *JWTTokenGenerator {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTTokenGenerator{
		Secret:   []byte(secret),
		TokenTTL: ttl,
	}
}

func (j *JWTTokenGenerator) GenerateToken(r *internal.Requester) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:         r.ID,
		Username:       r.Username,
		Role:           r.Role.String(),
		DepartmentID:   r.DepartmentID,
		DepartmentName: r.DepartmentName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(j.TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   r.Username,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Secret)
}

func (j *JWTTokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, internal.ErrInvalidToken
		}
		return j.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrTokenExpired
		}
		return nil, internal.ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, internal.ErrInvalidToken
}
