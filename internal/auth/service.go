package auth

import (
	"log/slog"

	"github.com/faxsign/faxsign/internal"
	"github.com/faxsign/faxsign/internal/core/validation"
)

type Service struct {
	repo           Repository
	tokenGenerator TokenGenerator
	bcryptCost     int
	logger         *slog.Logger
}

func NewService(repo Repository, tokenGen TokenGenerator, bcryptCost int, logger *slog.Logger) *Service {
	return &Service{
		repo:           repo,
		tokenGenerator: tokenGen,
		bcryptCost:     bcryptCost,
		logger:         logger,
	}
}

// Authenticate validates credentials and returns a signed token plus the
// identity snapshot. Unknown username and wrong password produce the same
// error so the endpoint does not leak which usernames exist.
func (s *Service) Authenticate(dto LoginDTO) (*LoginResult, error) {
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	userID, storedHash, err := s.repo.GetCredentials(dto.Username)
	if err != nil {
		s.logger.Warn("login failed: unknown username", "username", dto.Username)
		return nil, internal.ErrInvalidCredentials
	}

	if err := VerifyPassword(storedHash, dto.Password); err != nil {
		s.logger.Warn("login failed: password mismatch", "username", dto.Username)
		return nil, internal.ErrInvalidCredentials
	}

	requester, err := s.repo.GetRequesterByID(userID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load user", err)
	}

	token, err := s.tokenGenerator.GenerateToken(requester)
	if err != nil {
		return nil, internal.NewInternalError("failed to sign token", err)
	}

	s.logger.Info("user authenticated", "user_id", requester.ID, "role", requester.Role)

	return &LoginResult{Token: token, User: requester}, nil
}

// Register creates a standard-role account. Role escalation happens later
// through the admin role endpoint, never at registration.
func (s *Service) Register(dto RegisterDTO) (int64, error) {
	if err := validation.Struct(dto); err != nil {
		return 0, err
	}

	hash, err := HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		return 0, internal.NewInternalError("failed to hash password", err)
	}

	userID, err := s.repo.CreateUser(dto.Username, dto.Email, hash, dto.FullName, internal.RoleStandard)
	if err != nil {
		return 0, err
	}

	s.logger.Info("user registered", "user_id", userID, "username", dto.Username)
	return userID, nil
}

// ValidateAccessToken parses and verifies a bearer token.
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokenGenerator.ValidateToken(tokenString)
}

// GetRequester loads the current identity row for the middleware.
func (s *Service) GetRequester(userID int64) (*internal.Requester, error) {
	return s.repo.GetRequesterByID(userID)
}
