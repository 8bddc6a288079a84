package auth

import (
	"context"

	"github.com/torimichi/guide-match-system/internal/domain/models"
	"github.com/torimichi/guide-match-system/internal/domain/types"
	"github.com/torimichi/guide-match-system/pkg/logger"
	wrap "github.com/torimichi/guide-match-system/pkg/logger/wrapper"
	"github.com/torimichi/guide-match-system/pkg/passhash"
	"github.com/torimichi/guide-match-system/pkg/uuid"
)

type AuthService struct {
	userRepo     UserRepo
	tokenService TokenProvider
	log          logger.Logger
}

func NewAuthService(userRepo UserRepo, tokenService TokenProvider, log logger.Logger) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		tokenService: tokenService,
		log:          log,
	}
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*models.TokenPair, error) {
	ctx = wrap.WithAction(ctx, "login")

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if user == nil {
		return nil, ErrUserWithEmailNotFound
	}

	if ok, err := passhash.VerifyPassword(password, user.GetPasswordHash()); err != nil || !ok {
		return nil, ErrInvalidCredentials
	}

	tokens, err := s.tokenService.GenerateTokens(ctx, user)
	if err != nil {
		s.log.Error(ctx, "failed to generate tokens", err)
		return nil, ErrTokenGenerateFail
	}
	return tokens, nil
}

// Register creates a new account. Travelers and guides self-register; admin
// accounts are provisioned out of band.
func (s *AuthService) Register(ctx context.Context, req *models.UserCreateRequest) (uuid.UUID, error) {
	ctx = wrap.WithAction(ctx, "register")

	role := types.UserRole(req.Role)
	switch role {
	case "":
		role = types.RoleTraveler
	case types.RoleTraveler, types.RoleGuide:
	case types.RoleAdmin:
		return uuid.Nil, ErrCannotCreateAdmin
	default:
		return uuid.Nil, wrap.Error(ctx, types.ErrPermissionDenied)
	}

	existing, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return uuid.Nil, wrap.Error(ctx, err)
	}
	if existing != nil {
		return uuid.Nil, ErrNotUniqueEmail
	}

	hashPassword, err := passhash.HashPassword(req.Password)
	if err != nil {
		s.log.Error(ctx, "failed to hash password", err)
		return uuid.Nil, ErrUnexpected
	}

	newUser := models.User{
		Name:  req.Name,
		Email: req.Email,
		Role:  role.String(),
	}
	newUser.SetPasswordHash(hashPassword)

	id, err := s.userRepo.Create(ctx, &newUser)
	if err != nil {
		return uuid.Nil, wrap.Error(ctx, err)
	}

	s.log.Info(ctx, "user registered", "user_id", id, "role", role)
	return id, nil
}

// Refresh delegates rotation of the token pair to the token service.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	return s.tokenService.Refresh(ctx, refreshToken)
}

// Authenticate resolves an access token to its live account.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokenService.Validate(ctx, token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != models.AccessToken {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.Get(ctx, claims.UserID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if user == nil {
		return nil, types.ErrUserNotFound
	}
	return user, nil
}
