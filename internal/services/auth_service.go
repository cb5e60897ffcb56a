package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/voxlink/voxlink/internal/apperrors"
	"github.com/voxlink/voxlink/internal/mail"
	"github.com/voxlink/voxlink/internal/models"
	"github.com/voxlink/voxlink/internal/tokens"
	"github.com/voxlink/voxlink/middleware/jwt"
)

// UserStore is the persistence surface AuthService needs.
type UserStore interface {
	Create(user *models.User) error
	GetByID(id string) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	UpdateStatus(id, status string) error
}

// GuildJoiner is the slice of guild behavior invite redemption needs.
type GuildJoiner interface {
	GrantMembership(guildID, userID, roleName string) (*models.GuildMember, error)
}

type AuthService struct {
	users       UserStore
	guilds      GuildJoiner
	tokens      *tokens.Store
	tm          *jwt.TokenManager
	mailer      mail.Mailer
	frontendURL string
	logger      *zap.Logger
}

func NewAuthService(
	users UserStore,
	guilds GuildJoiner,
	tokenStore *tokens.Store,
	tm *jwt.TokenManager,
	mailer mail.Mailer,
	frontendURL string,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		users:       users,
		guilds:      guilds,
		tokens:      tokenStore,
		tm:          tm,
		mailer:      mailer,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

type RegisterRequest struct {
	Username    string `json:"username" binding:"required,min=2,max=32"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	InviteToken string `json:"invite_token"`
}

type AuthResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Register creates an account and, when an invite token rides along,
// redeems it and lands the new user in the invite's guild.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*AuthResult, error) {
	if _, err := s.users.GetByUsername(req.Username); err == nil {
		return nil, fmt.Errorf("%w: username already taken", apperrors.ErrConflict)
	}
	if _, err := s.users.GetByEmail(req.Email); err == nil {
		return nil, fmt.Errorf("%w: email already registered", apperrors.ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     req.Username,
		Email:        strings.ToLower(req.Email),
		PasswordHash: string(hash),
	}
	if err := s.users.Create(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: username already taken", apperrors.ErrConflict)
		}
		return nil, err
	}

	if req.InviteToken != "" {
		if _, err := s.RedeemInvite(ctx, req.InviteToken, user.ID); err != nil {
			// The account exists either way; the caller learns the
			// invite was bad from the log and can join later.
			s.logger.Warn("invite redemption failed during registration",
				zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	token, err := s.tm.GenerateToken(user.ID, user.Username, user.Email)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return &AuthResult{User: user, Token: token}, nil
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login checks the password and mints a session token. Unknown users
// and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(req *LoginRequest) (*AuthResult, error) {
	user, err := s.users.GetByUsername(req.Username)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthorized)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthorized)
	}

	token, err := s.tm.GenerateToken(user.ID, user.Username, user.Email)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token}, nil
}

// RedeemInvite consumes one use of an ephemeral invite token and
// grants the user membership in the invite's guild with the role the
// token names.
func (s *AuthService) RedeemInvite(ctx context.Context, token, userID string) (*models.GuildMember, error) {
	inv, err := s.tokens.RedeemInvite(ctx, token)
	if err != nil {
		return nil, err
	}
	if inv.GuildID == "" {
		return nil, fmt.Errorf("%w: invite is not bound to a guild", apperrors.ErrBadRequest)
	}
	return s.guilds.GrantMembership(inv.GuildID, userID, inv.Role)
}

// RequestMagicLink issues a single-use login token and mails it. The
// response never reveals whether the address has an account.
func (s *AuthService) RequestMagicLink(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("%w: email is required", apperrors.ErrBadRequest)
	}

	token, err := s.tokens.CreateMagicLink(ctx, email)
	if err != nil {
		return err
	}

	link := fmt.Sprintf("%s/auth/magic?token=%s", strings.TrimRight(s.frontendURL, "/"), token)
	if err := s.mailer.SendMagicLink(email, link); err != nil {
		return fmt.Errorf("%w: could not deliver magic link", apperrors.ErrBadRequest)
	}
	return nil
}

// VerifyMagicLink consumes the token and signs the user in,
// provisioning an account on first use of an unknown address.
func (s *AuthService) VerifyMagicLink(ctx context.Context, token string) (*AuthResult, error) {
	email, err := s.tokens.ConsumeMagicLink(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(email)
	if err != nil {
		user, err = s.provisionUser(email)
		if err != nil {
			return nil, err
		}
	}

	sessionToken, err := s.tm.GenerateToken(user.ID, user.Username, user.Email)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: sessionToken}, nil
}

func (s *AuthService) GetUser(userID string) (*models.User, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: user", apperrors.ErrNotFound)
	}
	return user, nil
}

func (s *AuthService) Refresh(token string) (string, error) {
	refreshed, err := s.tm.RefreshToken(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrUnauthorized, err)
	}
	return refreshed, nil
}

// provisionUser creates a passwordless account for a magic-link
// sign-in. The username starts as the address's local part and gains
// a numeric suffix on collision.
func (s *AuthService) provisionUser(email string) (*models.User, error) {
	base := strings.SplitN(email, "@", 2)[0]
	if base == "" {
		base = "user"
	}

	username := base
	for i := 1; ; i++ {
		if _, err := s.users.GetByUsername(username); err != nil {
			break
		}
		username = fmt.Sprintf("%s%d", base, i)
		if i > 50 {
			return nil, fmt.Errorf("%w: could not allocate a username", apperrors.ErrConflict)
		}
	}

	user := &models.User{
		Username: username,
		Email:    email,
	}
	if err := s.users.Create(user); err != nil {
		return nil, err
	}
	s.logger.Info("provisioned user from magic link",
		zap.String("user_id", user.ID), zap.String("username", username))
	return user, nil
}
