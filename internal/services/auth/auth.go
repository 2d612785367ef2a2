// Package auth отвечает за учётные записи: регистрацию, подтверждение email,
// вход по паролю и проверку bearer-токенов.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/direct-tree/internal/lib/jwt"
	"github.com/magabrotheeeer/direct-tree/internal/lib/password"
	"github.com/magabrotheeeer/direct-tree/internal/lib/sl"
	"github.com/magabrotheeeer/direct-tree/internal/mailer"
	"github.com/magabrotheeeer/direct-tree/internal/models"
	"github.com/magabrotheeeer/direct-tree/internal/storage/repository"
)

// AccountRepository описывает контракт хранилища учётных записей.
type AccountRepository interface {
	CreateAccount(ctx context.Context, a *models.Account) error
	GetAccount(ctx context.Context, uid string) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	VerifyAccount(ctx context.Context, token string) (*models.Account, error)
	SetVerificationToken(ctx context.Context, uid, token string) error
	SetAccountRole(ctx context.Context, email string, role models.Role) (*models.Account, error)
}

// RegisterInput данные регистрации.
type RegisterInput struct {
	Email    string
	Password string
	Role     models.Role
	Profile  models.Profile
}

// Service реализует операции над учётными записями.
type Service struct {
	accounts  AccountRepository
	jwtMaker  jwt.Maker
	mailer    mailer.Mailer
	publicURL string
	log       *slog.Logger
	newToken  func() string
}

// NewService создаёт сервис учётных записей.
func NewService(accounts AccountRepository, jwtMaker jwt.Maker, m mailer.Mailer, publicURL string, log *slog.Logger) *Service {
	return &Service{
		accounts:  accounts,
		jwtMaker:  jwtMaker,
		mailer:    m,
		publicURL: publicURL,
		log:       log,
		newToken:  uuid.NewString,
	}
}

// Register создаёт неподтверждённую учётную запись и ставит в очередь письмо
// со ссылкой подтверждения. Роль admin самостоятельно получить нельзя.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.Account, error) {
	const op = "auth.Register"
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, models.ValidationError("email and password are required")
	}
	role := in.Role
	if role == "" {
		role = models.RoleCustomer
	}
	if !role.Valid() {
		return nil, models.ValidationError("unknown role " + string(role))
	}
	if role == models.RoleAdmin {
		return nil, models.ValidationError("admin accounts cannot be registered")
	}

	_, err := s.accounts.GetAccountByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, models.ErrDuplicateEmail
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := password.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	token := s.newToken()
	account := &models.Account{
		UID:               uuid.NewString(),
		Email:             email,
		PasswordHash:      hash,
		FirstName:         in.Profile.FirstName,
		LastName:          in.Profile.LastName,
		Phone:             in.Profile.Phone,
		Role:              role,
		VerificationToken: &token,
	}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, models.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mailer.Enqueue(mailer.VerificationEmail(account.Email, account.FirstName, s.publicURL, token))
	s.log.Info("account registered", slog.String("uid", account.UID), slog.String("role", string(role)))
	return account, nil
}

// Verify подтверждает email по одноразовому токену.
func (s *Service) Verify(ctx context.Context, token string) (*models.Account, error) {
	const op = "auth.Verify"
	if strings.TrimSpace(token) == "" {
		return nil, models.ErrInvalidToken
	}
	account, err := s.accounts.VerifyAccount(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, models.ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("account verified", slog.String("uid", account.UID))
	return account, nil
}

// ResendVerification выдаёт новый токен подтверждения и отправляет письмо.
// Для неизвестного или уже подтверждённого email ничего не делает,
// чтобы ответ не раскрывал наличие учётной записи.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	const op = "auth.ResendVerification"
	account, err := s.accounts.GetAccountByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if account.IsVerified {
		return nil
	}

	token := s.newToken()
	if err := s.accounts.SetVerificationToken(ctx, account.UID, token); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	s.mailer.Enqueue(mailer.VerificationEmail(account.Email, account.FirstName, s.publicURL, token))
	return nil
}

// Login проверяет пароль и выдаёт токен доступа.
// Неизвестный email и неверный пароль дают одну и ту же ошибку.
func (s *Service) Login(ctx context.Context, email, rawPassword string) (string, *models.Account, error) {
	const op = "auth.Login"
	account, err := s.accounts.GetAccountByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil, models.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.Compare(account.PasswordHash, rawPassword); err != nil {
		if !errors.Is(err, password.ErrMismatch) {
			s.log.Error("stored password hash is broken", slog.String("uid", account.UID), sl.Err(err))
		}
		return "", nil, models.ErrInvalidCredentials
	}
	if !account.CanLogin() {
		return "", nil, models.ErrNotVerified
	}

	token, err := s.jwtMaker.GenerateToken(account.UID, account.Role)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	return token, account, nil
}

// Authenticate проверяет bearer-токен и перечитывает учётную запись.
// Токен не отзывается: деактивированная запись по-прежнему проходит проверку.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.Account, error) {
	const op = "auth.Authenticate"
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, err
	}
	account, err := s.accounts.GetAccount(ctx, claims.AccountUID())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, models.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return account, nil
}

// Promote выдаёт учётной записи роль администратора.
func (s *Service) Promote(ctx context.Context, email string) (*models.Account, error) {
	const op = "auth.Promote"
	account, err := s.accounts.SetAccountRole(ctx, normalizeEmail(email), models.RoleAdmin)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("account promoted to admin", slog.String("uid", account.UID))
	return account, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
