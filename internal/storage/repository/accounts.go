package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/direct-tree/internal/models"
)

const accountColumns = `uid, email, password_hash, first_name, last_name, phone, role,
	is_verified, is_active, verification_token, created_at`

func scanAccount(row scanner) (*models.Account, error) {
	a := &models.Account{}
	if err := row.Scan(&a.UID, &a.Email, &a.PasswordHash, &a.FirstName, &a.LastName,
		&a.Phone, &a.Role, &a.IsVerified, &a.IsActive, &a.VerificationToken, &a.CreatedAt); err != nil {
		return nil, err
	}
	return a, nil
}

// CreateAccount сохраняет новую учётную запись и заполняет CreatedAt.
func (s *Storage) CreateAccount(ctx context.Context, a *models.Account) error {
	const op = "storage.CreateAccount"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO accounts (uid, email, password_hash, first_name, last_name, phone, role,
			      is_verified, is_active, verification_token)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			  RETURNING created_at`
	if err := s.DB.QueryRowContext(ctx, query,
		a.UID, a.Email, a.PasswordHash, a.FirstName, a.LastName, a.Phone, a.Role,
		a.IsVerified, a.IsActive, a.VerificationToken).Scan(&a.CreatedAt); err != nil {
		return wrap(op, err)
	}
	return nil
}

// GetAccount возвращает учётную запись по UID.
func (s *Storage) GetAccount(ctx context.Context, uid string) (*models.Account, error) {
	const op = "storage.GetAccount"
	row := s.DB.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE uid = $1`, uid)
	a, err := scanAccount(row)
	if err != nil {
		return nil, wrap(op, err)
	}
	return a, nil
}

// GetAccountByEmail ищет учётную запись по email без учёта регистра.
func (s *Storage) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	const op = "storage.GetAccountByEmail"
	row := s.DB.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE LOWER(email) = LOWER($1)`, email)
	a, err := scanAccount(row)
	if err != nil {
		return nil, wrap(op, err)
	}
	return a, nil
}

// VerifyAccount активирует учётную запись по токену подтверждения.
// Токен обнуляется в том же UPDATE, поэтому повторный вызов вернёт ErrNotFound.
func (s *Storage) VerifyAccount(ctx context.Context, token string) (*models.Account, error) {
	const op = "storage.VerifyAccount"
	query := `UPDATE accounts
			  SET is_verified = TRUE, is_active = TRUE, verification_token = NULL
			  WHERE verification_token = $1
			  RETURNING ` + accountColumns
	a, err := scanAccount(s.DB.QueryRowContext(ctx, query, token))
	if err != nil {
		return nil, wrap(op, err)
	}
	return a, nil
}

// SetVerificationToken выдаёт новый токен неподтверждённой учётной записи.
func (s *Storage) SetVerificationToken(ctx context.Context, uid, token string) error {
	const op = "storage.SetVerificationToken"
	res, err := s.DB.ExecContext(ctx,
		`UPDATE accounts SET verification_token = $2 WHERE uid = $1 AND is_verified = FALSE`, uid, token)
	if err != nil {
		return wrap(op, err)
	}
	return expectOne(op, res)
}

// SetAccountRole меняет роль учётной записи, найденной по email.
func (s *Storage) SetAccountRole(ctx context.Context, email string, role models.Role) (*models.Account, error) {
	const op = "storage.SetAccountRole"
	query := `UPDATE accounts SET role = $2 WHERE LOWER(email) = LOWER($1) RETURNING ` + accountColumns
	a, err := scanAccount(s.DB.QueryRowContext(ctx, query, email, role))
	if err != nil {
		return nil, wrap(op, err)
	}
	return a, nil
}
