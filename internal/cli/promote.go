package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/direct-tree/internal/models"
	"github.com/magabrotheeeer/direct-tree/internal/storage/repository"
)

// RoleSetter меняет роль учётной записи.
type RoleSetter interface {
	SetAccountRole(ctx context.Context, email string, role models.Role) (*models.Account, error)
}

// Promote выдаёт учётной записи с адресом email роль admin.
func Promote(ctx context.Context, store RoleSetter, email string) (*models.Account, error) {
	const op = "cli.Promote"
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, models.ValidationError("email is required")
	}
	account, err := store.SetAccountRole(ctx, email, models.RoleAdmin)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s: no account with email %s: %w", op, email, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return account, nil
}

func newPromoteCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "promote <email>",
		Short: "Grant the admin role to an existing account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, _, err := e.storage(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			account, err := Promote(cmd.Context(), db, args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", account.UID, account.Email, account.Role)
			return nil
		},
	}
}
