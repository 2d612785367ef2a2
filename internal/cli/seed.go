package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/direct-tree/internal/lib/password"
	"github.com/magabrotheeeer/direct-tree/internal/models"
	"github.com/magabrotheeeer/direct-tree/internal/storage/repository"
)

// SeedStore операции хранилища, нужные для заполнения демо-данными.
type SeedStore interface {
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	CreateAccount(ctx context.Context, a *models.Account) error
	CreateBusiness(ctx context.Context, b *models.Business) error
}

type sample struct {
	owner    models.Profile
	email    string
	business models.BusinessInput
}

var samples = []sample{
	{
		owner: models.Profile{FirstName: "Maria", LastName: "Knowles"},
		email: "conch.shack@example.com",
		business: models.BusinessInput{
			Name:                "Arawak Conch Shack",
			Description:         "Fresh conch salad and fried snapper by the water.",
			Category:            "Restaurant",
			Island:              "New Providence",
			Address:             "Arawak Cay, Nassau",
			Phone:               "+1 242 555 0101",
			Email:               "conch.shack@example.com",
			BusinessHours:       map[string]string{"mon-sun": "11:00-22:00"},
			Services:            []string{"Dine-in", "Takeout"},
			LicenseNumber:       "NP-REST-0001",
			AcceptsAppointments: false,
		},
	},
	{
		owner: models.Profile{FirstName: "Dwayne", LastName: "Rolle"},
		email: "exuma.tours@example.com",
		business: models.BusinessInput{
			Name:                "Exuma Cays Boat Tours",
			Description:         "Day trips to the swimming pigs and Thunderball Grotto.",
			Category:            "Tour Operator",
			Island:              "Exuma",
			Address:             "Queen's Highway, George Town",
			Phone:               "+1 242 555 0102",
			Email:               "exuma.tours@example.com",
			BusinessHours:       map[string]string{"mon-sat": "08:00-17:00"},
			Services:            []string{"Snorkeling", "Private charters"},
			LicenseNumber:       "EX-TOUR-0002",
			AcceptsAppointments: true,
			AppointmentDuration: 240,
		},
	},
	{
		owner: models.Profile{FirstName: "Keisha", LastName: "Ferguson"},
		email: "island.spa@example.com",
		business: models.BusinessInput{
			Name:                "Lucaya Island Spa",
			Description:         "Massage and beauty treatments near Port Lucaya.",
			Category:            "Beauty & Spa",
			Island:              "Grand Bahama",
			Address:             "Seahorse Road, Freeport",
			Phone:               "+1 242 555 0103",
			Email:               "island.spa@example.com",
			BusinessHours:       map[string]string{"tue-sun": "09:00-19:00"},
			Services:            []string{"Massage", "Facials", "Manicure"},
			LicenseNumber:       "GB-SPA-0003",
			AcceptsAppointments: true,
			AppointmentDuration: 60,
		},
	},
}

// Seed создаёт подтверждённых владельцев и одобренные бизнесы на пробном периоде.
// Владельцы, которые уже есть в базе, пропускаются. Возвращает число созданных бизнесов.
func Seed(ctx context.Context, store SeedStore, plainPassword string, trial time.Duration, log *slog.Logger) (int, error) {
	const op = "cli.Seed"
	hash, err := password.Hash(plainPassword)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	created := 0
	for _, s := range samples {
		_, err := store.GetAccountByEmail(ctx, s.email)
		if err == nil {
			log.Info("sample owner already exists, skipping", slog.String("email", s.email))
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return created, fmt.Errorf("%s: %w", op, err)
		}

		owner := &models.Account{
			UID:          uuid.NewString(),
			Email:        s.email,
			PasswordHash: hash,
			FirstName:    s.owner.FirstName,
			LastName:     s.owner.LastName,
			Role:         models.RoleBusinessOwner,
			IsVerified:   true,
			IsActive:     true,
		}
		if err := store.CreateAccount(ctx, owner); err != nil {
			return created, fmt.Errorf("%s: %w", op, err)
		}

		in := s.business
		b := &models.Business{
			UID:                 uuid.NewString(),
			OwnerUID:            owner.UID,
			Name:                in.Name,
			Description:         in.Description,
			Category:            in.Category,
			Island:              in.Island,
			Address:             in.Address,
			Phone:               in.Phone,
			Email:               in.Email,
			BusinessHours:       in.BusinessHours,
			Services:            in.Services,
			Photos:              []string{},
			LicenseNumber:       in.LicenseNumber,
			Status:              models.ModerationApproved,
			SubscriptionStatus:  models.SubscriptionTrial,
			TrialEndDate:        time.Now().UTC().Add(trial),
			AcceptsAppointments: in.AcceptsAppointments,
			AppointmentDuration: in.AppointmentDuration,
		}
		if b.AppointmentDuration == 0 {
			b.AppointmentDuration = models.DefaultAppointmentDuration
		}
		if err := store.CreateBusiness(ctx, b); err != nil {
			return created, fmt.Errorf("%s: %w", op, err)
		}
		log.Info("sample business created", slog.String("uid", b.UID), slog.String("name", b.Name))
		created++
	}
	return created, nil
}

func newSeedCmd(e *env) *cobra.Command {
	var plainPassword string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert sample business owners and approved businesses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, cfg, log, err := e.storage(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			created, err := Seed(cmd.Context(), db, plainPassword, cfg.TrialPeriod, log)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d sample businesses created\n", created)
			return nil
		},
	}
	cmd.Flags().StringVar(&plainPassword, "password", "changeme123", "password for seeded owner accounts")
	return cmd
}
