package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/magabrotheeeer/direct-tree/internal/models"
)

const businessColumns = `uid, owner_uid, name, description, category, island, address, phone, email,
	website, business_hours, services, photos, license_number, status, subscription_status,
	trial_end_date, rating_average, rating_count, accepts_appointments, appointment_duration,
	created_at, updated_at`

func scanBusiness(row scanner) (*models.Business, error) {
	b := &models.Business{}
	var hours, services, photos []byte
	if err := row.Scan(&b.UID, &b.OwnerUID, &b.Name, &b.Description, &b.Category, &b.Island,
		&b.Address, &b.Phone, &b.Email, &b.Website, &hours, &services, &photos, &b.LicenseNumber,
		&b.Status, &b.SubscriptionStatus, &b.TrialEndDate, &b.RatingAverage, &b.RatingCount,
		&b.AcceptsAppointments, &b.AppointmentDuration, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(hours, &b.BusinessHours); err != nil {
		return nil, fmt.Errorf("business_hours: %w", err)
	}
	if err := unmarshalJSON(services, &b.Services); err != nil {
		return nil, fmt.Errorf("services: %w", err)
	}
	if err := unmarshalJSON(photos, &b.Photos); err != nil {
		return nil, fmt.Errorf("photos: %w", err)
	}
	if b.Services == nil {
		b.Services = []string{}
	}
	if b.Photos == nil {
		b.Photos = []string{}
	}
	return b, nil
}

func unmarshalJSON(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func marshalJSON(v any, empty string) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(data) == "null" {
		return empty, nil
	}
	return string(data), nil
}

// CreateBusiness сохраняет профиль бизнеса и заполняет временные метки.
// Второй профиль того же владельца вернёт ErrDuplicate.
func (s *Storage) CreateBusiness(ctx context.Context, b *models.Business) error {
	const op = "storage.CreateBusiness"
	hours, err := marshalJSON(b.BusinessHours, "{}")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	services, err := marshalJSON(b.Services, "[]")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	photos, err := marshalJSON(b.Photos, "[]")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO businesses (uid, owner_uid, name, description, category, island, address,
			      phone, email, website, business_hours, services, photos, license_number, status,
			      subscription_status, trial_end_date, accepts_appointments, appointment_duration)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
			  RETURNING created_at, updated_at`
	if err := s.DB.QueryRowContext(ctx, query,
		b.UID, b.OwnerUID, b.Name, b.Description, b.Category, b.Island, b.Address,
		b.Phone, b.Email, b.Website, hours, services, photos, b.LicenseNumber, b.Status,
		b.SubscriptionStatus, b.TrialEndDate, b.AcceptsAppointments, b.AppointmentDuration,
	).Scan(&b.CreatedAt, &b.UpdatedAt); err != nil {
		return wrap(op, err)
	}
	return nil
}

// GetBusiness возвращает профиль по UID независимо от статуса.
func (s *Storage) GetBusiness(ctx context.Context, uid string) (*models.Business, error) {
	const op = "storage.GetBusiness"
	b, err := scanBusiness(s.DB.QueryRowContext(ctx, `SELECT `+businessColumns+` FROM businesses WHERE uid = $1`, uid))
	if err != nil {
		return nil, wrap(op, err)
	}
	return b, nil
}

// GetBusinessByOwner возвращает профиль владельца.
func (s *Storage) GetBusinessByOwner(ctx context.Context, ownerUID string) (*models.Business, error) {
	const op = "storage.GetBusinessByOwner"
	b, err := scanBusiness(s.DB.QueryRowContext(ctx, `SELECT `+businessColumns+` FROM businesses WHERE owner_uid = $1`, ownerUID))
	if err != nil {
		return nil, wrap(op, err)
	}
	return b, nil
}

// ListBusinesses возвращает профили по фильтру. Пустые поля фильтра не ограничивают выборку.
func (s *Storage) ListBusinesses(ctx context.Context, f models.BusinessFilter) ([]*models.Business, error) {
	const op = "storage.ListBusinesses"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + businessColumns + `
			  FROM businesses
			  WHERE ($1 = '' OR status = $1)
			    AND ($2 = '' OR island = $2)
			    AND ($3 = '' OR category = $3)
			  ORDER BY created_at DESC
			  LIMIT $4 OFFSET $5`
	rows, err := s.DB.QueryContext(ctx, query, string(f.Status), f.Island, f.Category, f.Limit, f.Skip)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	result := make([]*models.Business, 0)
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return result, nil
}

// SetBusinessStatus меняет статус модерации и возвращает обновлённый профиль.
func (s *Storage) SetBusinessStatus(ctx context.Context, uid string, status models.ModerationStatus) (*models.Business, error) {
	const op = "storage.SetBusinessStatus"
	query := `UPDATE businesses SET status = $2, updated_at = NOW() WHERE uid = $1 RETURNING ` + businessColumns
	b, err := scanBusiness(s.DB.QueryRowContext(ctx, query, uid, status))
	if err != nil {
		return nil, wrap(op, err)
	}
	return b, nil
}

// AddBusinessPhoto дописывает URL фотографии в конец списка.
func (s *Storage) AddBusinessPhoto(ctx context.Context, uid, url string) (*models.Business, error) {
	const op = "storage.AddBusinessPhoto"
	query := `UPDATE businesses
			  SET photos = photos || jsonb_build_array($2::text), updated_at = NOW()
			  WHERE uid = $1
			  RETURNING ` + businessColumns
	b, err := scanBusiness(s.DB.QueryRowContext(ctx, query, uid, url))
	if err != nil {
		return nil, wrap(op, err)
	}
	return b, nil
}

// UpdateBusinessRating сохраняет пересчитанный рейтинг.
func (s *Storage) UpdateBusinessRating(ctx context.Context, uid string, average float64, count int) error {
	const op = "storage.UpdateBusinessRating"
	res, err := s.DB.ExecContext(ctx,
		`UPDATE businesses SET rating_average = $2, rating_count = $3, updated_at = NOW() WHERE uid = $1`,
		uid, average, count)
	if err != nil {
		return wrap(op, err)
	}
	return expectOne(op, res)
}

// FindTrialsEndingBetween возвращает бизнесы на пробном периоде, который
// заканчивается в интервале [from, to), вместе с контактами владельца.
// Бизнесы, которым письмо уже отправлено, пропускаются.
func (s *Storage) FindTrialsEndingBetween(ctx context.Context, from, to time.Time) ([]*models.TrialNotice, error) {
	const op = "storage.FindTrialsEndingBetween"
	query := `SELECT b.uid, b.name, b.trial_end_date, a.email, a.first_name
			  FROM businesses b
			  JOIN accounts a ON a.uid = b.owner_uid
			  WHERE b.subscription_status = 'trial'
			    AND b.trial_end_date >= $1
			    AND b.trial_end_date < $2
			    AND b.trial_notice_sent_at IS NULL
			  ORDER BY b.trial_end_date`
	rows, err := s.DB.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	var result []*models.TrialNotice
	for rows.Next() {
		n := &models.TrialNotice{}
		if err := rows.Scan(&n.BusinessUID, &n.BusinessName, &n.TrialEndDate, &n.Email, &n.FirstName); err != nil {
			return nil, wrap(op, err)
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return result, nil
}

// MarkTrialNoticeSent помечает, что письмо об окончании пробного периода
// отправлено. Возвращает false, если пометка уже стояла.
func (s *Storage) MarkTrialNoticeSent(ctx context.Context, businessUID string) (bool, error) {
	const op = "storage.MarkTrialNoticeSent"
	res, err := s.DB.ExecContext(ctx,
		`UPDATE businesses SET trial_notice_sent_at = NOW() WHERE uid = $1 AND trial_notice_sent_at IS NULL`,
		businessUID)
	if err != nil {
		return false, wrap(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n == 1, nil
}
