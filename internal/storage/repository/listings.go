package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/direct-tree/internal/models"
)

const listingColumns = `uid, kind, owner_uid, title, description, island, location, starts_at,
	available_from, price, currency, is_paid, provider_payment_id, created_at`

func scanListing(row scanner) (*models.Listing, error) {
	l := &models.Listing{}
	if err := row.Scan(&l.UID, &l.Kind, &l.OwnerUID, &l.Title, &l.Description, &l.Island,
		&l.Location, &l.StartsAt, &l.AvailableFrom, &l.Price, &l.Currency, &l.IsPaid,
		&l.ProviderPaymentID, &l.CreatedAt); err != nil {
		return nil, err
	}
	return l, nil
}

// CreateListing сохраняет объявление.
func (s *Storage) CreateListing(ctx context.Context, l *models.Listing) error {
	const op = "storage.CreateListing"
	query := `INSERT INTO listings (uid, kind, owner_uid, title, description, island, location,
			      starts_at, available_from, price, currency)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			  RETURNING created_at`
	if err := s.DB.QueryRowContext(ctx, query,
		l.UID, l.Kind, l.OwnerUID, l.Title, l.Description, l.Island, l.Location,
		l.StartsAt, l.AvailableFrom, l.Price, l.Currency).Scan(&l.CreatedAt); err != nil {
		return wrap(op, err)
	}
	return nil
}

// GetListing возвращает объявление по UID.
func (s *Storage) GetListing(ctx context.Context, uid string) (*models.Listing, error) {
	const op = "storage.GetListing"
	l, err := scanListing(s.DB.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE uid = $1`, uid))
	if err != nil {
		return nil, wrap(op, err)
	}
	return l, nil
}

// ListListings возвращает объявления одного типа, опционально по острову.
func (s *Storage) ListListings(ctx context.Context, kind models.ListingKind, island string, skip, limit int) ([]*models.Listing, error) {
	const op = "storage.ListListings"
	query := `SELECT ` + listingColumns + `
			  FROM listings
			  WHERE kind = $1 AND ($2 = '' OR island = $2)
			  ORDER BY created_at DESC
			  LIMIT $3 OFFSET $4`
	rows, err := s.DB.QueryContext(ctx, query, kind, island, limit, skip)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	result := make([]*models.Listing, 0)
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return result, nil
}

// SetListingPayment запоминает идентификатор созданного заказа.
func (s *Storage) SetListingPayment(ctx context.Context, uid, paymentID string) error {
	const op = "storage.SetListingPayment"
	res, err := s.DB.ExecContext(ctx,
		`UPDATE listings SET provider_payment_id = $2 WHERE uid = $1 AND NOT is_paid`, uid, paymentID)
	if err != nil {
		return wrap(op, err)
	}
	return expectOne(op, res)
}

// MarkListingPaid отмечает объявление оплаченным по заказу paymentID.
// Повторная отметка или чужой заказ возвращают ErrConflict.
func (s *Storage) MarkListingPaid(ctx context.Context, uid, paymentID string) (*models.Listing, error) {
	const op = "storage.MarkListingPaid"
	query := `UPDATE listings SET is_paid = TRUE
			  WHERE uid = $1 AND provider_payment_id = $2 AND NOT is_paid
			  RETURNING ` + listingColumns
	l, err := scanListing(s.DB.QueryRowContext(ctx, query, uid, paymentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrConflict)
	}
	if err != nil {
		return nil, wrap(op, err)
	}
	return l, nil
}
