package repository

import (
	"context"

	"github.com/magabrotheeeer/direct-tree/internal/models"
)

const reviewColumns = `uid, business_uid, account_uid, customer_name, rating, comment,
	is_anonymous, is_approved, created_at`

func scanReview(row scanner) (*models.Review, error) {
	r := &models.Review{}
	if err := row.Scan(&r.UID, &r.BusinessUID, &r.AccountUID, &r.CustomerName, &r.Rating,
		&r.Comment, &r.IsAnonymous, &r.IsApproved, &r.CreatedAt); err != nil {
		return nil, err
	}
	return r, nil
}

// CreateReview сохраняет отзыв.
func (s *Storage) CreateReview(ctx context.Context, r *models.Review) error {
	const op = "storage.CreateReview"
	query := `INSERT INTO reviews (uid, business_uid, account_uid, customer_name, rating, comment,
			      is_anonymous, is_approved)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  RETURNING created_at`
	if err := s.DB.QueryRowContext(ctx, query,
		r.UID, r.BusinessUID, r.AccountUID, r.CustomerName, r.Rating, r.Comment,
		r.IsAnonymous, r.IsApproved).Scan(&r.CreatedAt); err != nil {
		return wrap(op, err)
	}
	return nil
}

// ListReviews возвращает отзывы бизнеса, новые первыми.
func (s *Storage) ListReviews(ctx context.Context, businessUID string, approvedOnly bool, skip, limit int) ([]*models.Review, error) {
	const op = "storage.ListReviews"
	query := `SELECT ` + reviewColumns + `
			  FROM reviews
			  WHERE business_uid = $1 AND (NOT $2 OR is_approved)
			  ORDER BY created_at DESC
			  LIMIT $3 OFFSET $4`
	return s.queryReviews(ctx, op, query, businessUID, approvedOnly, limit, skip)
}

// ListPendingReviews возвращает отзывы, ожидающие модерации.
func (s *Storage) ListPendingReviews(ctx context.Context) ([]*models.Review, error) {
	const op = "storage.ListPendingReviews"
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE NOT is_approved ORDER BY created_at`
	return s.queryReviews(ctx, op, query)
}

func (s *Storage) queryReviews(ctx context.Context, op, query string, args ...any) ([]*models.Review, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	result := make([]*models.Review, 0)
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return result, nil
}

// ApproveReview одобряет отзыв и возвращает его.
func (s *Storage) ApproveReview(ctx context.Context, uid string) (*models.Review, error) {
	const op = "storage.ApproveReview"
	query := `UPDATE reviews SET is_approved = TRUE WHERE uid = $1 RETURNING ` + reviewColumns
	r, err := scanReview(s.DB.QueryRowContext(ctx, query, uid))
	if err != nil {
		return nil, wrap(op, err)
	}
	return r, nil
}

// ApprovedRatings возвращает оценки всех одобренных отзывов бизнеса.
func (s *Storage) ApprovedRatings(ctx context.Context, businessUID string) ([]int, error) {
	const op = "storage.ApprovedRatings"
	rows, err := s.DB.QueryContext(ctx,
		`SELECT rating FROM reviews WHERE business_uid = $1 AND is_approved`, businessUID)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	var ratings []int
	for rows.Next() {
		var r int
		if err := rows.Scan(&r); err != nil {
			return nil, wrap(op, err)
		}
		ratings = append(ratings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return ratings, nil
}
