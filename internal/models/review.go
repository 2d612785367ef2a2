package models

import "time"

// Review отзыв о бизнесе. В рейтинге учитываются только одобренные отзывы.
type Review struct {
	UID          string    `json:"id"`
	BusinessUID  string    `json:"business_id"`
	AccountUID   *string   `json:"user_id,omitempty"` // nil для анонимных отзывов
	CustomerName *string   `json:"customer_name,omitempty"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	IsAnonymous  bool      `json:"is_anonymous"`
	IsApproved   bool      `json:"is_approved"`
	CreatedAt    time.Time `json:"created_at"`
}

// ReviewInput данные для создания отзыва.
type ReviewInput struct {
	BusinessUID  string  `json:"business_id" validate:"required"`
	Rating       int     `json:"rating" validate:"required,min=1,max=5"`
	Comment      string  `json:"comment" validate:"required,max=5000"`
	IsAnonymous  bool    `json:"is_anonymous"`
	CustomerName *string `json:"customer_name,omitempty" validate:"omitempty,max=100"`
}
