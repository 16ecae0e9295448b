package models

import "gorm.io/gorm"

// StripeCustomer maps a local user to the payment provider's customer id,
// created lazily on first checkout.
type StripeCustomer struct {
	gorm.Model
	UserID           uint   `json:"user_id" gorm:"uniqueIndex;not null"`
	StripeCustomerID string `json:"stripe_customer_id" gorm:"not null"`
}

// Purchase is the idempotency anchor for payment completion: the composite
// unique index makes duplicate webhook deliveries collapse into one row.
type Purchase struct {
	gorm.Model
	UserID      uint   `json:"user_id" gorm:"not null;uniqueIndex:idx_purchases_user_course"`
	CourseID    uint   `json:"course_id" gorm:"not null;uniqueIndex:idx_purchases_user_course"`
	ReferenceID string `json:"reference_id" gorm:"not null"`
}
