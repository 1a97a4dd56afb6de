package models

import "time"

// PaymentReceipt - сообщение об успешной оплате для воркера рассылки.
type PaymentReceipt struct {
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	PlanName  string    `json:"plan_name"`
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	OrderID   string    `json:"order_id"`
	PlanStart time.Time `json:"plan_start"`
	PlanEnd   time.Time `json:"plan_end"`
}

// MembershipExpiring - напоминание об окончании членства.
type MembershipExpiring struct {
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	PlanEnd   time.Time `json:"plan_end"`
}
