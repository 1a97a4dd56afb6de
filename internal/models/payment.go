package models

import "time"

// Статусы платежа.
const (
	PaymentStatusCreated  = "created"
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
	PaymentStatusFailed   = "failed"
)

// Payment - транзакция платёжного шлюза по тарифу пользователя.
// GatewayOrderID - ключ идемпотентности для подтверждения и вебхуков.
type Payment struct {
	ID               int64           `json:"id"`
	UserID           int64           `json:"user_id"`
	PlanID           int64           `json:"plan_id"`
	PlanName         string          `json:"plan_name,omitempty"`
	Amount           float64         `json:"amount"`
	Currency         string          `json:"currency"`
	PaymentGateway   string          `json:"payment_gateway"`
	PaymentMethod    *string         `json:"payment_method"`
	GatewayOrderID   string          `json:"gateway_order_id"`
	GatewayPaymentID *string         `json:"gateway_payment_id"`
	GatewaySignature *string         `json:"-"`
	Status           string          `json:"status"`
	PaidAt           *time.Time      `json:"paid_at"`
	PlanStartDate    *time.Time      `json:"plan_start_date"`
	PlanEndDate      *time.Time      `json:"plan_end_date"`
	Metadata         PaymentMetadata `json:"metadata"`
	CreatedAt        time.Time       `json:"created_at"`
}

// PaymentMetadata - снимок клиента на момент создания заказа.
type PaymentMetadata struct {
	UserAgent    string    `json:"user_agent"`
	IPAddress    string    `json:"ip_address"`
	Location     *Location `json:"location"`
	DeviceType   string    `json:"device_type"`
	Browser      string    `json:"browser"`
	CreatedBy    string    `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	DurationDays int       `json:"duration_days"`
}

// Location - результат геолокации IP-адреса.
type Location struct {
	City      string  `json:"city"`
	Region    string  `json:"region"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewPayment - данные для создания платежа в статусе created.
type NewPayment struct {
	UserID         int64
	PlanID         int64
	Amount         float64
	Currency       string
	PaymentGateway string
	GatewayOrderID string
	Metadata       PaymentMetadata
}

// PaymentConfirmation - данные шлюза при переводе платежа в paid.
type PaymentConfirmation struct {
	GatewayOrderID   string
	GatewayPaymentID string
	GatewaySignature string
	PaymentMethod    string
}

// PaymentLog - неизменяемая запись аудита о смене статуса платежа.
type PaymentLog struct {
	ID               int64     `json:"id"`
	UserPaymentID    int64     `json:"user_payment_id"`
	UserID           int64     `json:"user_id"`
	PlanID           int64     `json:"plan_id"`
	Amount           float64   `json:"amount"`
	PaymentMethod    *string   `json:"payment_method"`
	GatewayOrderID   string    `json:"gateway_order_id"`
	GatewayPaymentID *string   `json:"gateway_payment_id"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

// Window - интервал действия членства.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains сообщает, попадает ли момент t в окно.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}
