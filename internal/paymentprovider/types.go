package paymentprovider

// CreateOrderRequest тело запроса на создание заказа.
type CreateOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Order заказ в шлюзе.
type Order struct {
	ID        string `json:"id"`
	Entity    string `json:"entity"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Receipt   string `json:"receipt"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

// ErrorResponse ошибка API шлюза.
type ErrorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// WebhookEvent событие вебхука шлюза. Разбираются только поля, нужные для сверки.
type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity PaymentEntity `json:"entity"`
		} `json:"payment"`
		Order *struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"order"`
		Refund *struct {
			Entity RefundEntity `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
}

// PaymentEntity платёж в событии вебхука.
type PaymentEntity struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Method  string `json:"method"`
	Status  string `json:"status"`
}

// RefundEntity возврат в событии вебхука.
type RefundEntity struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Notes     any    `json:"notes"`
}

// OrderID возвращает идентификатор заказа из события: из платежа или из заказа.
func (e *WebhookEvent) OrderID() string {
	if e.Payload.Payment != nil && e.Payload.Payment.Entity.OrderID != "" {
		return e.Payload.Payment.Entity.OrderID
	}
	if e.Payload.Order != nil {
		return e.Payload.Order.Entity.ID
	}
	return ""
}

// PaymentID возвращает идентификатор платежа из события, если он есть.
func (e *WebhookEvent) PaymentID() string {
	if e.Payload.Payment != nil {
		return e.Payload.Payment.Entity.ID
	}
	return ""
}

// PaymentMethod возвращает способ оплаты из события, если он есть.
func (e *WebhookEvent) PaymentMethod() string {
	if e.Payload.Payment != nil {
		return e.Payload.Payment.Entity.Method
	}
	return ""
}

// RefundID возвращает идентификатор возврата из события, если он есть.
func (e *WebhookEvent) RefundID() string {
	if e.Payload.Refund != nil {
		return e.Payload.Refund.Entity.ID
	}
	return ""
}
