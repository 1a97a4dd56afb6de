package models

import "time"

// QRCode - сохранённая QR-карточка пользователя.
// У пользователя может быть не более одной записи с IsActive = true.
type QRCode struct {
	ID                int64     `json:"id"`
	UserID            int64     `json:"user_id"`
	QRCodeData        string    `json:"qr_code_data"`
	VCard             string    `json:"vcard"`
	IsActive          bool      `json:"is_active"`
	QRDisabledByAdmin bool      `json:"qr_disabled_by_admin"`
	CreatedAt         time.Time `json:"created_at"`
}
