package models

// DefaultCountryCode подставляется, если код страны не передан.
const DefaultCountryCode = "+91"

// PhoneNumber - номер телефона пользователя. Номер уникален во всей системе.
type PhoneNumber struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"-"`
	CountryCode string `json:"country_code"`
	PhoneNumber string `json:"phone_number"`
}

// Операции над телефонами при обновлении профиля.
const (
	PhoneOpAdd    = "add"
	PhoneOpUpdate = "update"
	PhoneOpRemove = "remove"
)

// PhoneChange - одна операция над телефоном в запросе на обновление.
type PhoneChange struct {
	Op          string
	ID          int64
	CountryCode string
	PhoneNumber string
}
