// Package models содержит доменные структуры сервиса членства:
// пользователей, телефоны, тарифы, платежи, QR-карточки и сообщения уведомлений.
package models

import "time"

// Статусы учётной записи.
const (
	UserStatusActive  = "active"
	UserStatusBlocked = "blocked"
)

// User представляет зарегистрированного участника.
type User struct {
	ID               int64         `json:"id"`
	FirstName        string        `json:"first_name"`
	MiddleName       *string       `json:"middle_name"`
	LastName         *string       `json:"last_name"`
	Email            string        `json:"email"`
	PasswordHash     string        `json:"-"`
	DOB              *time.Time    `json:"dob"`
	Address          *string       `json:"address"`
	Status           string        `json:"status"`
	CurrentPlanStart *time.Time    `json:"current_plan_start"`
	CurrentPlanEnd   *time.Time    `json:"current_plan_end"`
	MembershipPlanID *int64        `json:"membership_plan_id"`
	PhoneNumbers     []PhoneNumber `json:"phone_numbers"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// IsActive сообщает, активна ли учётная запись.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// NewUser - данные для создания пользователя вместе с телефонами.
type NewUser struct {
	FirstName    string
	MiddleName   *string
	LastName     *string
	Email        string
	PasswordHash string
	DOB          *time.Time
	Address      *string
	Status       string
	PhoneNumbers []PhoneNumber
}

// UserPatch - частичное обновление профиля. Непереданные поля не меняются.
type UserPatch struct {
	FirstName    Field[string]
	MiddleName   Field[string]
	LastName     Field[string]
	Email        Field[string]
	PasswordHash Field[string]
	DOB          Field[time.Time]
	Address      Field[string]
	Status       Field[string]
}

// Empty сообщает, что ни одно поле не передано.
func (p UserPatch) Empty() bool {
	return !p.FirstName.Set && !p.MiddleName.Set && !p.LastName.Set && !p.Email.Set &&
		!p.PasswordHash.Set && !p.DOB.Set && !p.Address.Set && !p.Status.Set
}

// Profile - пользователь с текущим платежом, тарифом и QR-карточкой.
type Profile struct {
	User
	ActivePayment *Payment `json:"active_payment"`
	CurrentPlan   *Plan    `json:"current_plan"`
	ActiveQRCode  *QRCode  `json:"active_qr_code"`
}
