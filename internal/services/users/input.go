package users

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/magabrotheeeer/membership-service/internal/lib/apperr"
	"github.com/magabrotheeeer/membership-service/internal/models"
)

var (
	phoneSeparators = regexp.MustCompile(`[\s\-().]`)
	phoneDigits     = regexp.MustCompile(`^\d{5,15}$`)
	countryCodeRe   = regexp.MustCompile(`^\+\d{1,4}$`)
)

// PhoneInput - телефон в запросе. Op может быть пустым, тогда операция
// выводится по старым правилам: без id добавление, id с пустым номером удаление,
// id с номером изменение.
type PhoneInput struct {
	Op          string `json:"op,omitempty"`
	ID          int64  `json:"id,omitempty"`
	CountryCode string `json:"country_code"`
	PhoneNumber string `json:"phone_number"`
}

// RegisterInput - данные регистрации или создания пользователя администратором.
type RegisterInput struct {
	FirstName    string       `json:"first_name"`
	MiddleName   *string      `json:"middle_name"`
	LastName     *string      `json:"last_name"`
	Email        string       `json:"email"`
	Password     string       `json:"password"`
	DOB          *string      `json:"dob"`
	Address      *string      `json:"address"`
	Status       string       `json:"status,omitempty"`
	PhoneNumbers []PhoneInput `json:"phone_numbers"`
}

// UpdateInput - частичное обновление профиля.
type UpdateInput struct {
	FirstName    models.Field[string] `json:"first_name"`
	MiddleName   models.Field[string] `json:"middle_name"`
	LastName     models.Field[string] `json:"last_name"`
	Email        models.Field[string] `json:"email"`
	Password     models.Field[string] `json:"password"`
	DOB          models.Field[string] `json:"dob"`
	Address      models.Field[string] `json:"address"`
	Status       models.Field[string] `json:"status"`
	PhoneNumbers []PhoneInput         `json:"phone_numbers"`
}

func phonePath(i int, field string) string {
	return fmt.Sprintf("phone_numbers[%d].%s", i, field)
}

// normalizePhone убирает разделители и проверяет формат номера и кода страны.
func normalizePhone(i int, p PhoneInput) (countryCode, number string, err error) {
	countryCode = strings.TrimSpace(p.CountryCode)
	if countryCode == "" {
		countryCode = models.DefaultCountryCode
	}
	if !countryCodeRe.MatchString(countryCode) {
		return "", "", apperr.Validation(phonePath(i, "country_code"), "country code must be + followed by 1-4 digits")
	}
	number = phoneSeparators.ReplaceAllString(p.PhoneNumber, "")
	if !phoneDigits.MatchString(number) {
		return "", "", apperr.Validation(phonePath(i, "phone_number"), "phone number must contain 5-15 digits")
	}
	return countryCode, number, nil
}

// resolvePhoneChange переводит элемент запроса в операцию над телефоном.
func resolvePhoneChange(i int, p PhoneInput) (models.PhoneChange, error) {
	op := p.Op
	if op == "" {
		switch {
		case p.ID == 0:
			op = models.PhoneOpAdd
		case strings.TrimSpace(p.PhoneNumber) == "":
			op = models.PhoneOpRemove
		default:
			op = models.PhoneOpUpdate
		}
	}

	ch := models.PhoneChange{Op: op, ID: p.ID}
	switch op {
	case models.PhoneOpAdd:
		ch.ID = 0
	case models.PhoneOpUpdate, models.PhoneOpRemove:
		if p.ID <= 0 {
			return ch, apperr.Validation(phonePath(i, "id"), "id is required for "+op)
		}
		if op == models.PhoneOpRemove {
			return ch, nil
		}
	default:
		return ch, apperr.Validation(phonePath(i, "op"), "op must be one of add, update, remove")
	}

	cc, number, err := normalizePhone(i, p)
	if err != nil {
		return ch, err
	}
	if op == models.PhoneOpUpdate && strings.TrimSpace(p.CountryCode) == "" {
		cc = ""
	}
	ch.CountryCode, ch.PhoneNumber = cc, number
	return ch, nil
}
