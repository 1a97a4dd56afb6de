// Package apperr описывает таксономию ошибок бизнес-уровня.
//
// Сервисы возвращают *Error с видом (Kind), путём поля (Path) и сообщением для клиента.
// HTTP-слой по виду ошибки выбирает код ответа, а внутренние детали (Err) никогда
// не попадают в ответ.
package apperr

import (
	"errors"
	"fmt"
)

// Kind - вид ошибки.
type Kind int

const (
	// KindInternal - непредвиденная ошибка.
	KindInternal Kind = iota
	// KindValidation - некорректные или отсутствующие входные данные.
	KindValidation
	// KindConflict - нарушение уникальности (email, телефон, тариф).
	KindConflict
	// KindNotFound - сущность не найдена.
	KindNotFound
	// KindAuth - отсутствующие, неверные или просроченные учётные данные.
	KindAuth
	// KindForbidden - аутентифицирован, но нет прав.
	KindForbidden
	// KindSignatureMismatch - не пройдена проверка подписи платёжного шлюза.
	KindSignatureMismatch
	// KindDependency - отказ внешней зависимости.
	KindDependency
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindAuth:
		return "auth"
	case KindForbidden:
		return "forbidden"
	case KindSignatureMismatch:
		return "signature_mismatch"
	case KindDependency:
		return "dependency"
	default:
		return "internal"
	}
}

// Error - ошибка бизнес-уровня.
type Error struct {
	Kind    Kind
	Path    string // поле или ресурс, к которому относится ошибка
	Message string // сообщение для клиента
	Err     error  // исходная ошибка, только для логов
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation создаёт ошибку валидации поля path.
func Validation(path, msg string) *Error {
	return &Error{Kind: KindValidation, Path: path, Message: msg}
}

// Conflict создаёт ошибку нарушения уникальности.
func Conflict(path, msg string) *Error {
	return &Error{Kind: KindConflict, Path: path, Message: msg}
}

// NotFound создаёт ошибку отсутствующей сущности.
func NotFound(path, msg string) *Error {
	return &Error{Kind: KindNotFound, Path: path, Message: msg}
}

// Auth создаёт ошибку аутентификации.
func Auth(msg string) *Error {
	return &Error{Kind: KindAuth, Path: "auth", Message: msg}
}

// Forbidden создаёт ошибку авторизации.
func Forbidden(path, msg string) *Error {
	return &Error{Kind: KindForbidden, Path: path, Message: msg}
}

// SignatureMismatch создаёт ошибку проверки подписи.
func SignatureMismatch(msg string) *Error {
	return &Error{Kind: KindSignatureMismatch, Path: "signature", Message: msg}
}

// Dependency оборачивает отказ внешней зависимости.
func Dependency(msg string, err error) *Error {
	return &Error{Kind: KindDependency, Path: "dependency", Message: msg, Err: err}
}

// Internal оборачивает непредвиденную ошибку.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Path: "server", Message: "internal server error", Err: err}
}

// KindOf возвращает вид ошибки; любая ошибка не из этого пакета считается внутренней.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is сообщает, относится ли err к виду kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
