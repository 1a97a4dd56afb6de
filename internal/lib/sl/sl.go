// Package sl содержит вспомогательные функции для работы с логгером slog.
// Основная цель - единообразно формировать структурированные поля лога
// для ошибок и имён операций.
package sl

import "log/slog"

// Err возвращает slog.Attr с ключом "error" и текстом ошибки.
// Для nil возвращается пустая строка, чтобы логирование никогда не паниковало.
//
// Пример:
//
//	log.Error("failed to confirm payment", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Op возвращает атрибут с именем операции, используется в log.With.
func Op(op string) slog.Attr {
	return slog.String("op", op)
}
