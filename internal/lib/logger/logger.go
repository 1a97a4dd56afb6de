// Package logger настраивает slog под окружение запуска.
package logger

import (
	"io"
	"log/slog"

	"github.com/magabrotheeeer/membership-service/internal/config"
)

// Setup возвращает текстовый логгер с уровнем debug для local
// и JSON-логгер для dev и prod.
func Setup(env string, w io.Writer) *slog.Logger {
	switch env {
	case config.EnvDev:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case config.EnvProd:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
