package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/membership-service/internal/models"
)

const qrColumns = `id, user_id, qr_code_data, vcard, is_active, qr_disabled_by_admin, created_at`

func scanQRCode(row rowScanner) (*models.QRCode, error) {
	var q models.QRCode
	if err := row.Scan(&q.ID, &q.UserID, &q.QRCodeData, &q.VCard, &q.IsActive,
		&q.QRDisabledByAdmin, &q.CreatedAt); err != nil {
		return nil, err
	}
	return &q, nil
}

// GetLatestQRCode возвращает последнюю по времени карточку пользователя, активную или нет.
// По ней определяется флаг блокировки администратором.
func (s *Storage) GetLatestQRCode(ctx context.Context, userID int64) (*models.QRCode, error) {
	const op = "storage.GetLatestQRCode"
	q, err := scanQRCode(s.DB.QueryRowContext(ctx, `
		SELECT `+qrColumns+` FROM qr_codes
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, userID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return q, nil
}

// GetActiveQRCode возвращает активную карточку пользователя.
func (s *Storage) GetActiveQRCode(ctx context.Context, userID int64) (*models.QRCode, error) {
	const op = "storage.GetActiveQRCode"
	q, err := scanQRCode(s.DB.QueryRowContext(ctx,
		`SELECT `+qrColumns+` FROM qr_codes WHERE user_id = $1 AND is_active`, userID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return q, nil
}

// InsertActiveQRCode делает новую карточку единственной активной: в одной транзакции
// снимает флаг is_active со старых и вставляет новую. Частичный уникальный индекс
// не даёт двум активным карточкам существовать одновременно.
func (s *Storage) InsertActiveQRCode(ctx context.Context, userID int64, data, vcard string) (*models.QRCode, error) {
	const op = "storage.InsertActiveQRCode"

	var qr *models.QRCode
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE qr_codes SET is_active = FALSE WHERE user_id = $1 AND is_active`, userID); err != nil {
			return err
		}
		var err error
		qr, err = scanQRCode(tx.QueryRowContext(ctx, `
			INSERT INTO qr_codes (user_id, qr_code_data, vcard, is_active)
			VALUES ($1, $2, $3, TRUE)
			RETURNING `+qrColumns, userID, data, vcard))
		return mapError(err)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return qr, nil
}

// DeleteQRCodesExcept удаляет все карточки пользователя, кроме keepID.
func (s *Storage) DeleteQRCodesExcept(ctx context.Context, userID, keepID int64) (int64, error) {
	const op = "storage.DeleteQRCodesExcept"
	res, err := s.DB.ExecContext(ctx, `DELETE FROM qr_codes WHERE user_id = $1 AND id <> $2`, userID, keepID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// DeactivateQRCodes снимает флаг is_active со всех карточек пользователя.
func (s *Storage) DeactivateQRCodes(ctx context.Context, userID int64) (int64, error) {
	const op = "storage.DeactivateQRCodes"
	res, err := s.DB.ExecContext(ctx,
		`UPDATE qr_codes SET is_active = FALSE WHERE user_id = $1 AND is_active`, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// DeactivateLapsedQRCodes снимает is_active с карточек пользователей,
// у которых нет оплаченного окна, содержащего момент at.
func (s *Storage) DeactivateLapsedQRCodes(ctx context.Context, at time.Time) (int64, error) {
	const op = "storage.DeactivateLapsedQRCodes"
	res, err := s.DB.ExecContext(ctx, `
		UPDATE qr_codes q
		SET is_active = FALSE
		WHERE q.is_active
		  AND NOT EXISTS (
		      SELECT 1 FROM user_payments p
		      WHERE p.user_id = q.user_id
		        AND p.status = 'paid'
		        AND p.plan_start_date <= $1
		        AND p.plan_end_date >= $1
		  )`, at)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// SetQRDisabledByAdmin выставляет флаг блокировки на всех карточках пользователя
// и возвращает изменённые записи. Пустой результат не является ошибкой.
func (s *Storage) SetQRDisabledByAdmin(ctx context.Context, userID int64, disabled bool) ([]*models.QRCode, error) {
	const op = "storage.SetQRDisabledByAdmin"
	rows, err := s.DB.QueryContext(ctx, `
		UPDATE qr_codes SET qr_disabled_by_admin = $2
		WHERE user_id = $1
		RETURNING `+qrColumns, userID, disabled)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	codes := []*models.QRCode{}
	for rows.Next() {
		q, err := scanQRCode(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		codes = append(codes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return codes, nil
}
