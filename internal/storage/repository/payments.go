package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/membership-service/internal/models"
)

const paymentColumns = `p.id, p.user_id, p.plan_id, COALESCE(mp.name, ''), p.amount::float8, p.currency,
	p.payment_gateway, p.payment_method, p.gateway_order_id, p.gateway_payment_id, p.gateway_signature,
	p.status, p.paid_at, p.plan_start_date, p.plan_end_date, p.metadata, p.created_at`

const paymentFrom = ` FROM user_payments p LEFT JOIN membership_plans mp ON mp.id = p.plan_id `

var (
	// ErrAlreadyPaid - платёж оплачен параллельной транзакцией.
	ErrAlreadyPaid = errors.New("payment already paid")
	// ErrNotPayable - платёж в статусе, из которого нельзя перейти в paid.
	ErrNotPayable = errors.New("payment cannot be marked paid")
)

// WindowFunc вычисляет окно членства по длительности тарифа и последней дате окончания
// среди оплаченных платежей пользователя.
type WindowFunc func(latestEnd *time.Time, durationDays int) models.Window

func scanPayment(row rowScanner) (*models.Payment, error) {
	var (
		p                  models.Payment
		method, gwPay, sig sql.NullString
		paidAt, start, end sql.NullTime
		metadata           []byte
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.PlanID, &p.PlanName, &p.Amount, &p.Currency,
		&p.PaymentGateway, &method, &p.GatewayOrderID, &gwPay, &sig,
		&p.Status, &paidAt, &start, &end, &metadata, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.PaymentMethod = stringPtr(method)
	p.GatewayPaymentID = stringPtr(gwPay)
	p.GatewaySignature = stringPtr(sig)
	p.PaidAt = timePtr(paidAt)
	p.PlanStartDate = timePtr(start)
	p.PlanEndDate = timePtr(end)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &p.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &p, nil
}

// CreatePayment сохраняет платёж в статусе created и пишет запись в журнал.
func (s *Storage) CreatePayment(ctx context.Context, np models.NewPayment) (*models.Payment, error) {
	const op = "storage.CreatePayment"

	metadata, err := json.Marshal(np.Metadata)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var payment *models.Payment
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO user_payments (user_id, plan_id, amount, currency, payment_gateway,
			                           gateway_order_id, status, metadata)
			VALUES ($1, $2, $3, $4, $5, $6, 'created', $7)
			RETURNING id`,
			np.UserID, np.PlanID, np.Amount, np.Currency, np.PaymentGateway, np.GatewayOrderID, metadata,
		).Scan(&id)
		if err != nil {
			return mapError(err)
		}

		payment, err = getPayment(ctx, tx, "p.id = $1", id)
		if err != nil {
			return err
		}
		return appendPaymentLog(ctx, tx, payment, models.PaymentStatusCreated)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return payment, nil
}

// GetPaymentByOrderID возвращает платёж по идентификатору заказа шлюза.
func (s *Storage) GetPaymentByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	const op = "storage.GetPaymentByOrderID"
	p, err := getPayment(ctx, s.DB, "p.gateway_order_id = $1", orderID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// ListPaymentsByUser возвращает платежи пользователя, новые первыми.
func (s *Storage) ListPaymentsByUser(ctx context.Context, userID int64) ([]*models.Payment, error) {
	const op = "storage.ListPaymentsByUser"
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+paymentColumns+paymentFrom+`WHERE p.user_id = $1 ORDER BY p.created_at DESC, p.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	payments := []*models.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return payments, nil
}

// GetActivePayment возвращает оплаченный платёж, окно которого содержит момент at.
// Если таких несколько, берётся окно с самой поздней датой окончания.
func (s *Storage) GetActivePayment(ctx context.Context, userID int64, at time.Time) (*models.Payment, error) {
	const op = "storage.GetActivePayment"
	p, err := getPayment(ctx, s.DB, `p.user_id = $1 AND p.status = 'paid'
		AND p.plan_start_date <= $2 AND p.plan_end_date >= $2
		ORDER BY p.plan_end_date DESC LIMIT 1`, userID, at)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// MarkPaymentPaid переводит платёж в paid и продлевает членство пользователя одной транзакцией.
//
// Строки платежа и пользователя блокируются (SELECT ... FOR UPDATE), поэтому параллельные
// подтверждения одного заказа и разных заказов одного пользователя выполняются по очереди.
// Если платёж уже оплачен, он возвращается без изменений и applied = false.
func (s *Storage) MarkPaymentPaid(ctx context.Context, c models.PaymentConfirmation, window WindowFunc) (payment *models.Payment, applied bool, err error) {
	const op = "storage.MarkPaymentPaid"

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var (
			id, userID, planID int64
			status             string
		)
		err := tx.QueryRowContext(ctx, `
			SELECT id, user_id, plan_id, status
			FROM user_payments
			WHERE gateway_order_id = $1
			FOR UPDATE`, c.GatewayOrderID,
		).Scan(&id, &userID, &planID, &status)
		if err != nil {
			return mapError(err)
		}

		switch status {
		case models.PaymentStatusPaid:
			payment, err = getPayment(ctx, tx, "p.id = $1", id)
			return err
		case models.PaymentStatusRefunded:
			return ErrNotPayable
		}

		if _, err = tx.ExecContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID); err != nil {
			return err
		}

		var duration int
		err = tx.QueryRowContext(ctx,
			`SELECT duration_in_days FROM membership_plans WHERE id = $1`, planID).Scan(&duration)
		if err != nil {
			return fmt.Errorf("plan %d: %w", planID, mapError(err))
		}

		latestEnd, err := latestPaidEnd(ctx, tx, userID)
		if err != nil {
			return err
		}
		w := window(latestEnd, duration)

		method := c.PaymentMethod
		if method == "" {
			method = "UPI"
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE user_payments
			SET gateway_payment_id = $1,
			    gateway_signature = $2,
			    payment_method = $3,
			    status = 'paid',
			    paid_at = $4,
			    plan_start_date = $5,
			    plan_end_date = $6
			WHERE id = $7 AND status <> 'paid'`,
			nullIfEmpty(c.GatewayPaymentID), nullIfEmpty(c.GatewaySignature), method, s.now(), w.Start, w.End, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrAlreadyPaid
		}

		if err = mirrorWindow(ctx, tx, userID, &w, &planID); err != nil {
			return err
		}

		payment, err = getPayment(ctx, tx, "p.id = $1", id)
		if err != nil {
			return err
		}
		applied = true
		return appendPaymentLog(ctx, tx, payment, models.PaymentStatusPaid)
	})
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return payment, applied, nil
}

// MarkPaymentFailed переводит платёж из created в failed. Для других статусов ничего не меняет
// и возвращает applied = false.
func (s *Storage) MarkPaymentFailed(ctx context.Context, orderID string) (*models.Payment, bool, error) {
	const op = "storage.MarkPaymentFailed"

	var (
		payment *models.Payment
		applied bool
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE user_payments SET status = 'failed'
			WHERE gateway_order_id = $1 AND status = 'created'`, orderID)
		if err != nil {
			return err
		}
		n, _ := res.RowsAffected()
		applied = n > 0

		payment, err = getPayment(ctx, tx, "p.gateway_order_id = $1", orderID)
		if err != nil {
			return err
		}
		if !applied {
			return nil
		}
		return appendPaymentLog(ctx, tx, payment, models.PaymentStatusFailed)
	})
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return payment, applied, nil
}

// MarkPaymentRefunded переводит платёж в refunded и пересчитывает окно пользователя
// по оставшимся оплаченным платежам. Повторный возврат ничего не меняет.
func (s *Storage) MarkPaymentRefunded(ctx context.Context, orderID, note string) (*models.Payment, bool, error) {
	const op = "storage.MarkPaymentRefunded"

	var (
		payment *models.Payment
		applied bool
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var (
			id, userID int64
			status     string
		)
		err := tx.QueryRowContext(ctx, `
			SELECT id, user_id, status FROM user_payments
			WHERE gateway_order_id = $1
			FOR UPDATE`, orderID,
		).Scan(&id, &userID, &status)
		if err != nil {
			return mapError(err)
		}
		if status == models.PaymentStatusRefunded {
			payment, err = getPayment(ctx, tx, "p.id = $1", id)
			return err
		}

		if _, err = tx.ExecContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID); err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx,
			`UPDATE user_payments SET status = 'refunded' WHERE id = $1`, id); err != nil {
			return err
		}

		if status == models.PaymentStatusPaid {
			if err = remirrorWindow(ctx, tx, userID); err != nil {
				return err
			}
		}

		payment, err = getPayment(ctx, tx, "p.id = $1", id)
		if err != nil {
			return err
		}
		applied = true
		logStatus := models.PaymentStatusRefunded
		if note != "" {
			logStatus += ": " + note
		}
		return appendPaymentLog(ctx, tx, payment, logStatus)
	})
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return payment, applied, nil
}

// AppendWebhookLog пишет в журнал запись о событии вебхука для известного заказа.
func (s *Storage) AppendWebhookLog(ctx context.Context, orderID, event string) error {
	const op = "storage.AppendWebhookLog"
	p, err := getPayment(ctx, s.DB, "p.gateway_order_id = $1", orderID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = appendPaymentLog(ctx, s.DB, p, "webhook: "+event); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdatePaymentLocation дописывает геолокацию в метаданные платежа.
func (s *Storage) UpdatePaymentLocation(ctx context.Context, paymentID int64, loc models.Location) error {
	const op = "storage.UpdatePaymentLocation"
	raw, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	res, err := s.DB.ExecContext(ctx, `
		UPDATE user_payments
		SET metadata = jsonb_set(metadata, '{location}', $1::jsonb, true)
		WHERE id = $2`, string(raw), paymentID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// ListPaymentLogs возвращает журнал платежа в порядке записи.
func (s *Storage) ListPaymentLogs(ctx context.Context, paymentID int64) ([]models.PaymentLog, error) {
	const op = "storage.ListPaymentLogs"
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, user_payment_id, user_id, plan_id, amount::float8, payment_method,
		       gateway_order_id, gateway_payment_id, status, created_at
		FROM payment_logs
		WHERE user_payment_id = $1
		ORDER BY id`, paymentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var logs []models.PaymentLog
	for rows.Next() {
		var (
			l             models.PaymentLog
			method, gwPay sql.NullString
		)
		if err := rows.Scan(&l.ID, &l.UserPaymentID, &l.UserID, &l.PlanID, &l.Amount, &method,
			&l.GatewayOrderID, &gwPay, &l.Status, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		l.PaymentMethod = stringPtr(method)
		l.GatewayPaymentID = stringPtr(gwPay)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return logs, nil
}

func getPayment(ctx context.Context, q queryer, where string, args ...any) (*models.Payment, error) {
	p, err := scanPayment(q.QueryRowContext(ctx, `SELECT `+paymentColumns+paymentFrom+`WHERE `+where, args...))
	if err != nil {
		return nil, mapError(err)
	}
	return p, nil
}

func latestPaidEnd(ctx context.Context, q queryer, userID int64) (*time.Time, error) {
	var latest sql.NullTime
	err := q.QueryRowContext(ctx, `
		SELECT MAX(plan_end_date) FROM user_payments
		WHERE user_id = $1 AND status = 'paid'`, userID).Scan(&latest)
	if err != nil {
		return nil, err
	}
	return timePtr(latest), nil
}

// mirrorWindow копирует окно и тариф на запись пользователя; nil обнуляет их.
func mirrorWindow(ctx context.Context, q queryer, userID int64, w *models.Window, planID *int64) error {
	var start, end any
	if w != nil {
		start, end = w.Start, w.End
	}
	_, err := q.ExecContext(ctx, `
		UPDATE users
		SET current_plan_start = $1, current_plan_end = $2, membership_plan_id = $3, updated_at = NOW()
		WHERE id = $4`, start, end, planID, userID)
	return err
}

// remirrorWindow восстанавливает окно пользователя по последнему оставшемуся оплаченному платежу.
func remirrorWindow(ctx context.Context, q queryer, userID int64) error {
	var (
		planID     int64
		start, end time.Time
	)
	err := q.QueryRowContext(ctx, `
		SELECT plan_id, plan_start_date, plan_end_date
		FROM user_payments
		WHERE user_id = $1 AND status = 'paid' AND plan_end_date IS NOT NULL
		ORDER BY plan_end_date DESC
		LIMIT 1`, userID).Scan(&planID, &start, &end)
	if errors.Is(err, sql.ErrNoRows) {
		return mirrorWindow(ctx, q, userID, nil, nil)
	}
	if err != nil {
		return err
	}
	return mirrorWindow(ctx, q, userID, &models.Window{Start: start, End: end}, &planID)
}

// appendPaymentLog дописывает запись в журнал аудита. Записи журнала не изменяются.
func appendPaymentLog(ctx context.Context, q queryer, p *models.Payment, status string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO payment_logs (user_payment_id, user_id, plan_id, amount, payment_method,
		                          gateway_order_id, gateway_payment_id, gateway_signature, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.UserID, p.PlanID, p.Amount, nullString(p.PaymentMethod), p.GatewayOrderID,
		nullString(p.GatewayPaymentID), nullString(p.GatewaySignature), status)
	if err != nil {
		return fmt.Errorf("append payment log: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
