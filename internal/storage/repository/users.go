package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/magabrotheeeer/membership-service/internal/models"
)

// Имена ограничений уникальности, по которым сервисы определяют поле конфликта.
const (
	ConstraintUserEmail   = "ux_users_email"
	ConstraintPhoneNumber = "user_phone_numbers_phone_number_key"
)

const userColumns = `id, first_name, middle_name, last_name, email, password_hash, dob, address,
	status, current_plan_start, current_plan_end, membership_plan_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u                   models.User
		middle, last, addr  sql.NullString
		dob, planStart, end sql.NullTime
		planID              sql.NullInt64
	)
	if err := row.Scan(&u.ID, &u.FirstName, &middle, &last, &u.Email, &u.PasswordHash, &dob, &addr,
		&u.Status, &planStart, &end, &planID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.MiddleName = stringPtr(middle)
	u.LastName = stringPtr(last)
	u.Address = stringPtr(addr)
	u.DOB = timePtr(dob)
	u.CurrentPlanStart = timePtr(planStart)
	u.CurrentPlanEnd = timePtr(end)
	u.MembershipPlanID = int64Ptr(planID)
	return &u, nil
}

// CreateUser сохраняет пользователя вместе с телефонами в одной транзакции.
func (s *Storage) CreateUser(ctx context.Context, nu models.NewUser) (*models.User, error) {
	const op = "storage.CreateUser"

	var user *models.User
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var id int64
		status := nu.Status
		if status == "" {
			status = models.UserStatusActive
		}
		err := tx.QueryRowContext(ctx, `
			INSERT INTO users (first_name, middle_name, last_name, email, password_hash, dob, address, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`,
			nu.FirstName, nullString(nu.MiddleName), nullString(nu.LastName), strings.ToLower(nu.Email),
			nu.PasswordHash, nu.DOB, nullString(nu.Address), status,
		).Scan(&id)
		if err != nil {
			return mapError(err)
		}

		for _, p := range nu.PhoneNumbers {
			if err = insertPhone(ctx, tx, id, p.CountryCode, p.PhoneNumber); err != nil {
				return err
			}
		}

		user, err = getUser(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// GetUser возвращает пользователя с телефонами.
func (s *Storage) GetUser(ctx context.Context, id int64) (*models.User, error) {
	const op = "storage.GetUser"
	u, err := getUser(ctx, s.DB, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByEmail ищет пользователя по email без учёта регистра.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	phones, err := loadPhones(ctx, s.DB, []int64{u.ID})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	u.PhoneNumbers = phones[u.ID]
	return u, nil
}

// ListUsers возвращает всех пользователей с телефонами, новые первыми.
func (s *Storage) ListUsers(ctx context.Context) ([]*models.User, error) {
	const op = "storage.ListUsers"
	users, err := s.queryUsers(ctx, `SELECT `+userColumns+` FROM users ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

// EmailTaken сообщает, занят ли email другим пользователем.
func (s *Storage) EmailTaken(ctx context.Context, email string, exceptUserID int64) (bool, error) {
	const op = "storage.EmailTaken"
	var exists bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1) AND id <> $2)`,
		email, exceptUserID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// PhoneTaken сообщает, занят ли номер. Номер уникален во всей системе,
// код страны не учитывается. Телефон exceptPhoneID не проверяется.
func (s *Storage) PhoneTaken(ctx context.Context, number string, exceptPhoneID int64) (bool, error) {
	const op = "storage.PhoneTaken"
	var exists bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_phone_numbers WHERE phone_number = $1 AND id <> $2)`,
		number, exceptPhoneID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// UpdateUser применяет частичное обновление профиля и операции над телефонами атомарно.
func (s *Storage) UpdateUser(ctx context.Context, id int64, patch models.UserPatch, phones []models.PhoneChange) (*models.User, error) {
	const op = "storage.UpdateUser"

	var user *models.User
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		set, args := userPatchSet(patch)
		args = append(args, id)
		res, err := tx.ExecContext(ctx,
			`UPDATE users SET `+strings.Join(set, ", ")+` WHERE id = $`+fmt.Sprint(len(args)), args...)
		if err != nil {
			return mapError(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}

		for _, ch := range phones {
			if err = applyPhoneChange(ctx, tx, id, ch); err != nil {
				return err
			}
		}

		user, err = getUser(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// userPatchSet строит список присваиваний SET; updated_at обновляется всегда.
func userPatchSet(p models.UserPatch) ([]string, []any) {
	set := []string{"updated_at = NOW()"}
	var args []any
	add := func(column string, f bool, null bool, v any) {
		if !f {
			return
		}
		if null {
			v = nil
		}
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	add("first_name", p.FirstName.Set, p.FirstName.Null, p.FirstName.Value)
	add("middle_name", p.MiddleName.Set, p.MiddleName.Null, p.MiddleName.Value)
	add("last_name", p.LastName.Set, p.LastName.Null, p.LastName.Value)
	add("email", p.Email.Set, p.Email.Null, strings.ToLower(p.Email.Value))
	add("password_hash", p.PasswordHash.Set, p.PasswordHash.Null, p.PasswordHash.Value)
	add("dob", p.DOB.Set, p.DOB.Null, p.DOB.Value)
	add("address", p.Address.Set, p.Address.Null, p.Address.Value)
	add("status", p.Status.Set, p.Status.Null, p.Status.Value)
	return set, args
}

func applyPhoneChange(ctx context.Context, tx *sql.Tx, userID int64, ch models.PhoneChange) error {
	switch ch.Op {
	case models.PhoneOpAdd:
		return insertPhone(ctx, tx, userID, ch.CountryCode, ch.PhoneNumber)
	case models.PhoneOpUpdate:
		res, err := tx.ExecContext(ctx, `
			UPDATE user_phone_numbers
			SET country_code = COALESCE(NULLIF($1, ''), country_code), phone_number = $2
			WHERE id = $3 AND user_id = $4`,
			ch.CountryCode, ch.PhoneNumber, ch.ID, userID)
		if err != nil {
			return mapError(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("phone %d: %w", ch.ID, ErrNotFound)
		}
		return nil
	case models.PhoneOpRemove:
		_, err := tx.ExecContext(ctx,
			`DELETE FROM user_phone_numbers WHERE id = $1 AND user_id = $2`, ch.ID, userID)
		return mapError(err)
	default:
		return fmt.Errorf("unknown phone operation %q", ch.Op)
	}
}

func insertPhone(ctx context.Context, q queryer, userID int64, countryCode, number string) error {
	if countryCode == "" {
		countryCode = models.DefaultCountryCode
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO user_phone_numbers (user_id, country_code, phone_number) VALUES ($1, $2, $3)`,
		userID, countryCode, number)
	return mapError(err)
}

// DeleteUser удаляет пользователя; телефоны, платежи и QR-карточки удаляются каскадно.
func (s *Storage) DeleteUser(ctx context.Context, id int64) error {
	const op = "storage.DeleteUser"
	res, err := s.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// DeleteUsers удаляет пользователей пачкой и возвращает число удалённых.
func (s *Storage) DeleteUsers(ctx context.Context, ids []int64) (int64, error) {
	const op = "storage.DeleteUsers"
	res, err := s.DB.ExecContext(ctx, `DELETE FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, mapError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// FindUsersExpiringBetween возвращает активных пользователей, чьё членство заканчивается в [from, to].
func (s *Storage) FindUsersExpiringBetween(ctx context.Context, from, to time.Time) ([]*models.User, error) {
	const op = "storage.FindUsersExpiringBetween"
	users, err := s.queryUsers(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE status = 'active' AND current_plan_end BETWEEN $1 AND $2
		ORDER BY current_plan_end`, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

func (s *Storage) queryUsers(ctx context.Context, query string, args ...any) ([]*models.User, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var (
		users []*models.User
		ids   []int64
	)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
		ids = append(ids, u.ID)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return users, nil
	}

	phones, err := loadPhones(ctx, s.DB, ids)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		u.PhoneNumbers = phones[u.ID]
	}
	return users, nil
}

func getUser(ctx context.Context, q queryer, id int64) (*models.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err)
	}
	phones, err := loadPhones(ctx, q, []int64{id})
	if err != nil {
		return nil, err
	}
	u.PhoneNumbers = phones[id]
	return u, nil
}

func loadPhones(ctx context.Context, q queryer, userIDs []int64) (map[int64][]models.PhoneNumber, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, country_code, phone_number
		FROM user_phone_numbers
		WHERE user_id = ANY($1)
		ORDER BY id`, userIDs)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make(map[int64][]models.PhoneNumber, len(userIDs))
	for rows.Next() {
		var p models.PhoneNumber
		if err := rows.Scan(&p.ID, &p.UserID, &p.CountryCode, &p.PhoneNumber); err != nil {
			return nil, err
		}
		result[p.UserID] = append(result[p.UserID], p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, id := range userIDs {
		if result[id] == nil {
			result[id] = []models.PhoneNumber{}
		}
	}
	return result, nil
}
