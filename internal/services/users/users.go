// Package users содержит бизнес-логику учётных записей участников:
// регистрацию, вход, профиль, обновление и администрирование.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/magabrotheeeer/membership-service/internal/lib/apperr"
	"github.com/magabrotheeeer/membership-service/internal/lib/jwt"
	"github.com/magabrotheeeer/membership-service/internal/lib/password"
	"github.com/magabrotheeeer/membership-service/internal/lib/sl"
	"github.com/magabrotheeeer/membership-service/internal/models"
	"github.com/magabrotheeeer/membership-service/internal/storage/repository"
)

// Repository определяет методы хранилища для работы с пользователями.
type Repository interface {
	CreateUser(ctx context.Context, nu models.NewUser) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	EmailTaken(ctx context.Context, email string, exceptUserID int64) (bool, error)
	PhoneTaken(ctx context.Context, number string, exceptPhoneID int64) (bool, error)
	UpdateUser(ctx context.Context, id int64, patch models.UserPatch, phones []models.PhoneChange) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) error
	DeleteUsers(ctx context.Context, ids []int64) (int64, error)
	GetActivePayment(ctx context.Context, userID int64, at time.Time) (*models.Payment, error)
	GetPlan(ctx context.Context, id int64) (*models.Plan, error)
	GetActiveQRCode(ctx context.Context, userID int64) (*models.QRCode, error)
}

// Service управляет учётными записями пользователей.
type Service struct {
	repo     Repository
	jwtMaker jwt.Maker
	now      func() time.Time
	log      *slog.Logger
}

// New создаёт сервис пользователей.
func New(repo Repository, jwtMaker jwt.Maker, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		jwtMaker: jwtMaker,
		now:      time.Now,
		log:      log,
	}
}

// capability определяет, какие изменения разрешены вызывающему.
type capability int

const (
	capSelf capability = iota
	capAdmin
)

var (
	errEmailTaken    = apperr.Conflict("email", "email is already registered")
	errInvalidLogin  = apperr.Auth("invalid email or password")
	errUserNotFound  = apperr.NotFound("user", "user not found")
	errNothingToSave = apperr.Validation("body", "no fields to update")
)

// Register создаёт учётную запись участника.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Status = models.UserStatusActive
	return s.create(ctx, "users.Register", in)
}

// AdminCreate создаёт пользователя от имени администратора; статус можно задать явно.
func (s *Service) AdminCreate(ctx context.Context, in RegisterInput) (*models.User, error) {
	if in.Status == "" {
		in.Status = models.UserStatusActive
	}
	return s.create(ctx, "users.AdminCreate", in)
}

func (s *Service) create(ctx context.Context, op string, in RegisterInput) (*models.User, error) {
	log := s.log.With(sl.Op(op))

	nu, err := s.newUser(ctx, in)
	if err != nil {
		var ae *apperr.Error
		if !errors.As(err, &ae) {
			log.Error("failed to prepare user", sl.Err(err))
			return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
		}
		return nil, err
	}

	user, err := s.repo.CreateUser(ctx, nu)
	if err != nil {
		if conflict := constraintConflict(err); conflict != nil {
			return nil, conflict
		}
		log.Error("failed to create user", sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	log.Info("user created", slog.Int64("user_id", user.ID))
	return user, nil
}

func (s *Service) newUser(ctx context.Context, in RegisterInput) (models.NewUser, error) {
	var nu models.NewUser

	nu.FirstName = strings.TrimSpace(in.FirstName)
	if nu.FirstName == "" {
		return nu, apperr.Validation("first_name", "first name is required")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nu, err
	}
	nu.Email = email
	if !validStatus(in.Status) {
		return nu, apperr.Validation("status", "status must be active or blocked")
	}
	nu.Status = in.Status

	if len(in.Password) < password.MinLength {
		return nu, apperr.Validation("password", fmt.Sprintf("password must be at least %d characters", password.MinLength))
	}
	if in.DOB != nil && *in.DOB != "" {
		dob, err := parseDate(*in.DOB)
		if err != nil {
			return nu, err
		}
		nu.DOB = &dob
	}
	nu.MiddleName = trimmedPtr(in.MiddleName)
	nu.LastName = trimmedPtr(in.LastName)
	nu.Address = trimmedPtr(in.Address)

	if len(in.PhoneNumbers) == 0 {
		return nu, apperr.Validation("phone_numbers", "at least one phone number is required")
	}
	seen := make(map[string]bool, len(in.PhoneNumbers))
	for i, p := range in.PhoneNumbers {
		cc, number, err := normalizePhone(i, p)
		if err != nil {
			return nu, err
		}
		if seen[number] {
			return nu, apperr.Conflict(phonePath(i, "phone_number"), "phone number is duplicated in request")
		}
		seen[number] = true
		nu.PhoneNumbers = append(nu.PhoneNumbers, models.PhoneNumber{CountryCode: cc, PhoneNumber: number})
	}

	taken, err := s.repo.EmailTaken(ctx, nu.Email, 0)
	if err != nil {
		return nu, err
	}
	if taken {
		return nu, errEmailTaken
	}
	for i, p := range nu.PhoneNumbers {
		taken, err := s.repo.PhoneTaken(ctx, p.PhoneNumber, 0)
		if err != nil {
			return nu, err
		}
		if taken {
			return nu, apperr.Conflict(phonePath(i, "phone_number"), "phone number is already registered")
		}
	}

	nu.PasswordHash, err = password.Hash(in.Password)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) {
			return nu, apperr.Validation("password", "password is too long")
		}
		return nu, err
	}
	return nu, nil
}

// LoginResult - токен и данные вошедшего пользователя.
type LoginResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Login проверяет пароль и выпускает токен с ролью user.
func (s *Service) Login(ctx context.Context, email, rawPassword string) (*LoginResult, error) {
	const op = "users.Login"
	log := s.log.With(sl.Op(op))

	user, err := s.repo.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errInvalidLogin
		}
		log.Error("failed to get user", sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	if !password.Verify(rawPassword, user.PasswordHash) {
		return nil, errInvalidLogin
	}

	token, err := s.jwtMaker.GenerateToken(user.ID, user.Email, jwt.RoleUser)
	if err != nil {
		log.Error("failed to generate token", sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	return &LoginResult{Token: token, User: user}, nil
}

// Profile возвращает пользователя с текущим платежом, тарифом и активной QR-карточкой.
func (s *Service) Profile(ctx context.Context, userID int64) (*models.Profile, error) {
	const op = "users.Profile"
	log := s.log.With(sl.Op(op), slog.Int64("user_id", userID))

	user, err := s.getUser(ctx, op, userID)
	if err != nil {
		return nil, err
	}
	profile := &models.Profile{User: *user}

	payment, err := s.repo.GetActivePayment(ctx, userID, s.now().UTC())
	if optional(err) != nil {
		log.Error("failed to get active payment", sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	profile.ActivePayment = payment

	planID := user.MembershipPlanID
	if payment != nil {
		planID = &payment.PlanID
	}
	if planID != nil {
		plan, err := s.repo.GetPlan(ctx, *planID)
		if optional(err) != nil {
			log.Error("failed to get plan", sl.Err(err))
			return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
		}
		profile.CurrentPlan = plan
	}

	qr, err := s.repo.GetActiveQRCode(ctx, userID)
	if optional(err) != nil {
		log.Error("failed to get qr code", sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	profile.ActiveQRCode = qr
	return profile, nil
}

// UpdateSelf обновляет собственный профиль. Статус и обнуление полей недоступны.
func (s *Service) UpdateSelf(ctx context.Context, userID int64, in UpdateInput) (*models.User, error) {
	return s.applyUpdate(ctx, "users.UpdateSelf", capSelf, userID, in)
}

// AdminUpdate обновляет любой профиль, включая статус и обнуление необязательных полей.
func (s *Service) AdminUpdate(ctx context.Context, userID int64, in UpdateInput) (*models.User, error) {
	return s.applyUpdate(ctx, "users.AdminUpdate", capAdmin, userID, in)
}

func (s *Service) applyUpdate(ctx context.Context, op string, scope capability, userID int64, in UpdateInput) (*models.User, error) {
	log := s.log.With(sl.Op(op), slog.Int64("user_id", userID))

	if err := checkCapability(scope, in); err != nil {
		return nil, err
	}
	current, err := s.getUser(ctx, op, userID)
	if err != nil {
		return nil, err
	}

	patch, err := s.buildPatch(ctx, userID, in)
	if err != nil {
		return nil, s.internalOr(log, op, err)
	}
	changes, err := s.phoneChanges(ctx, current, in.PhoneNumbers)
	if err != nil {
		return nil, s.internalOr(log, op, err)
	}
	if patch.Empty() && len(changes) == 0 {
		return nil, errNothingToSave
	}

	user, err := s.repo.UpdateUser(ctx, userID, patch, changes)
	if err != nil {
		if conflict := constraintConflict(err); conflict != nil {
			return nil, conflict
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("user", "user or phone number not found")
		}
		log.Error("failed to update user", sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	log.Info("user updated", slog.Int("phone_changes", len(changes)))
	return user, nil
}

func checkCapability(scope capability, in UpdateInput) error {
	if scope == capAdmin {
		return nil
	}
	if in.Status.Set {
		return apperr.Forbidden("status", "only administrators can change account status")
	}
	// Пустая строка после нормализации тоже обнуляет поле.
	nullable := []struct {
		path  string
		field models.Field[string]
	}{
		{"middle_name", in.MiddleName},
		{"last_name", in.LastName},
		{"dob", in.DOB},
		{"address", in.Address},
	}
	for _, f := range nullable {
		if clears(f.field) {
			return apperr.Forbidden(f.path, "only administrators can clear this field")
		}
	}
	return nil
}

func clears(f models.Field[string]) bool {
	return f.Set && (f.Null || strings.TrimSpace(f.Value) == "")
}

func (s *Service) buildPatch(ctx context.Context, userID int64, in UpdateInput) (models.UserPatch, error) {
	var patch models.UserPatch

	if in.FirstName.Set {
		name := strings.TrimSpace(in.FirstName.Value)
		if in.FirstName.Null || name == "" {
			return patch, apperr.Validation("first_name", "first name cannot be empty")
		}
		patch.FirstName = models.Value(name)
	}
	patch.MiddleName = trimmedField(in.MiddleName)
	patch.LastName = trimmedField(in.LastName)
	patch.Address = trimmedField(in.Address)

	if in.Email.Set {
		if in.Email.Null {
			return patch, apperr.Validation("email", "email cannot be empty")
		}
		email, err := normalizeEmail(in.Email.Value)
		if err != nil {
			return patch, err
		}
		taken, err := s.repo.EmailTaken(ctx, email, userID)
		if err != nil {
			return patch, err
		}
		if taken {
			return patch, errEmailTaken
		}
		patch.Email = models.Value(email)
	}

	if in.Password.Set {
		if in.Password.Null || len(in.Password.Value) < password.MinLength {
			return patch, apperr.Validation("password", fmt.Sprintf("password must be at least %d characters", password.MinLength))
		}
		hash, err := password.Hash(in.Password.Value)
		if err != nil {
			if errors.Is(err, password.ErrTooLong) {
				return patch, apperr.Validation("password", "password is too long")
			}
			return patch, err
		}
		patch.PasswordHash = models.Value(hash)
	}

	if in.DOB.Set {
		if in.DOB.Null || strings.TrimSpace(in.DOB.Value) == "" {
			patch.DOB = models.Null[time.Time]()
		} else {
			dob, err := parseDate(in.DOB.Value)
			if err != nil {
				return patch, err
			}
			patch.DOB = models.Value(dob)
		}
	}

	if in.Status.Set {
		if in.Status.Null || !validStatus(in.Status.Value) {
			return patch, apperr.Validation("status", "status must be active or blocked")
		}
		patch.Status = models.Value(in.Status.Value)
	}
	return patch, nil
}

// phoneChanges проверяет операции над телефонами: изменять и удалять можно только
// свои номера, новый номер не должен быть занят, после обновления у пользователя
// остаётся хотя бы один номер. Номер удаляемой в том же запросе записи считается
// свободным. Удаления возвращаются первыми, затем изменения и добавления.
func (s *Service) phoneChanges(ctx context.Context, user *models.User, inputs []PhoneInput) ([]models.PhoneChange, error) {
	owned := make(map[int64]string, len(user.PhoneNumbers))
	for _, p := range user.PhoneNumbers {
		owned[p.ID] = p.PhoneNumber
	}

	resolved := make([]models.PhoneChange, 0, len(inputs))
	freed := make(map[string]bool)
	removed, added := 0, 0
	for i, in := range inputs {
		ch, err := resolvePhoneChange(i, in)
		if err != nil {
			return nil, err
		}
		number, ok := owned[ch.ID]
		if ch.ID != 0 && !ok {
			return nil, apperr.NotFound(phonePath(i, "id"), "phone number not found")
		}
		switch ch.Op {
		case models.PhoneOpRemove:
			freed[number] = true
			removed++
		case models.PhoneOpAdd:
			added++
		}
		resolved = append(resolved, ch)
	}
	if removed > 0 && len(owned)-removed+added < 1 {
		return nil, apperr.Validation("phone_numbers", "at least one phone number is required")
	}

	seen := make(map[string]bool, len(resolved))
	for i, ch := range resolved {
		if ch.Op == models.PhoneOpRemove {
			continue
		}
		if seen[ch.PhoneNumber] {
			return nil, apperr.Conflict(phonePath(i, "phone_number"), "phone number is duplicated in request")
		}
		seen[ch.PhoneNumber] = true
		if freed[ch.PhoneNumber] {
			continue
		}

		taken, err := s.repo.PhoneTaken(ctx, ch.PhoneNumber, ch.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperr.Conflict(phonePath(i, "phone_number"), "phone number is already registered")
		}
	}

	sort.SliceStable(resolved, func(a, b int) bool {
		return phoneOpOrder[resolved[a].Op] < phoneOpOrder[resolved[b].Op]
	})
	return resolved, nil
}

// phoneOpOrder - порядок применения операций в одной транзакции: освобождённый
// удалением номер можно сразу занять заново.
var phoneOpOrder = map[string]int{
	models.PhoneOpRemove: 0,
	models.PhoneOpUpdate: 1,
	models.PhoneOpAdd:    2,
}

// List возвращает всех пользователей.
func (s *Service) List(ctx context.Context) ([]*models.User, error) {
	const op = "users.List"
	list, err := s.repo.ListUsers(ctx)
	if err != nil {
		s.log.Error("failed to list users", sl.Op(op), sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	return list, nil
}

// Get возвращает пользователя по ID.
func (s *Service) Get(ctx context.Context, userID int64) (*models.User, error) {
	return s.getUser(ctx, "users.Get", userID)
}

// Delete удаляет пользователя вместе с телефонами, платежами и QR-карточками.
func (s *Service) Delete(ctx context.Context, userID int64) error {
	const op = "users.Delete"
	log := s.log.With(sl.Op(op), slog.Int64("user_id", userID))

	if err := s.repo.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errUserNotFound
		}
		log.Error("failed to delete user", sl.Err(err))
		return apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	log.Info("user deleted")
	return nil
}

// MassDelete удаляет пользователей по списку ID и возвращает число удалённых.
func (s *Service) MassDelete(ctx context.Context, ids []int64) (int64, error) {
	const op = "users.MassDelete"
	log := s.log.With(sl.Op(op))

	if len(ids) == 0 {
		return 0, apperr.Validation("ids", "at least one id is required")
	}
	for i, id := range ids {
		if id <= 0 {
			return 0, apperr.Validation(fmt.Sprintf("ids[%d]", i), "id must be positive")
		}
	}

	n, err := s.repo.DeleteUsers(ctx, ids)
	if err != nil {
		log.Error("failed to delete users", sl.Err(err))
		return 0, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	log.Info("users deleted", slog.Int64("count", n), slog.Int("requested", len(ids)))
	return n, nil
}

func (s *Service) getUser(ctx context.Context, op string, userID int64) (*models.User, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errUserNotFound
		}
		s.log.Error("failed to get user", sl.Op(op), sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	return user, nil
}

// internalOr пропускает ошибки apperr и превращает остальные во внутренние.
func (s *Service) internalOr(log *slog.Logger, op string, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	log.Error("unexpected error", sl.Err(err))
	return apperr.Internal(fmt.Errorf("%s: %w", op, err))
}

// constraintConflict переводит нарушение уникальности в ошибку конфликта по полю.
func constraintConflict(err error) error {
	if !errors.Is(err, repository.ErrAlreadyExists) {
		return nil
	}
	switch repository.ConstraintName(err) {
	case repository.ConstraintUserEmail:
		return errEmailTaken
	case repository.ConstraintPhoneNumber:
		return apperr.Conflict("phone_numbers", "phone number is already registered")
	default:
		return apperr.Conflict("user", "user already exists")
	}
}

func optional(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", apperr.Validation("email", "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperr.Validation("email", "email is invalid")
	}
	return email, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, apperr.Validation("dob", "date must be in YYYY-MM-DD format")
	}
	return t, nil
}

func validStatus(s string) bool {
	return s == models.UserStatusActive || s == models.UserStatusBlocked
}

func trimmedPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

// trimmedField обрезает пробелы; пустая строка становится null.
func trimmedField(f models.Field[string]) models.Field[string] {
	if !f.Set || f.Null {
		return f
	}
	v := strings.TrimSpace(f.Value)
	if v == "" {
		return models.Null[string]()
	}
	return models.Value(v)
}
