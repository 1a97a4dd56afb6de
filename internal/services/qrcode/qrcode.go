// Package qrcode реализует шлюз доступа по QR: решает, может ли пользователь
// иметь действующую QR-карточку, выпускает её и управляет блокировкой администратором.
package qrcode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/membership-service/internal/lib/apperr"
	"github.com/magabrotheeeer/membership-service/internal/lib/sl"
	"github.com/magabrotheeeer/membership-service/internal/lib/vcard"
	"github.com/magabrotheeeer/membership-service/internal/metrics"
	"github.com/magabrotheeeer/membership-service/internal/models"
	"github.com/magabrotheeeer/membership-service/internal/storage/repository"
)

// Причины блокировки в порядке приоритета.
const (
	ReasonAccountNotActive = "account not active"
	ReasonNoActivePlan     = "no active plan"
	ReasonDisabledByAdmin  = "disabled by administrator"
)

// Repository определяет методы хранилища для шлюза.
type Repository interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetActivePayment(ctx context.Context, userID int64, at time.Time) (*models.Payment, error)
	GetLatestQRCode(ctx context.Context, userID int64) (*models.QRCode, error)
	GetActiveQRCode(ctx context.Context, userID int64) (*models.QRCode, error)
	InsertActiveQRCode(ctx context.Context, userID int64, data, vcard string) (*models.QRCode, error)
	DeleteQRCodesExcept(ctx context.Context, userID, keepID int64) (int64, error)
	DeactivateQRCodes(ctx context.Context, userID int64) (int64, error)
	SetQRDisabledByAdmin(ctx context.Context, userID int64, disabled bool) ([]*models.QRCode, error)
}

// Renderer превращает текст карточки в изображение QR.
type Renderer interface {
	DataURL(content string) (string, error)
}

// CardOptions - постоянные поля карточки.
type CardOptions struct {
	Note         string
	Organization string
	Title        string
	Website      string
}

// Decision - результат проверки доступа.
// Allowed = true означает, что блокирующих причин нет; Credential может быть nil,
// если карточка ещё не выпущена.
type Decision struct {
	Allowed    bool           `json:"allowed"`
	Reason     string         `json:"reason,omitempty"`
	Credential *models.QRCode `json:"qr_code,omitempty"`
}

// Live сообщает, есть ли у пользователя действующая карточка.
func (d Decision) Live() bool {
	return d.Allowed && d.Credential != nil
}

func blocked(reason string) *Decision {
	return &Decision{Reason: reason}
}

// Service реализует шлюз доступа по QR.
type Service struct {
	repo     Repository
	renderer Renderer
	card     CardOptions
	now      func() time.Time
	log      *slog.Logger
}

// New создаёт сервис.
func New(repo Repository, renderer Renderer, card CardOptions, log *slog.Logger) *Service {
	if card.Note == "" {
		card.Note = vcard.DefaultNote
	}
	return &Service{
		repo:     repo,
		renderer: renderer,
		card:     card,
		now:      time.Now,
		log:      log,
	}
}

// Evaluate проверяет доступ пользователя. Если ни одно оплаченное окно не содержит
// текущий момент, все карточки пользователя деактивируются.
func (s *Service) Evaluate(ctx context.Context, userID int64) (*Decision, error) {
	const op = "qrcode.Evaluate"
	d, _, err := s.evaluate(ctx, op, userID)
	return d, err
}

func (s *Service) evaluate(ctx context.Context, op string, userID int64) (*Decision, *models.User, error) {
	log := s.log.With(sl.Op(op), slog.Int64("user_id", userID))

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperr.NotFound("user", "user not found")
		}
		log.Error("failed to get user", sl.Err(err))
		return nil, nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	if !user.IsActive() {
		metrics.QREvaluations.WithLabelValues(ReasonAccountNotActive).Inc()
		return blocked(ReasonAccountNotActive), user, nil
	}

	if _, err = s.repo.GetActivePayment(ctx, userID, s.now().UTC()); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Error("failed to get active payment", sl.Err(err))
			return nil, nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
		}
		n, err := s.repo.DeactivateQRCodes(ctx, userID)
		if err != nil {
			log.Error("failed to deactivate qr codes", sl.Err(err))
			return nil, nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
		}
		if n > 0 {
			log.Info("qr codes deactivated, membership lapsed", slog.Int64("count", n))
		}
		metrics.QREvaluations.WithLabelValues(ReasonNoActivePlan).Inc()
		return blocked(ReasonNoActivePlan), user, nil
	}

	latest, err := s.repo.GetLatestQRCode(ctx, userID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		metrics.QREvaluations.WithLabelValues("allowed").Inc()
		return &Decision{Allowed: true}, user, nil
	case err != nil:
		log.Error("failed to get latest qr code", sl.Err(err))
		return nil, nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	if latest.QRDisabledByAdmin {
		metrics.QREvaluations.WithLabelValues(ReasonDisabledByAdmin).Inc()
		return blocked(ReasonDisabledByAdmin), user, nil
	}

	d := &Decision{Allowed: true}
	if latest.IsActive {
		d.Credential = latest
	} else {
		active, err := s.repo.GetActiveQRCode(ctx, userID)
		switch {
		case err == nil:
			d.Credential = active
		case !errors.Is(err, repository.ErrNotFound):
			log.Error("failed to get active qr code", sl.Err(err))
			return nil, nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
		}
	}
	metrics.QREvaluations.WithLabelValues("allowed").Inc()
	return d, user, nil
}

// Issue выпускает новую карточку и делает её единственной сохранённой.
// Доступно, только если Evaluate не нашёл блокирующих причин.
func (s *Service) Issue(ctx context.Context, userID int64) (*models.QRCode, error) {
	const op = "qrcode.Issue"
	log := s.log.With(sl.Op(op), slog.Int64("user_id", userID))

	d, user, err := s.evaluate(ctx, op, userID)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		return nil, apperr.Forbidden("qr_code", d.Reason)
	}

	card := vcard.Render(s.contact(user))
	data, err := s.renderer.DataURL(card)
	if err != nil {
		log.Error("failed to render qr code", sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	qr, err := s.repo.InsertActiveQRCode(ctx, userID, data, card)
	if err != nil {
		log.Error("failed to store qr code", sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	// Старые карточки удаляются после успешной вставки; ошибка не отменяет выпуск.
	if n, err := s.repo.DeleteQRCodesExcept(ctx, userID, qr.ID); err != nil {
		log.Warn("failed to purge previous qr codes", sl.Err(err))
	} else if n > 0 {
		log.Debug("previous qr codes purged", slog.Int64("count", n))
	}

	metrics.QRCodesIssued.Inc()
	log.Info("qr code issued", slog.Int64("qr_code_id", qr.ID))
	return qr, nil
}

// AdminSetDisabled выставляет флаг блокировки на всех карточках пользователя.
// Если карточек нет, возвращается пустой список.
func (s *Service) AdminSetDisabled(ctx context.Context, userID int64, disabled bool) ([]*models.QRCode, error) {
	const op = "qrcode.AdminSetDisabled"
	log := s.log.With(sl.Op(op), slog.Int64("user_id", userID))

	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("user", "user not found")
		}
		log.Error("failed to get user", sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	codes, err := s.repo.SetQRDisabledByAdmin(ctx, userID, disabled)
	if err != nil {
		log.Error("failed to update qr codes", sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	log.Info("qr admin flag updated", slog.Bool("disabled", disabled), slog.Int("count", len(codes)))
	return codes, nil
}

// GetForUser возвращает решение для самого пользователя.
func (s *Service) GetForUser(ctx context.Context, userID int64) (*Decision, error) {
	return s.Evaluate(ctx, userID)
}

// AdminView - решение вместе с последней сохранённой карточкой, даже неактивной.
type AdminView struct {
	Decision
	Latest *models.QRCode `json:"latest_qr_code,omitempty"`
}

// GetForAdmin возвращает решение и последнюю карточку пользователя для администратора.
func (s *Service) GetForAdmin(ctx context.Context, userID int64) (*AdminView, error) {
	const op = "qrcode.GetForAdmin"

	d, err := s.Evaluate(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := &AdminView{Decision: *d}
	latest, err := s.repo.GetLatestQRCode(ctx, userID)
	switch {
	case err == nil:
		view.Latest = latest
	case !errors.Is(err, repository.ErrNotFound):
		s.log.Error("failed to get latest qr code", sl.Op(op), sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	return view, nil
}

func (s *Service) contact(u *models.User) vcard.Contact {
	c := vcard.Contact{
		FirstName:    u.FirstName,
		MiddleName:   deref(u.MiddleName),
		LastName:     deref(u.LastName),
		Email:        u.Email,
		Birthday:     u.DOB,
		Address:      deref(u.Address),
		Organization: s.card.Organization,
		Title:        s.card.Title,
		Website:      s.card.Website,
		Note:         s.card.Note,
		Revision:     s.now().UTC(),
	}
	for _, p := range u.PhoneNumbers {
		c.Phones = append(c.Phones, vcard.Phone{CountryCode: p.CountryCode, Number: p.PhoneNumber})
	}
	return c
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
