package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/garyjia/permits-on-the-go/internal/application/port"
	"github.com/garyjia/permits-on-the-go/internal/domain/entity"
	"github.com/garyjia/permits-on-the-go/internal/domain/permit"
)

// NotificationService formats permit events for the team channel
type NotificationService interface {
	NotifyStatusChange(ctx context.Context, p *entity.Permit, from permit.Status, actor string) error
	NotifyExpiryReminder(ctx context.Context, p *entity.Permit) error
}

type notificationServiceImpl struct {
	propertyRepo port.PropertyRepository
	notifier     port.Notifier
	logger       Logger
	now          func() time.Time
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	propertyRepo port.PropertyRepository,
	notifier port.Notifier,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		propertyRepo: propertyRepo,
		notifier:     notifier,
		logger:       logger,
		now:          time.Now,
	}
}

// NotifyStatusChange announces a status transition
func (s *notificationServiceImpl) NotifyStatusChange(ctx context.Context, p *entity.Permit, from permit.Status, actor string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Permit #%d %q%s moved %s → %s", p.ID, p.Title, s.locationSuffix(ctx, p), from, p.Status)
	if actor != "" {
		fmt.Fprintf(&b, " by %s", actor)
	}

	if next := permit.AllowedNextStatuses(p.Status); len(next) > 0 {
		names := make([]string, len(next))
		for i, st := range next {
			names[i] = st.String()
		}
		fmt.Fprintf(&b, "\nNext: %s", strings.Join(names, ", "))
	}
	if p.Status == permit.StatusPermitIssued && p.ExpiresAt != nil {
		fmt.Fprintf(&b, "\nValid until %s", p.ExpiresAt.Format("2006-01-02"))
	}

	return s.send(ctx, p.ID, b.String())
}

// NotifyExpiryReminder warns that an issued permit is about to lapse
func (s *notificationServiceImpl) NotifyExpiryReminder(ctx context.Context, p *entity.Permit) error {
	if p.ExpiresAt == nil {
		return fmt.Errorf("%w: permit %d has no expiry date", ErrValidation, p.ID)
	}

	days := int(math.Ceil(p.ExpiresAt.Sub(s.now()).Hours() / 24))
	var when string
	switch {
	case days < 0:
		when = fmt.Sprintf("expired %d day(s) ago", -days)
	case days == 0:
		when = "expires today"
	default:
		when = fmt.Sprintf("expires in %d day(s)", days)
	}

	text := fmt.Sprintf("Reminder: permit #%d %q%s %s (%s). Current status: %s",
		p.ID, p.Title, s.locationSuffix(ctx, p), when, p.ExpiresAt.Format("2006-01-02"), p.Status)
	return s.send(ctx, p.ID, text)
}

func (s *notificationServiceImpl) send(ctx context.Context, permitID int64, text string) error {
	if err := s.notifier.Notify(ctx, text); err != nil {
		s.logger.Error("Failed to deliver notification", "error", err, "permit_id", permitID)
		return fmt.Errorf("notify: %w", err)
	}

	s.logger.Info("Notification sent", "permit_id", permitID, "message_length", len(text))
	return nil
}

func (s *notificationServiceImpl) locationSuffix(ctx context.Context, p *entity.Permit) string {
	property, err := s.propertyRepo.GetByID(ctx, p.PropertyID)
	if err != nil || property == nil {
		return ""
	}
	return " at " + property.Address
}

// NoopNotifier discards messages. It stands in when no team channel is
// configured.
type NoopNotifier struct{}

// Notify does nothing
func (NoopNotifier) Notify(ctx context.Context, text string) error {
	return nil
}

var _ port.Notifier = NoopNotifier{}
