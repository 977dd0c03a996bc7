package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/davidmarsh/reelhaven/internal/models"
)

// NotificationRepository defines the notification store collaborator
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) (*models.Notification, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
}

// NotificationSender delivers a notification over email
type NotificationSender interface {
	SendNotification(ctx context.Context, email, subject, body string) error
}

// NotificationService persists notifications and optionally mirrors them to
// the user's inbox
type NotificationService struct {
	repo   NotificationRepository
	users  UserRepository
	sender NotificationSender
	logger *slog.Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	repo NotificationRepository,
	users UserRepository,
	sender NotificationSender,
	logger *slog.Logger,
) *NotificationService {
	return &NotificationService{
		repo:   repo,
		users:  users,
		sender: sender,
		logger: logger,
	}
}

// Notify stores a notification for the user. Email delivery is best effort;
// a send failure never loses the stored record.
func (s *NotificationService) Notify(ctx context.Context, userID, kind, subject, body string, sendEmail bool) (*models.Notification, error) {
	notification, err := s.repo.Create(ctx, &models.Notification{
		UserID:  userID,
		Kind:    kind,
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		s.logger.Error("failed to create notification", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if sendEmail && s.sender != nil {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			s.logger.Warn("notification stored but user lookup failed",
				slog.String("notification_id", notification.ID),
				slog.Any("error", err))
			return notification, nil
		}

		if err := s.sender.SendNotification(ctx, user.Email, subject, body); err != nil {
			s.logger.Warn("notification stored but email delivery failed",
				slog.String("notification_id", notification.ID),
				slog.Any("error", err))
		}
	}

	return notification, nil
}

func (s *NotificationService) List(ctx context.Context, userID string, limit, offset int) ([]*models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	if offset < 0 {
		offset = 0
	}

	notifications, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		s.logger.Error("failed to list notifications", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return notifications, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to mark notification read", slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}
