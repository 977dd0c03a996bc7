package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidmarsh/reelhaven/internal/models"
)

type fakeNotificationRepo struct {
	stored    []*models.Notification
	createErr error
}

func (r *fakeNotificationRepo) Create(ctx context.Context, notification *models.Notification) (*models.Notification, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	notification.ID = fmt.Sprintf("n-%d", len(r.stored)+1)
	notification.CreatedAt = time.Now()
	r.stored = append(r.stored, notification)
	return notification, nil
}

func (r *fakeNotificationRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Notification, error) {
	out := make([]*models.Notification, 0)
	for _, n := range r.stored {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, id, userID string) error {
	for _, n := range r.stored {
		if n.ID == id && n.UserID == userID && n.ReadAt == nil {
			now := time.Now()
			n.ReadAt = &now
			return nil
		}
	}
	return models.ErrNotFound
}

type fakeNotificationSender struct {
	sent []string
	err  error
}

func (s *fakeNotificationSender) SendNotification(ctx context.Context, email, subject, body string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, subject)
	return nil
}

func TestNotificationService_NotifyStoresAndSends(t *testing.T) {
	repo := &fakeNotificationRepo{}
	users := newFakeUserRepo()
	users.add(&models.User{ID: "u1", Email: "alice@example.com", Status: "active"})
	sender := &fakeNotificationSender{}
	svc := NewNotificationService(repo, users, sender, discardLogger())

	created, err := svc.Notify(context.Background(), "u1", "catalog", "New arrivals", "Two new titles", true)

	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	require.Len(t, repo.stored, 1)
	assert.Equal(t, []string{"New arrivals"}, sender.sent)
}

func TestNotificationService_NotifySkipsEmailWhenNotRequested(t *testing.T) {
	repo := &fakeNotificationRepo{}
	users := newFakeUserRepo()
	users.add(&models.User{ID: "u1", Email: "alice@example.com", Status: "active"})
	sender := &fakeNotificationSender{}
	svc := NewNotificationService(repo, users, sender, discardLogger())

	_, err := svc.Notify(context.Background(), "u1", "account", "Password changed", "", false)

	require.NoError(t, err)
	require.Len(t, repo.stored, 1)
	assert.Empty(t, sender.sent)
}

func TestNotificationService_SendFailureDoesNotLoseStoredRecord(t *testing.T) {
	repo := &fakeNotificationRepo{}
	users := newFakeUserRepo()
	users.add(&models.User{ID: "u1", Email: "alice@example.com", Status: "active"})
	sender := &fakeNotificationSender{err: errors.New("ses unavailable")}
	svc := NewNotificationService(repo, users, sender, discardLogger())

	created, err := svc.Notify(context.Background(), "u1", "catalog", "New arrivals", "body", true)

	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	require.Len(t, repo.stored, 1)
}

func TestNotificationService_UnknownUserStillStores(t *testing.T) {
	repo := &fakeNotificationRepo{}
	sender := &fakeNotificationSender{}
	svc := NewNotificationService(repo, newFakeUserRepo(), sender, discardLogger())

	_, err := svc.Notify(context.Background(), "ghost", "catalog", "subject", "body", true)

	require.NoError(t, err)
	require.Len(t, repo.stored, 1)
	assert.Empty(t, sender.sent)
}

func TestNotificationService_StoreFailureSurfaces(t *testing.T) {
	repo := &fakeNotificationRepo{createErr: errors.New("insert failed")}
	svc := NewNotificationService(repo, newFakeUserRepo(), &fakeNotificationSender{}, discardLogger())

	_, err := svc.Notify(context.Background(), "u1", "catalog", "subject", "body", false)
	assert.ErrorIs(t, err, models.ErrInternalServer)
}

func TestNotificationService_MarkRead(t *testing.T) {
	repo := &fakeNotificationRepo{}
	svc := NewNotificationService(repo, newFakeUserRepo(), &fakeNotificationSender{}, discardLogger())

	created, err := svc.Notify(context.Background(), "u1", "catalog", "subject", "body", false)
	require.NoError(t, err)

	require.NoError(t, svc.MarkRead(context.Background(), created.ID, "u1"))
	assert.ErrorIs(t, svc.MarkRead(context.Background(), created.ID, "u1"), models.ErrNotFound)
}
