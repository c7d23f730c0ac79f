package collab

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/lu123321/counseling-app/internal/apperr"
	"github.com/lu123321/counseling-app/internal/model"
)

// Directory looks up counseling clients for the calendar engine. The
// client management screens own the records; the engine only validates
// links and reads display names.
type Directory struct {
	db *gorm.DB
}

// NewDirectory creates a GORM-backed client directory.
func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

// GetClient returns the client with the given id.
func (d *Directory) GetClient(ctx context.Context, id int64) (*model.Client, error) {
	var client model.Client
	err := d.db.WithContext(ctx).First(&client, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperr.NotFoundError{Resource: "client", ID: id}
	}
	if err != nil {
		return nil, &apperr.StorageError{Op: "get client", Err: err}
	}
	return &client, nil
}

// Sessions is the session collaborator: it finalizes sessions when
// their linked consultation event completes and converts completed
// events into session skeletons.
type Sessions struct {
	db *gorm.DB
}

// NewSessions creates a GORM-backed session service.
func NewSessions(db *gorm.DB) *Sessions {
	return &Sessions{db: db}
}

// FinalizeSession marks a session finalized. Finalizing an already
// finalized session is a no-op.
func (s *Sessions) FinalizeSession(ctx context.Context, sessionID int64) error {
	res := s.db.WithContext(ctx).
		Model(&model.Session{}).
		Where("id = ?", sessionID).
		Update("finalized", true)
	if res.Error != nil {
		return &apperr.StorageError{Op: "finalize session", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return &apperr.NotFoundError{Resource: "session", ID: sessionID}
	}
	return nil
}

// CreateSessionFromEvent creates a session record seeded with the
// event's time, duration and client link. The event must be a
// consultation with a linked client.
func (s *Sessions) CreateSessionFromEvent(ctx context.Context, event *model.Event) (*model.Session, error) {
	if event.EventType != model.TypeConsultation || event.ClientID == nil {
		return nil, &apperr.ValidationError{Field: "scheduleType", Value: int(event.EventType), Reason: "only consultations with a linked client convert to sessions"}
	}
	session := &model.Session{
		ClientID:        *event.ClientID,
		EventID:         &event.ID,
		StartAt:         event.StartAt,
		DurationMinutes: int(event.EndAt.Sub(event.StartAt) / time.Minute),
	}
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, &apperr.StorageError{Op: "create session from event", Err: err}
	}
	return session, nil
}
