package store

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lu123321/counseling-app/internal/apperr"
	"github.com/lu123321/counseling-app/internal/db"
	"github.com/lu123321/counseling-app/internal/model"
	"github.com/lu123321/counseling-app/internal/recurrence"
)

// newTestDB opens a fresh in-memory sqlite database for a single test.
// The DSN is keyed by test name so parallel tests never share state.
func newTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))
	return gormDB
}

func ts(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02 15:04", value)
	require.NoError(t, err)
	return parsed
}

func TestGormStore_CreateAndGet(t *testing.T) {
	s := NewGormStore(newTestDB(t))
	ctx := context.Background()

	created, err := s.Create(ctx, EventInput{
		Title:        "张女士 咨询",
		EventType:    model.TypeConsultation,
		StartAt:      ts(t, "2024-01-20 14:30"),
		EndAt:        ts(t, "2024-01-20 15:30"),
		Location:     "咨询室A",
		RemindPolicy: model.RemindMinutes15,
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	assert.Equal(t, model.StatusPending, created.Status)
	assert.False(t, created.ReminderFired)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Title, got.Title)
	assert.Equal(t, model.TypeConsultation, got.EventType)
	assert.Equal(t, model.RemindMinutes15, got.RemindPolicy)
	assert.True(t, got.StartAt.Equal(created.StartAt))
	assert.False(t, got.Recurring())
}

func TestGormStore_CreateDefaultsReminderPolicy(t *testing.T) {
	s := NewGormStore(newTestDB(t))

	created, err := s.Create(context.Background(), EventInput{
		Title:     "写报告",
		EventType: model.TypeReportWriting,
		StartAt:   ts(t, "2024-01-22 09:00"),
		EndAt:     ts(t, "2024-01-22 11:00"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.RemindNone, created.RemindPolicy)
}

func TestGormStore_CreateRecurring(t *testing.T) {
	s := NewGormStore(newTestDB(t))
	until := ts(t, "2024-03-31 00:00")

	created, err := s.Create(context.Background(), EventInput{
		Title:     "团体督导",
		EventType: model.TypeSupervision,
		StartAt:   ts(t, "2024-01-03 19:00"),
		EndAt:     ts(t, "2024-01-03 20:30"),
		Recurrence: &recurrence.Rule{
			Frequency: recurrence.FreqWeekly,
			Weekdays:  []time.Weekday{time.Monday, time.Wednesday, time.Friday},
			Until:     &until,
		},
	})
	require.NoError(t, err)
	assert.True(t, created.Recurring())
	assert.Equal(t, "1,3,5", created.RecurWeekdays)

	rule := created.Recurrence()
	require.NotNil(t, rule)
	assert.Equal(t, recurrence.FreqWeekly, rule.Frequency)
	assert.Len(t, rule.Weekdays, 3)
	require.NotNil(t, rule.Until)
	assert.True(t, rule.Until.Equal(until))
}

func TestGormStore_CreateValidation(t *testing.T) {
	clientID := int64(7)

	testCases := []struct {
		name          string
		input         EventInput
		expectedField string
	}{
		{
			name: "missing title",
			input: EventInput{
				EventType: model.TypeOther,
				StartAt:   ts(t, "2024-01-20 14:30"),
				EndAt:     ts(t, "2024-01-20 15:30"),
			},
			expectedField: "title",
		},
		{
			name: "unknown event type",
			input: EventInput{
				Title:     "x",
				EventType: 9,
				StartAt:   ts(t, "2024-01-20 14:30"),
				EndAt:     ts(t, "2024-01-20 15:30"),
			},
			expectedField: "scheduleType",
		},
		{
			name: "end not after start",
			input: EventInput{
				Title:     "x",
				EventType: model.TypeOther,
				StartAt:   ts(t, "2024-01-20 15:30"),
				EndAt:     ts(t, "2024-01-20 15:30"),
			},
			expectedField: "endTime",
		},
		{
			name: "unknown reminder policy",
			input: EventInput{
				Title:        "x",
				EventType:    model.TypeOther,
				StartAt:      ts(t, "2024-01-20 14:30"),
				EndAt:        ts(t, "2024-01-20 15:30"),
				RemindPolicy: 8,
			},
			expectedField: "remindType",
		},
		{
			name: "weekly recurrence without weekdays",
			input: EventInput{
				Title:      "x",
				EventType:  model.TypeOther,
				StartAt:    ts(t, "2024-01-20 14:30"),
				EndAt:      ts(t, "2024-01-20 15:30"),
				Recurrence: &recurrence.Rule{Frequency: recurrence.FreqWeekly},
			},
			expectedField: "recurringDays",
		},
		{
			name: "monthly recurrence with day out of range",
			input: EventInput{
				Title:      "x",
				EventType:  model.TypeOther,
				StartAt:    ts(t, "2024-01-20 14:30"),
				EndAt:      ts(t, "2024-01-20 15:30"),
				Recurrence: &recurrence.Rule{Frequency: recurrence.FreqMonthly, MonthDay: 32},
			},
			expectedField: "recurringDayOfMonth",
		},
		{
			name: "unknown recurrence frequency",
			input: EventInput{
				Title:      "x",
				EventType:  model.TypeOther,
				StartAt:    ts(t, "2024-01-20 14:30"),
				EndAt:      ts(t, "2024-01-20 15:30"),
				Recurrence: &recurrence.Rule{Frequency: "yearly"},
			},
			expectedField: "recurringType",
		},
		{
			name: "client-facing consultation without client",
			input: EventInput{
				Title:        "初诊",
				EventType:    model.TypeConsultation,
				StartAt:      ts(t, "2024-01-20 14:30"),
				EndAt:        ts(t, "2024-01-20 15:30"),
				ClientFacing: true,
			},
			expectedField: "clientId",
		},
		{
			name: "client link on non-consultation",
			input: EventInput{
				Title:     "例会",
				EventType: model.TypeMeeting,
				StartAt:   ts(t, "2024-01-20 14:30"),
				EndAt:     ts(t, "2024-01-20 15:30"),
				ClientID:  &clientID,
			},
			expectedField: "clientId",
		},
	}

	s := NewGormStore(newTestDB(t))
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Create(context.Background(), tc.input)
			var verr *apperr.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.expectedField, verr.Field)
		})
	}
}

func TestGormStore_Update(t *testing.T) {
	s := NewGormStore(newTestDB(t))
	ctx := context.Background()

	created, err := s.Create(ctx, EventInput{
		Title:     "个案研讨",
		EventType: model.TypeMeeting,
		StartAt:   ts(t, "2024-02-01 10:00"),
		EndAt:     ts(t, "2024-02-01 11:00"),
	})
	require.NoError(t, err)

	title := "个案研讨（改期）"
	start := ts(t, "2024-02-02 10:00")
	end := ts(t, "2024-02-02 11:00")
	status := model.StatusInProgress
	updated, err := s.Update(ctx, created.ID, EventPatch{
		Title:   &title,
		StartAt: &start,
		EndAt:   &end,
		Status:  &status,
	})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.True(t, updated.StartAt.Equal(start))
	assert.Equal(t, model.StatusInProgress, updated.Status)

	// Unpatched fields keep their values.
	assert.Equal(t, model.TypeMeeting, updated.EventType)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, title, got.Title)
}

func TestGormStore_UpdateRejectsInvalidMerge(t *testing.T) {
	s := NewGormStore(newTestDB(t))
	ctx := context.Background()

	created, err := s.Create(ctx, EventInput{
		Title:     "培训",
		EventType: model.TypeTraining,
		StartAt:   ts(t, "2024-02-01 10:00"),
		EndAt:     ts(t, "2024-02-01 12:00"),
	})
	require.NoError(t, err)

	// Moving the end before the existing start must fail against the
	// merged record, not the patch alone.
	end := ts(t, "2024-02-01 09:00")
	_, err = s.Update(ctx, created.ID, EventPatch{EndAt: &end})
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "endTime", verr.Field)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.EndAt.Equal(created.EndAt))
}

func TestGormStore_UpdateClearRecurrence(t *testing.T) {
	s := NewGormStore(newTestDB(t))
	ctx := context.Background()

	created, err := s.Create(ctx, EventInput{
		Title:      "晨会",
		EventType:  model.TypeMeeting,
		StartAt:    ts(t, "2024-02-01 09:00"),
		EndAt:      ts(t, "2024-02-01 09:30"),
		Recurrence: &recurrence.Rule{Frequency: recurrence.FreqDaily},
	})
	require.NoError(t, err)
	require.True(t, created.Recurring())

	updated, err := s.Update(ctx, created.ID, EventPatch{ClearRecurrence: true})
	require.NoError(t, err)
	assert.False(t, updated.Recurring())
	assert.Nil(t, updated.Recurrence())
}

func TestGormStore_UpdateClearsClientLink(t *testing.T) {
	s := NewGormStore(newTestDB(t))
	ctx := context.Background()

	clientID := int64(7)
	created, err := s.Create(ctx, EventInput{
		Title:        "王先生 咨询",
		EventType:    model.TypeConsultation,
		StartAt:      ts(t, "2024-02-05 14:00"),
		EndAt:        ts(t, "2024-02-05 15:00"),
		ClientID:     &clientID,
		ClientFacing: true,
	})
	require.NoError(t, err)
	require.NotNil(t, created.ClientID)

	updated, err := s.Update(ctx, created.ID, EventPatch{ClearClient: true})
	require.NoError(t, err)
	assert.Nil(t, updated.ClientID)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ClientID)

	// Setting a client in the same patch wins over the clear flag.
	other := int64(9)
	updated, err = s.Update(ctx, created.ID, EventPatch{ClientID: &other, ClearClient: true})
	require.NoError(t, err)
	require.NotNil(t, updated.ClientID)
	assert.Equal(t, other, *updated.ClientID)
}

func TestGormStore_UpdateNotFound(t *testing.T) {
	s := NewGormStore(newTestDB(t))

	title := "missing"
	_, err := s.Update(context.Background(), 9999, EventPatch{Title: &title})
	var nf *apperr.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, int64(9999), nf.ID)
}

func TestGormStore_DeleteIdempotent(t *testing.T) {
	s := NewGormStore(newTestDB(t))
	ctx := context.Background()

	created, err := s.Create(ctx, EventInput{
		Title:     "整理档案",
		EventType: model.TypeOther,
		StartAt:   ts(t, "2024-02-05 16:00"),
		EndAt:     ts(t, "2024-02-05 17:00"),
	})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, created.ID))
	_, err = s.Get(ctx, created.ID)
	var nf *apperr.NotFoundError
	require.ErrorAs(t, err, &nf)

	// Deleting again is a no-op success.
	assert.NoError(t, s.Delete(ctx, created.ID))
}

func TestGormStore_ListInRange(t *testing.T) {
	s := NewGormStore(newTestDB(t))
	ctx := context.Background()

	mustCreate := func(input EventInput) *model.Event {
		event, err := s.Create(ctx, input)
		require.NoError(t, err)
		return event
	}

	inside := mustCreate(EventInput{
		Title:     "窗口内",
		EventType: model.TypeOther,
		StartAt:   ts(t, "2024-01-15 10:00"),
		EndAt:     ts(t, "2024-01-15 11:00"),
	})
	mustCreate(EventInput{
		Title:     "窗口之前",
		EventType: model.TypeOther,
		StartAt:   ts(t, "2024-01-05 10:00"),
		EndAt:     ts(t, "2024-01-05 11:00"),
	})
	mustCreate(EventInput{
		Title:     "窗口之后",
		EventType: model.TypeOther,
		StartAt:   ts(t, "2024-02-05 10:00"),
		EndAt:     ts(t, "2024-02-05 11:00"),
	})
	// Recurring events whose base start precedes the window stay listed
	// until their end date passes; the expander decides actual hits.
	until := ts(t, "2024-06-30 00:00")
	recurring := mustCreate(EventInput{
		Title:      "每日冥想",
		EventType:  model.TypeRest,
		StartAt:    ts(t, "2023-12-01 08:00"),
		EndAt:      ts(t, "2023-12-01 08:30"),
		Recurrence: &recurrence.Rule{Frequency: recurrence.FreqDaily, Until: &until},
	})
	expiredUntil := ts(t, "2024-01-01 00:00")
	mustCreate(EventInput{
		Title:      "已结束的循环",
		EventType:  model.TypeRest,
		StartAt:    ts(t, "2023-11-01 08:00"),
		EndAt:      ts(t, "2023-11-01 08:30"),
		Recurrence: &recurrence.Rule{Frequency: recurrence.FreqDaily, Until: &expiredUntil},
	})

	events, err := s.ListInRange(ctx, ts(t, "2024-01-10 00:00"), ts(t, "2024-01-20 00:00"))
	require.NoError(t, err)

	var ids []int64
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	assert.ElementsMatch(t, []int64{inside.ID, recurring.ID}, ids)

	// Ordered by start time, then id.
	require.Len(t, events, 2)
	assert.Equal(t, recurring.ID, events[0].ID)
}

func TestGormStore_ListInRangeStorageError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "events"`)).
		WillReturnError(fmt.Errorf("connection reset"))

	s := NewGormStore(gormDB)
	_, err = s.ListInRange(context.Background(), ts(t, "2024-01-01 00:00"), ts(t, "2024-01-31 00:00"))

	var serr *apperr.StorageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "list events in range", serr.Op)
	assert.NoError(t, mock.ExpectationsWereMet())
}
