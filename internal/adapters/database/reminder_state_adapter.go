package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/entities"
	"github.com/zatekoja/clinic-reminders/backend/internal/domain/repositories"
	"github.com/zatekoja/clinic-reminders/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/clinic-reminders/backend/pkg/errors"
)

const reminderStatesTable = "reminder_states"

var reminderStateColumns = []interface{}{"reminder_id", "sent", "sent_at", "delivery_status", "updated_at"}

// ReminderStateAdapter implements the ReminderStateRepository interface
type ReminderStateAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewReminderStateAdapter creates a new reminder state adapter
func NewReminderStateAdapter(client *postgres.Client) *ReminderStateAdapter {
	return &ReminderStateAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var _ repositories.ReminderStateRepository = (*ReminderStateAdapter)(nil)

func scanReminderState(row rowScanner) (entities.ReminderState, error) {
	var st entities.ReminderState
	var sentAt sql.NullTime
	var status sql.NullString

	if err := row.Scan(&st.ReminderID, &st.Sent, &sentAt, &status, &st.UpdatedAt); err != nil {
		return st, err
	}
	st.SentAt = timePtr(sentAt)
	st.DeliveryStatus = entities.DeliveryStatus(status.String)
	return st, nil
}

// GetByIDs returns the states known for ids
func (a *ReminderStateAdapter) GetByIDs(ctx context.Context, ids []string) (map[string]entities.ReminderState, error) {
	states := make(map[string]entities.ReminderState, len(ids))
	if len(ids) == 0 {
		return states, nil
	}

	query, args, err := a.db.From(reminderStatesTable).
		Select(reminderStateColumns...).
		Where(goqu.Ex{"reminder_id": ids}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	list, err := a.query(ctx, query, args)
	if err != nil {
		return nil, err
	}
	for _, st := range list {
		states[st.ReminderID] = st
	}
	return states, nil
}

// MarkSent upserts the sent state of a reminder. The conflict update only
// applies to rows not yet sent, so concurrent callers see exactly one change.
func (a *ReminderStateAdapter) MarkSent(ctx context.Context, reminderID string, at time.Time, status entities.DeliveryStatus) (bool, error) {
	record := goqu.Record{
		"reminder_id":     reminderID,
		"sent":            true,
		"sent_at":         at,
		"delivery_status": nullString(string(status)),
		"updated_at":      at,
	}

	query, args, err := a.db.Insert(reminderStatesTable).
		Rows(record).
		OnConflict(goqu.DoUpdate("reminder_id", goqu.Record{
			"sent":            true,
			"sent_at":         at,
			"delivery_status": nullString(string(status)),
			"updated_at":      at,
		}).Where(goqu.I(reminderStatesTable+".sent").IsFalse())).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build upsert query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return false, apperrors.NewInternalError("failed to mark reminder sent", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewInternalError("failed to get rows affected", err)
	}
	return rowsAffected > 0, nil
}

// List returns every stored state ordered by reminder ID
func (a *ReminderStateAdapter) List(ctx context.Context) ([]entities.ReminderState, error) {
	query, args, err := a.db.From(reminderStatesTable).
		Select(reminderStateColumns...).
		Order(goqu.C("reminder_id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}
	return a.query(ctx, query, args)
}

func (a *ReminderStateAdapter) query(ctx context.Context, query string, args []interface{}) ([]entities.ReminderState, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query reminder states", err)
	}
	defer rows.Close()

	states := make([]entities.ReminderState, 0)
	for rows.Next() {
		st, err := scanReminderState(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan reminder state", err)
		}
		states = append(states, st)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate reminder states", err)
	}
	return states, nil
}
