package store

import (
	"context"
	"encoding/json"

	apperrors "github.com/gmsas95/vitalink/internal/errors"
	"github.com/gmsas95/vitalink/internal/reminder"
	"gorm.io/gorm"
)

// ReminderStore implements reminder.Repository.
type ReminderStore struct {
	db *gorm.DB
}

func toRow(r *reminder.Reminder) (*ReminderRow, error) {
	weekdays, err := json.Marshal(r.Weekdays)
	if err != nil {
		return nil, err
	}
	times, err := json.Marshal(r.Times)
	if err != nil {
		return nil, err
	}
	return &ReminderRow{
		ID:           r.ID,
		UserID:       r.UserID,
		PatientID:    r.PatientID,
		MedicineName: r.MedicineName,
		Dosage:       r.Dosage,
		Frequency:    r.Frequency,
		Days:         r.Days,
		EveryDay:     r.EveryDay,
		WeekdaysJSON: string(weekdays),
		TimesJSON:    string(times),
		Status:       string(r.Status),
		Enabled:      r.Enabled,
		CreatedAtMS:  r.CreatedAt,
	}, nil
}

func fromRow(row *ReminderRow) reminder.Reminder {
	r := reminder.Reminder{
		ID:           row.ID,
		UserID:       row.UserID,
		PatientID:    row.PatientID,
		MedicineName: row.MedicineName,
		Dosage:       row.Dosage,
		Frequency:    row.Frequency,
		Days:         row.Days,
		EveryDay:     row.EveryDay,
		Status:       reminder.Status(row.Status),
		Enabled:      row.Enabled,
		CreatedAt:    row.CreatedAtMS,
	}
	if row.WeekdaysJSON != "" {
		json.Unmarshal([]byte(row.WeekdaysJSON), &r.Weekdays)
	}
	if row.TimesJSON != "" {
		json.Unmarshal([]byte(row.TimesJSON), &r.Times)
	}
	return r
}

// Get loads one reminder, or nil when absent.
func (rs *ReminderStore) Get(ctx context.Context, id string) (*reminder.Reminder, error) {
	var row ReminderRow
	err := rs.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "STORE_005", "failed to load reminder")
	}
	r := fromRow(&row)
	return &r, nil
}

// ListByUser returns a user's reminders, newest first.
func (rs *ReminderStore) ListByUser(ctx context.Context, userID string) ([]reminder.Reminder, error) {
	var rows []ReminderRow
	err := rs.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at_ms DESC").
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "STORE_005", "failed to list reminders")
	}

	reminders := make([]reminder.Reminder, 0, len(rows))
	for i := range rows {
		reminders = append(reminders, fromRow(&rows[i]))
	}
	return reminders, nil
}

// ListDue returns every enabled reminder still in upcoming, across all
// users. The sweep evaluates these each tick.
func (rs *ReminderStore) ListDue(ctx context.Context) ([]reminder.Reminder, error) {
	var rows []ReminderRow
	err := rs.db.WithContext(ctx).
		Where("enabled = ? AND status = ?", true, string(reminder.StatusUpcoming)).
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "STORE_005", "failed to list due reminders")
	}

	reminders := make([]reminder.Reminder, 0, len(rows))
	for i := range rows {
		reminders = append(reminders, fromRow(&rows[i]))
	}
	return reminders, nil
}

// ListEnabled returns every enabled reminder regardless of status. The
// nightly rollover evaluates these.
func (rs *ReminderStore) ListEnabled(ctx context.Context) ([]reminder.Reminder, error) {
	var rows []ReminderRow
	err := rs.db.WithContext(ctx).
		Where("enabled = ?", true).
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "STORE_005", "failed to list enabled reminders")
	}

	reminders := make([]reminder.Reminder, 0, len(rows))
	for i := range rows {
		reminders = append(reminders, fromRow(&rows[i]))
	}
	return reminders, nil
}

// Create stores a new reminder.
func (rs *ReminderStore) Create(ctx context.Context, r *reminder.Reminder) error {
	row, err := toRow(r)
	if err != nil {
		return apperrors.Wrap(err, "STORE_006", "failed to encode reminder")
	}
	if err := rs.db.WithContext(ctx).Create(row).Error; err != nil {
		return apperrors.Wrap(err, "STORE_006", "failed to create reminder")
	}
	return nil
}

// Update replaces a reminder's mutable fields.
func (rs *ReminderStore) Update(ctx context.Context, r *reminder.Reminder) error {
	row, err := toRow(r)
	if err != nil {
		return apperrors.Wrap(err, "STORE_006", "failed to encode reminder")
	}
	res := rs.db.WithContext(ctx).Model(&ReminderRow{}).Where("id = ?", r.ID).Updates(map[string]interface{}{
		"medicine_name": row.MedicineName,
		"dosage":        row.Dosage,
		"frequency":     row.Frequency,
		"days":          row.Days,
		"every_day":     row.EveryDay,
		"weekdays_json": row.WeekdaysJSON,
		"times_json":    row.TimesJSON,
		"enabled":       row.Enabled,
	})
	if res.Error != nil {
		return apperrors.Wrap(res.Error, "STORE_006", "failed to update reminder")
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrReminderNotFound
	}
	return nil
}

// Delete removes a reminder.
func (rs *ReminderStore) Delete(ctx context.Context, id string) error {
	return rs.db.WithContext(ctx).Where("id = ?", id).Delete(&ReminderRow{}).Error
}

// TransitionStatus moves a reminder from one status to another only if it is
// still in the expected source status. Returns false when another writer got
// there first, which makes sweep double-transitions a no-op rather than an
// error.
func (rs *ReminderStore) TransitionStatus(ctx context.Context, id string, from, to reminder.Status) (bool, error) {
	res := rs.db.WithContext(ctx).Model(&ReminderRow{}).
		Where("id = ? AND status = ?", id, string(from)).
		Update("status", string(to))
	if res.Error != nil {
		return false, apperrors.Wrap(res.Error, "STORE_006", "failed to transition reminder")
	}
	return res.RowsAffected > 0, nil
}
