package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/navikt/isdialogmote/internal/dialogmote/storage"
)

const notificationColumns = `id, participant_id, meeting_id, kind, type, channel, document_json, free_text, conversation_ref, parent_ref, artifact_ref, created_at, read_at, letter_ordered_at`

// GetNotification loads one notification ledger row.
func (s *Store) GetNotification(ctx context.Context, notificationID string) (storage.NotificationRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.NotificationRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.NotificationRecord{}, fmt.Errorf("storage is not configured")
	}
	notificationID = strings.TrimSpace(notificationID)
	if notificationID == "" {
		return storage.NotificationRecord{}, fmt.Errorf("notification id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+notificationColumns+`
FROM notifications
WHERE id = ?
`, notificationID)
	record, err := scanNotification(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.NotificationRecord{}, storage.ErrNotFound
		}
		return storage.NotificationRecord{}, fmt.Errorf("get notification: %w", err)
	}
	return record, nil
}

// ListNotificationsByMeeting lists a meeting's notifications in
// creation order.
func (s *Store) ListNotificationsByMeeting(ctx context.Context, meetingID string) ([]storage.NotificationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	meetingID = strings.TrimSpace(meetingID)
	if meetingID == "" {
		return nil, fmt.Errorf("meeting id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+notificationColumns+`
FROM notifications
WHERE meeting_id = ?
ORDER BY created_at ASC, id ASC
`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var results []storage.NotificationRecord
	for rows.Next() {
		record, scanErr := scanNotification(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan notification row: %w", scanErr)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notification rows: %w", err)
	}
	return results, nil
}

// MarkNotificationRead sets the read timestamp once. Re-marking keeps
// the first timestamp.
func (s *Store) MarkNotificationRead(ctx context.Context, notificationID string, readAt time.Time) (storage.NotificationRecord, error) {
	return s.setTimestampOnce(ctx, notificationID, "read_at", readAt)
}

// MarkLetterOrdered sets the letter-ordered timestamp once. Re-marking
// keeps the first timestamp.
func (s *Store) MarkLetterOrdered(ctx context.Context, notificationID string, orderedAt time.Time) (storage.NotificationRecord, error) {
	return s.setTimestampOnce(ctx, notificationID, "letter_ordered_at", orderedAt)
}

func (s *Store) setTimestampOnce(ctx context.Context, notificationID string, column string, at time.Time) (storage.NotificationRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.NotificationRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.NotificationRecord{}, fmt.Errorf("storage is not configured")
	}
	notificationID = strings.TrimSpace(notificationID)
	if notificationID == "" {
		return storage.NotificationRecord{}, fmt.Errorf("notification id is required")
	}
	if at.IsZero() {
		return storage.NotificationRecord{}, fmt.Errorf("timestamp is required")
	}

	query := fmt.Sprintf(`
UPDATE notifications
SET %s = ?
WHERE id = ? AND %s IS NULL
`, column, column)
	if _, err := s.sqlDB.ExecContext(ctx, query, toMillis(at), notificationID); err != nil {
		return storage.NotificationRecord{}, fmt.Errorf("mark notification %s: %w", column, err)
	}
	return s.GetNotification(ctx, notificationID)
}

// SetNotificationArtifact records the rendered artifact reference once.
// A second write keeps the first reference.
func (s *Store) SetNotificationArtifact(ctx context.Context, notificationID string, artifactRef string) (storage.NotificationRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.NotificationRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.NotificationRecord{}, fmt.Errorf("storage is not configured")
	}
	notificationID = strings.TrimSpace(notificationID)
	artifactRef = strings.TrimSpace(artifactRef)
	if notificationID == "" {
		return storage.NotificationRecord{}, fmt.Errorf("notification id is required")
	}
	if artifactRef == "" {
		return storage.NotificationRecord{}, fmt.Errorf("artifact ref is required")
	}

	if _, err := s.sqlDB.ExecContext(ctx, `
UPDATE notifications
SET artifact_ref = ?
WHERE id = ? AND artifact_ref = ''
`, artifactRef, notificationID); err != nil {
		return storage.NotificationRecord{}, fmt.Errorf("set notification artifact: %w", err)
	}
	return s.GetNotification(ctx, notificationID)
}

// FindNotificationByThreadRefs resolves an inbound reply's thread
// references to the notification it answers. A parent reference wins
// over the conversation root.
func (s *Store) FindNotificationByThreadRefs(ctx context.Context, conversationRef string, parentRef string) (storage.NotificationRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.NotificationRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.NotificationRecord{}, fmt.Errorf("storage is not configured")
	}
	conversationRef = strings.TrimSpace(conversationRef)
	parentRef = strings.TrimSpace(parentRef)
	if conversationRef == "" {
		return storage.NotificationRecord{}, fmt.Errorf("conversation ref is required")
	}

	if parentRef != "" {
		row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+notificationColumns+`
FROM notifications
WHERE id = ? AND conversation_ref = ?
`, parentRef, conversationRef)
		record, err := scanNotification(row.Scan)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return storage.NotificationRecord{}, fmt.Errorf("find notification by parent ref: %w", err)
		}
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+notificationColumns+`
FROM notifications
WHERE id = ? AND conversation_ref = ?
`, conversationRef, conversationRef)
	record, err := scanNotification(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.NotificationRecord{}, storage.ErrNotFound
		}
		return storage.NotificationRecord{}, fmt.Errorf("find notification by conversation ref: %w", err)
	}
	return record, nil
}

// GetResponseByNotification loads the response recorded for one
// notification.
func (s *Store) GetResponseByNotification(ctx context.Context, notificationID string) (storage.ResponseRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ResponseRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ResponseRecord{}, fmt.Errorf("storage is not configured")
	}
	notificationID = strings.TrimSpace(notificationID)
	if notificationID == "" {
		return storage.ResponseRecord{}, fmt.Errorf("notification id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, notification_id, kind, free_text, created_at
FROM responses
WHERE notification_id = ?
`, notificationID)
	var record storage.ResponseRecord
	var createdAt int64
	if err := row.Scan(&record.ID, &record.NotificationID, &record.Kind, &record.FreeText, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ResponseRecord{}, storage.ErrNotFound
		}
		return storage.ResponseRecord{}, fmt.Errorf("get response: %w", err)
	}
	record.CreatedAt = fromMillis(createdAt)
	return record, nil
}

// PutResponse inserts the single accepted response for a notification,
// advancing the practitioner thread state in the same transaction when
// requested. A second insert fails with ErrConflict.
func (s *Store) PutResponse(ctx context.Context, record storage.ResponseRecord, thread *storage.ThreadStateRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	record.ID = strings.TrimSpace(record.ID)
	record.NotificationID = strings.TrimSpace(record.NotificationID)
	if record.ID == "" {
		return fmt.Errorf("response id is required")
	}
	if record.NotificationID == "" {
		return fmt.Errorf("notification id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin response write: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback response write: %v", cause, rollbackErr)
		}
		return cause
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO responses (id, notification_id, kind, free_text, created_at)
VALUES (?, ?, ?, ?, ?)
`, record.ID, record.NotificationID, record.Kind, record.FreeText, toMillis(record.CreatedAt)); err != nil {
		if isUniqueConstraintError(err) {
			return rollbackWith(storage.ErrConflict)
		}
		return rollbackWith(fmt.Errorf("insert response: %w", err))
	}
	if thread != nil {
		if err := updateThreadStateExec(ctx, tx, *thread); err != nil {
			return rollbackWith(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit response write: %w", err)
	}
	return nil
}

// GetMinutes loads one minutes version.
func (s *Store) GetMinutes(ctx context.Context, minutesID string) (storage.MinutesRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.MinutesRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.MinutesRecord{}, fmt.Errorf("storage is not configured")
	}
	minutesID = strings.TrimSpace(minutesID)
	if minutesID == "" {
		return storage.MinutesRecord{}, fmt.Errorf("minutes id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, meeting_id, version, finalized, document_json, practitioner_task, amendment_reason, attendance_json, created_at
FROM minutes
WHERE id = ?
`, minutesID)
	record, err := scanMinutes(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.MinutesRecord{}, storage.ErrNotFound
		}
		return storage.MinutesRecord{}, fmt.Errorf("get minutes: %w", err)
	}
	return record, nil
}

// GetDraftMinutes loads the meeting's single unfinalized draft.
func (s *Store) GetDraftMinutes(ctx context.Context, meetingID string) (storage.MinutesRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.MinutesRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.MinutesRecord{}, fmt.Errorf("storage is not configured")
	}
	meetingID = strings.TrimSpace(meetingID)
	if meetingID == "" {
		return storage.MinutesRecord{}, fmt.Errorf("meeting id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, meeting_id, version, finalized, document_json, practitioner_task, amendment_reason, attendance_json, created_at
FROM minutes
WHERE meeting_id = ? AND finalized = 0
`, meetingID)
	record, err := scanMinutes(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.MinutesRecord{}, storage.ErrNotFound
		}
		return storage.MinutesRecord{}, fmt.Errorf("get draft minutes: %w", err)
	}
	return record, nil
}

// ListMinutesByMeeting lists a meeting's minutes versions oldest first.
func (s *Store) ListMinutesByMeeting(ctx context.Context, meetingID string) ([]storage.MinutesRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	meetingID = strings.TrimSpace(meetingID)
	if meetingID == "" {
		return nil, fmt.Errorf("meeting id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, meeting_id, version, finalized, document_json, practitioner_task, amendment_reason, attendance_json, created_at
FROM minutes
WHERE meeting_id = ?
ORDER BY version ASC, created_at ASC
`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("list minutes: %w", err)
	}
	defer rows.Close()

	var results []storage.MinutesRecord
	for rows.Next() {
		record, scanErr := scanMinutes(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan minutes row: %w", scanErr)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate minutes rows: %w", err)
	}
	return results, nil
}

// UpsertDraftMinutes creates or overwrites the meeting's draft row.
func (s *Store) UpsertDraftMinutes(ctx context.Context, record storage.MinutesRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	record.ID = strings.TrimSpace(record.ID)
	record.MeetingID = strings.TrimSpace(record.MeetingID)
	if record.ID == "" {
		return fmt.Errorf("minutes id is required")
	}
	if record.MeetingID == "" {
		return fmt.Errorf("meeting id is required")
	}
	record.Finalized = false
	return writeMinutesExec(ctx, s.sqlDB, record, true)
}

// ListAuditByMeeting lists a meeting's status-change log in creation
// order.
func (s *Store) ListAuditByMeeting(ctx context.Context, meetingID string) ([]storage.AuditRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	meetingID = strings.TrimSpace(meetingID)
	if meetingID == "" {
		return nil, fmt.Errorf("meeting id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, meeting_id, status, actor_ident, follow_up_start_date, published, created_at
FROM audit_entries
WHERE meeting_id = ?
ORDER BY created_at ASC, id ASC
`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var results []storage.AuditRecord
	for rows.Next() {
		var record storage.AuditRecord
		var followUpStartDate sql.NullInt64
		var published int
		var createdAt int64
		if scanErr := rows.Scan(
			&record.ID,
			&record.MeetingID,
			&record.Status,
			&record.ActorIdent,
			&followUpStartDate,
			&published,
			&createdAt,
		); scanErr != nil {
			return nil, fmt.Errorf("scan audit row: %w", scanErr)
		}
		if followUpStartDate.Valid {
			value := fromMillis(followUpStartDate.Int64)
			record.FollowUpStartDate = &value
		}
		record.Published = published != 0
		record.CreatedAt = fromMillis(createdAt)
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit rows: %w", err)
	}
	return results, nil
}

// MarkAuditPublished flags one audit entry as published. Idempotent.
func (s *Store) MarkAuditPublished(ctx context.Context, auditID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	auditID = strings.TrimSpace(auditID)
	if auditID == "" {
		return fmt.Errorf("audit id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE audit_entries
SET published = 1
WHERE id = ?
`, auditID)
	if err != nil {
		return fmt.Errorf("mark audit published: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark audit published rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func insertNotificationExec(ctx context.Context, execer sqlExecer, record storage.NotificationRecord) error {
	var readAt sql.NullInt64
	if record.ReadAt != nil {
		readAt = sql.NullInt64{Int64: toMillis(*record.ReadAt), Valid: true}
	}
	var letterOrderedAt sql.NullInt64
	if record.LetterOrderedAt != nil {
		letterOrderedAt = sql.NullInt64{Int64: toMillis(*record.LetterOrderedAt), Valid: true}
	}

	_, err := execer.ExecContext(ctx, `
INSERT INTO notifications (
	id, participant_id, meeting_id, kind, type, channel, document_json, free_text, conversation_ref, parent_ref, artifact_ref, created_at, read_at, letter_ordered_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		record.ID,
		record.ParticipantID,
		record.MeetingID,
		record.Kind,
		record.Type,
		record.Channel,
		record.DocumentJSON,
		record.FreeText,
		record.ConversationRef,
		record.ParentRef,
		record.ArtifactRef,
		toMillis(record.CreatedAt),
		readAt,
		letterOrderedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func writeMinutesExec(ctx context.Context, execer sqlExecer, record storage.MinutesRecord, replaceDraft bool) error {
	if replaceDraft {
		result, err := execer.ExecContext(ctx, `
UPDATE minutes
SET id = ?, version = ?, finalized = ?, document_json = ?, practitioner_task = ?, amendment_reason = ?, attendance_json = ?, created_at = ?
WHERE meeting_id = ? AND finalized = 0
`,
			record.ID,
			record.Version,
			boolToInt(record.Finalized),
			record.DocumentJSON,
			record.PractitionerTask,
			record.AmendmentReason,
			record.AttendanceJSON,
			toMillis(record.CreatedAt),
			record.MeetingID,
		)
		if err != nil {
			return fmt.Errorf("replace minutes draft: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("replace minutes draft rows affected: %w", err)
		}
		if affected > 0 {
			return nil
		}
	}

	_, err := execer.ExecContext(ctx, `
INSERT INTO minutes (
	id, meeting_id, version, finalized, document_json, practitioner_task, amendment_reason, attendance_json, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		record.ID,
		record.MeetingID,
		record.Version,
		boolToInt(record.Finalized),
		record.DocumentJSON,
		record.PractitionerTask,
		record.AmendmentReason,
		record.AttendanceJSON,
		toMillis(record.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("insert minutes: %w", err)
	}
	return nil
}

func scanNotification(scan scanner) (storage.NotificationRecord, error) {
	var record storage.NotificationRecord
	var createdAt int64
	var readAt sql.NullInt64
	var letterOrderedAt sql.NullInt64
	if err := scan(
		&record.ID,
		&record.ParticipantID,
		&record.MeetingID,
		&record.Kind,
		&record.Type,
		&record.Channel,
		&record.DocumentJSON,
		&record.FreeText,
		&record.ConversationRef,
		&record.ParentRef,
		&record.ArtifactRef,
		&createdAt,
		&readAt,
		&letterOrderedAt,
	); err != nil {
		return storage.NotificationRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	if readAt.Valid {
		value := fromMillis(readAt.Int64)
		record.ReadAt = &value
	}
	if letterOrderedAt.Valid {
		value := fromMillis(letterOrderedAt.Int64)
		record.LetterOrderedAt = &value
	}
	return record, nil
}

func scanMinutes(scan scanner) (storage.MinutesRecord, error) {
	var record storage.MinutesRecord
	var finalized int
	var createdAt int64
	if err := scan(
		&record.ID,
		&record.MeetingID,
		&record.Version,
		&finalized,
		&record.DocumentJSON,
		&record.PractitionerTask,
		&record.AmendmentReason,
		&record.AttendanceJSON,
		&createdAt,
	); err != nil {
		return storage.MinutesRecord{}, err
	}
	record.Finalized = finalized != 0
	record.CreatedAt = fromMillis(createdAt)
	return record, nil
}
