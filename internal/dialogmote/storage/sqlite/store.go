// Package sqlite provides SQLite-backed persistence for dialogue
// meeting state.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/navikt/isdialogmote/internal/platform/storage/sqlitemigrate"

	"github.com/navikt/isdialogmote/internal/dialogmote/storage"
	"github.com/navikt/isdialogmote/internal/dialogmote/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence for dialogmote state.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a dialogmote SQLite store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_pragma=foreign_keys(ON)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := ensureForeignKeysEnabled(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	store := &Store{sqlDB: sqlDB}
	if err := store.runMigrations(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) runMigrations() error {
	return sqlitemigrate.ApplyMigrations(s.sqlDB, migrations.FS, "")
}

func ensureForeignKeysEnabled(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("sqlite db is required")
	}
	var enabled int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&enabled); err != nil {
		return fmt.Errorf("check sqlite foreign key pragma: %w", err)
	}
	if enabled != 1 {
		return fmt.Errorf("sqlite foreign keys are disabled")
	}
	return nil
}

// GetMeeting loads one meeting with its participant rows.
func (s *Store) GetMeeting(ctx context.Context, meetingID string) (storage.MeetingRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.MeetingRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.MeetingRecord{}, fmt.Errorf("storage is not configured")
	}
	meetingID = strings.TrimSpace(meetingID)
	if meetingID == "" {
		return storage.MeetingRecord{}, fmt.Errorf("meeting id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, status, caseworker_ident, org_unit, created_by, scheduled_at, place, video_link, current_minutes_id, created_at
FROM meetings
WHERE id = ?
`, meetingID)
	record, err := scanMeeting(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.MeetingRecord{}, storage.ErrNotFound
		}
		return storage.MeetingRecord{}, fmt.Errorf("get meeting: %w", err)
	}
	if err := s.attachParticipants(ctx, &record); err != nil {
		return storage.MeetingRecord{}, err
	}
	return record, nil
}

// FindUnfinishedMeetingByEmployee loads the employee's unfinished
// meeting, if one exists.
func (s *Store) FindUnfinishedMeetingByEmployee(ctx context.Context, employeeIdent string) (storage.MeetingRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.MeetingRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.MeetingRecord{}, fmt.Errorf("storage is not configured")
	}
	employeeIdent = strings.TrimSpace(employeeIdent)
	if employeeIdent == "" {
		return storage.MeetingRecord{}, fmt.Errorf("employee ident is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, status, caseworker_ident, org_unit, created_by, scheduled_at, place, video_link, current_minutes_id, created_at
FROM meetings
WHERE employee_ident = ?
  AND status IN ('invited', 'rescheduled')
`, employeeIdent)
	record, err := scanMeeting(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.MeetingRecord{}, storage.ErrNotFound
		}
		return storage.MeetingRecord{}, fmt.Errorf("find unfinished meeting: %w", err)
	}
	if err := s.attachParticipants(ctx, &record); err != nil {
		return storage.MeetingRecord{}, err
	}
	return record, nil
}

// CommitTransition atomically persists one accepted lifecycle
// transition: the meeting write, its notifications, the thread-state
// advance, the audit row and any minutes change.
func (s *Store) CommitTransition(ctx context.Context, write storage.TransitionWrite) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(write.Meeting.ID) == "" {
		return fmt.Errorf("meeting id is required")
	}
	if strings.TrimSpace(write.Audit.ID) == "" {
		return fmt.Errorf("audit id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition write: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback transition write: %v", cause, rollbackErr)
		}
		return cause
	}

	if write.Create {
		if err := insertMeetingExec(ctx, tx, write.Meeting); err != nil {
			return rollbackWith(err)
		}
	} else {
		if err := updateMeetingExec(ctx, tx, write.Meeting, write.ExpectedStatus); err != nil {
			return rollbackWith(err)
		}
	}
	for _, notification := range write.Notifications {
		if err := insertNotificationExec(ctx, tx, notification); err != nil {
			return rollbackWith(err)
		}
	}
	if write.ThreadUpdate != nil {
		if err := updateThreadStateExec(ctx, tx, *write.ThreadUpdate); err != nil {
			return rollbackWith(err)
		}
	}
	if write.Minutes != nil {
		if err := writeMinutesExec(ctx, tx, *write.Minutes, write.MinutesReplaceDraft); err != nil {
			return rollbackWith(err)
		}
	}
	if err := insertAuditExec(ctx, tx, write.Audit); err != nil {
		return rollbackWith(err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transition write: %w", err)
	}
	return nil
}

func (s *Store) attachParticipants(ctx context.Context, record *storage.MeetingRecord) error {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, meeting_id, kind, ident, attends, receives_minutes, conversation_ref, thread_head_id
FROM participants
WHERE meeting_id = ?
ORDER BY id ASC
`, record.ID)
	if err != nil {
		return fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		participant, scanErr := scanParticipant(rows.Scan)
		if scanErr != nil {
			return fmt.Errorf("scan participant row: %w", scanErr)
		}
		switch participant.Kind {
		case "employee":
			record.Employee = participant
		case "employer":
			record.Employer = participant
		case "practitioner":
			stored := participant
			record.Practitioner = &stored
		default:
			return fmt.Errorf("unknown participant kind %q", participant.Kind)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate participant rows: %w", err)
	}
	return nil
}

type scanner func(dest ...any) error

type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type sqlQueryExecer interface {
	sqlExecer
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanMeeting(scan scanner) (storage.MeetingRecord, error) {
	var record storage.MeetingRecord
	var scheduledAt int64
	var createdAt int64
	if err := scan(
		&record.ID,
		&record.Status,
		&record.CaseworkerIdent,
		&record.OrgUnit,
		&record.CreatedBy,
		&scheduledAt,
		&record.Place,
		&record.VideoLink,
		&record.CurrentMinutesID,
		&createdAt,
	); err != nil {
		return storage.MeetingRecord{}, err
	}
	record.ScheduledAt = fromMillis(scheduledAt)
	record.CreatedAt = fromMillis(createdAt)
	return record, nil
}

func scanParticipant(scan scanner) (storage.ParticipantRecord, error) {
	var record storage.ParticipantRecord
	var attends int
	var receivesMinutes int
	if err := scan(
		&record.ID,
		&record.MeetingID,
		&record.Kind,
		&record.Ident,
		&attends,
		&receivesMinutes,
		&record.ConversationRef,
		&record.ThreadHeadID,
	); err != nil {
		return storage.ParticipantRecord{}, err
	}
	record.Attends = attends != 0
	record.ReceivesMinutes = receivesMinutes != 0
	return record, nil
}

func insertMeetingExec(ctx context.Context, execer sqlExecer, record storage.MeetingRecord) error {
	_, err := execer.ExecContext(ctx, `
INSERT INTO meetings (
	id, status, caseworker_ident, org_unit, created_by, employee_ident, scheduled_at, place, video_link, current_minutes_id, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		record.ID,
		record.Status,
		record.CaseworkerIdent,
		record.OrgUnit,
		record.CreatedBy,
		record.Employee.Ident,
		toMillis(record.ScheduledAt),
		record.Place,
		record.VideoLink,
		record.CurrentMinutesID,
		toMillis(record.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("insert meeting: %w", err)
	}
	for _, participant := range participantRows(record) {
		if err := insertParticipantExec(ctx, execer, participant); err != nil {
			return err
		}
	}
	return nil
}

func updateMeetingExec(ctx context.Context, execer sqlQueryExecer, record storage.MeetingRecord, expectedStatus string) error {
	result, err := execer.ExecContext(ctx, `
UPDATE meetings
SET status = ?, scheduled_at = ?, place = ?, video_link = ?, current_minutes_id = ?
WHERE id = ? AND status = ?
`,
		record.Status,
		toMillis(record.ScheduledAt),
		record.Place,
		record.VideoLink,
		record.CurrentMinutesID,
		record.ID,
		expectedStatus,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("update meeting: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update meeting rows affected: %w", err)
	}
	if affected == 0 {
		var status string
		row := execer.QueryRowContext(ctx, "SELECT status FROM meetings WHERE id = ?", record.ID)
		if scanErr := row.Scan(&status); scanErr != nil {
			if errors.Is(scanErr, sql.ErrNoRows) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("check meeting status: %w", scanErr)
		}
		return fmt.Errorf("%w: meeting status changed to %s", storage.ErrConflict, status)
	}
	return nil
}

func participantRows(record storage.MeetingRecord) []storage.ParticipantRecord {
	rows := []storage.ParticipantRecord{record.Employee, record.Employer}
	if record.Practitioner != nil {
		rows = append(rows, *record.Practitioner)
	}
	return rows
}

func insertParticipantExec(ctx context.Context, execer sqlExecer, record storage.ParticipantRecord) error {
	_, err := execer.ExecContext(ctx, `
INSERT INTO participants (
	id, meeting_id, kind, ident, attends, receives_minutes, conversation_ref, thread_head_id
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`,
		record.ID,
		record.MeetingID,
		record.Kind,
		record.Ident,
		boolToInt(record.Attends),
		boolToInt(record.ReceivesMinutes),
		record.ConversationRef,
		record.ThreadHeadID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

func updateThreadStateExec(ctx context.Context, execer sqlExecer, update storage.ThreadStateRecord) error {
	result, err := execer.ExecContext(ctx, `
UPDATE participants
SET conversation_ref = ?, thread_head_id = ?
WHERE id = ?
`, update.ConversationRef, update.ThreadHeadID, update.ParticipantID)
	if err != nil {
		return fmt.Errorf("update thread state: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update thread state rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func insertAuditExec(ctx context.Context, execer sqlExecer, record storage.AuditRecord) error {
	var followUpStartDate sql.NullInt64
	if record.FollowUpStartDate != nil {
		followUpStartDate = sql.NullInt64{Int64: toMillis(*record.FollowUpStartDate), Valid: true}
	}
	_, err := execer.ExecContext(ctx, `
INSERT INTO audit_entries (
	id, meeting_id, status, actor_ident, follow_up_start_date, published, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?)
`,
		record.ID,
		record.MeetingID,
		record.Status,
		record.ActorIdent,
		followUpStartDate,
		boolToInt(record.Published),
		toMillis(record.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "unique constraint failed")
}
