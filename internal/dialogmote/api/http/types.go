package httpapi

import (
	"time"

	"github.com/navikt/isdialogmote/internal/dialogmote/domain"
)

// ErrorResponse is the JSON error body returned by every handler.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PractitionerRequest attaches a treating practitioner to a meeting.
type PractitionerRequest struct {
	Ident           string `json:"ident"`
	Attends         bool   `json:"attends"`
	ReceivesMinutes bool   `json:"receives_minutes"`
}

// ReachabilityRequest carries the per-participant digital reachability
// decided by the caller.
type ReachabilityRequest struct {
	EmployeeDigital bool `json:"employee_digital"`
	EmployerDigital bool `json:"employer_digital"`
}

// ConveneRequest creates a meeting.
type ConveneRequest struct {
	CaseworkerIdent string               `json:"caseworker_ident"`
	OrgUnit         string               `json:"org_unit"`
	ScheduledAt     time.Time            `json:"scheduled_at"`
	Place           string               `json:"place"`
	VideoLink       string               `json:"video_link"`
	EmployeeIdent   string               `json:"employee_ident"`
	EmployerIdent   string               `json:"employer_ident"`
	Practitioner    *PractitionerRequest `json:"practitioner,omitempty"`
	Reachability    ReachabilityRequest  `json:"reachability"`

	EmployeeText     string `json:"employee_text,omitempty"`
	EmployerText     string `json:"employer_text,omitempty"`
	PractitionerText string `json:"practitioner_text,omitempty"`

	FollowUpStartDate *time.Time `json:"follow_up_start_date,omitempty"`
}

// RescheduleRequest moves a meeting to a new time or place.
type RescheduleRequest struct {
	CaseworkerIdent string              `json:"caseworker_ident"`
	ScheduledAt     time.Time           `json:"scheduled_at"`
	Place           string              `json:"place"`
	VideoLink       string              `json:"video_link"`
	Reachability    ReachabilityRequest `json:"reachability"`

	EmployeeText     string `json:"employee_text,omitempty"`
	EmployerText     string `json:"employer_text,omitempty"`
	PractitionerText string `json:"practitioner_text,omitempty"`

	FollowUpStartDate *time.Time `json:"follow_up_start_date,omitempty"`
}

// CancelRequest calls a meeting off.
type CancelRequest struct {
	CaseworkerIdent string              `json:"caseworker_ident"`
	Reachability    ReachabilityRequest `json:"reachability"`

	EmployeeText     string `json:"employee_text,omitempty"`
	EmployerText     string `json:"employer_text,omitempty"`
	PractitionerText string `json:"practitioner_text,omitempty"`

	FollowUpStartDate *time.Time `json:"follow_up_start_date,omitempty"`
}

// CloseRequest administratively supersedes a meeting.
type CloseRequest struct {
	ActorIdent        string     `json:"actor_ident,omitempty"`
	FollowUpStartDate *time.Time `json:"follow_up_start_date,omitempty"`
}

// DocumentBlockPayload is one content block of a document.
type DocumentBlockPayload struct {
	Kind  string   `json:"kind"`
	Title string   `json:"title,omitempty"`
	Texts []string `json:"texts,omitempty"`
}

// AttendancePayload records one participant's attendance.
type AttendancePayload struct {
	Kind     string `json:"kind"`
	Ident    string `json:"ident"`
	Attended bool   `json:"attended"`
}

// MinutesContentRequest is caseworker minutes input.
type MinutesContentRequest struct {
	Document         []DocumentBlockPayload `json:"document"`
	PractitionerTask string                 `json:"practitioner_task,omitempty"`
	Attendance       []AttendancePayload    `json:"attendance,omitempty"`
}

// DraftRequest stores or replaces the minutes draft.
type DraftRequest struct {
	Content MinutesContentRequest `json:"content"`
}

// FinalizeRequest concludes a meeting.
type FinalizeRequest struct {
	CaseworkerIdent   string                 `json:"caseworker_ident"`
	Content           *MinutesContentRequest `json:"content,omitempty"`
	Reachability      ReachabilityRequest    `json:"reachability"`
	FollowUpStartDate *time.Time             `json:"follow_up_start_date,omitempty"`
}

// AmendRequest appends a corrected minutes version.
type AmendRequest struct {
	CaseworkerIdent   string                `json:"caseworker_ident"`
	Content           MinutesContentRequest `json:"content"`
	AmendmentReason   string                `json:"amendment_reason"`
	Reachability      ReachabilityRequest   `json:"reachability"`
	FollowUpStartDate *time.Time            `json:"follow_up_start_date,omitempty"`
}

// ResponseRequest records a participant's answer to a notification.
type ResponseRequest struct {
	Kind     string `json:"kind"`
	FreeText string `json:"free_text,omitempty"`
}

// InboundReplyRequest is one practitioner reply delivered by the
// inbound messaging adapter.
type InboundReplyRequest struct {
	ConversationRef string `json:"conversation_ref"`
	ParentRef       string `json:"parent_ref,omitempty"`
	Kind            string `json:"kind"`
	FreeText        string `json:"free_text,omitempty"`
}

// ParticipantPayload is one meeting participant.
type ParticipantPayload struct {
	ID              string `json:"id"`
	Kind            string `json:"kind"`
	Ident           string `json:"ident"`
	Attends         bool   `json:"attends,omitempty"`
	ReceivesMinutes bool   `json:"receives_minutes,omitempty"`
	ConversationRef string `json:"conversation_ref,omitempty"`
	ThreadHeadID    string `json:"thread_head_id,omitempty"`
}

// MeetingPayload is one meeting.
type MeetingPayload struct {
	ID               string              `json:"id"`
	Status           string              `json:"status"`
	CaseworkerIdent  string              `json:"caseworker_ident"`
	OrgUnit          string              `json:"org_unit"`
	ScheduledAt      time.Time           `json:"scheduled_at"`
	Place            string              `json:"place,omitempty"`
	VideoLink        string              `json:"video_link,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	Employee         ParticipantPayload  `json:"employee"`
	Employer         ParticipantPayload  `json:"employer"`
	Practitioner     *ParticipantPayload `json:"practitioner,omitempty"`
	CurrentMinutesID string              `json:"current_minutes_id,omitempty"`
}

// NotificationPayload is one notification ledger entry.
type NotificationPayload struct {
	ID              string                 `json:"id"`
	ParticipantID   string                 `json:"participant_id"`
	MeetingID       string                 `json:"meeting_id"`
	Kind            string                 `json:"kind"`
	Type            string                 `json:"type"`
	Channel         string                 `json:"channel"`
	Document        []DocumentBlockPayload `json:"document,omitempty"`
	FreeText        string                 `json:"free_text,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	ReadAt          *time.Time             `json:"read_at,omitempty"`
	LetterOrderedAt *time.Time             `json:"letter_ordered_at,omitempty"`
	ConversationRef string                 `json:"conversation_ref,omitempty"`
	ParentRef       string                 `json:"parent_ref,omitempty"`
	ArtifactRef     string                 `json:"artifact_ref,omitempty"`
}

// ResponsePayload is the accepted answer to one notification.
type ResponsePayload struct {
	ID             string    `json:"id"`
	NotificationID string    `json:"notification_id"`
	Kind           string    `json:"kind"`
	FreeText       string    `json:"free_text,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// MinutesPayload is one minutes version.
type MinutesPayload struct {
	ID               string                 `json:"id"`
	MeetingID        string                 `json:"meeting_id"`
	Version          int                    `json:"version"`
	Finalized        bool                   `json:"finalized"`
	Document         []DocumentBlockPayload `json:"document,omitempty"`
	PractitionerTask string                 `json:"practitioner_task,omitempty"`
	AmendmentReason  string                 `json:"amendment_reason,omitempty"`
	Attendance       []AttendancePayload    `json:"attendance,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
}

// AuditPayload is one status-change log entry.
type AuditPayload struct {
	ID                string     `json:"id"`
	MeetingID         string     `json:"meeting_id"`
	Status            string     `json:"status"`
	ActorIdent        string     `json:"actor_ident"`
	FollowUpStartDate *time.Time `json:"follow_up_start_date,omitempty"`
	Published         bool       `json:"published"`
	CreatedAt         time.Time  `json:"created_at"`
}

// TransitionResponse is the committed outcome of one lifecycle call.
type TransitionResponse struct {
	Meeting       MeetingPayload        `json:"meeting"`
	Notifications []NotificationPayload `json:"notifications,omitempty"`
	Minutes       *MinutesPayload       `json:"minutes,omitempty"`
	Audit         AuditPayload          `json:"audit"`
}

// DocumentResponse carries a notification's rendered artifact
// reference.
type DocumentResponse struct {
	NotificationID string `json:"notification_id"`
	ArtifactRef    string `json:"artifact_ref"`
}

func meetingPayload(meeting domain.Meeting) MeetingPayload {
	payload := MeetingPayload{
		ID:               meeting.ID,
		Status:           string(meeting.Status),
		CaseworkerIdent:  meeting.CaseworkerIdent,
		OrgUnit:          meeting.OrgUnit,
		ScheduledAt:      meeting.ScheduledAt,
		Place:            meeting.Place,
		VideoLink:        meeting.VideoLink,
		CreatedAt:        meeting.CreatedAt,
		Employee:         participantPayload(meeting.Employee),
		Employer:         participantPayload(meeting.Employer),
		CurrentMinutesID: meeting.CurrentMinutesID,
	}
	if meeting.Practitioner != nil {
		practitioner := participantPayload(*meeting.Practitioner)
		payload.Practitioner = &practitioner
	}
	return payload
}

func participantPayload(participant domain.Participant) ParticipantPayload {
	return ParticipantPayload{
		ID:              participant.ID,
		Kind:            string(participant.Kind),
		Ident:           participant.Ident,
		Attends:         participant.Attends,
		ReceivesMinutes: participant.ReceivesMinutes,
		ConversationRef: participant.ConversationRef,
		ThreadHeadID:    participant.ThreadHeadID,
	}
}

func notificationPayload(notification domain.Notification) NotificationPayload {
	return NotificationPayload{
		ID:              notification.ID,
		ParticipantID:   notification.ParticipantID,
		MeetingID:       notification.MeetingID,
		Kind:            string(notification.Kind),
		Type:            string(notification.Type),
		Channel:         string(notification.Channel),
		Document:        documentPayload(notification.Document),
		FreeText:        notification.FreeText,
		CreatedAt:       notification.CreatedAt,
		ReadAt:          notification.ReadAt,
		LetterOrderedAt: notification.LetterOrderedAt,
		ConversationRef: notification.ConversationRef,
		ParentRef:       notification.ParentRef,
		ArtifactRef:     notification.ArtifactRef,
	}
}

func notificationPayloads(notifications []domain.Notification) []NotificationPayload {
	payloads := make([]NotificationPayload, 0, len(notifications))
	for _, notification := range notifications {
		payloads = append(payloads, notificationPayload(notification))
	}
	return payloads
}

func responsePayload(response domain.Response) ResponsePayload {
	return ResponsePayload{
		ID:             response.ID,
		NotificationID: response.NotificationID,
		Kind:           string(response.Kind),
		FreeText:       response.FreeText,
		CreatedAt:      response.CreatedAt,
	}
}

func minutesPayload(minutes domain.Minutes) MinutesPayload {
	return MinutesPayload{
		ID:               minutes.ID,
		MeetingID:        minutes.MeetingID,
		Version:          minutes.Version,
		Finalized:        minutes.Finalized,
		Document:         documentPayload(minutes.Document),
		PractitionerTask: minutes.PractitionerTask,
		AmendmentReason:  minutes.AmendmentReason,
		Attendance:       attendancePayload(minutes.Attendance),
		CreatedAt:        minutes.CreatedAt,
	}
}

func auditPayload(audit domain.AuditEntry) AuditPayload {
	return AuditPayload{
		ID:                audit.ID,
		MeetingID:         audit.MeetingID,
		Status:            string(audit.Status),
		ActorIdent:        audit.ActorIdent,
		FollowUpStartDate: audit.FollowUpStartDate,
		Published:         audit.Published,
		CreatedAt:         audit.CreatedAt,
	}
}

func transitionResponse(result domain.TransitionResult) TransitionResponse {
	response := TransitionResponse{
		Meeting:       meetingPayload(result.Meeting),
		Notifications: notificationPayloads(result.Notifications),
		Audit:         auditPayload(result.Audit),
	}
	if result.Minutes != nil {
		minutes := minutesPayload(*result.Minutes)
		response.Minutes = &minutes
	}
	return response
}

func documentPayload(document []domain.DocumentBlock) []DocumentBlockPayload {
	payloads := make([]DocumentBlockPayload, 0, len(document))
	for _, block := range document {
		payloads = append(payloads, DocumentBlockPayload{
			Kind:  string(block.Kind),
			Title: block.Title,
			Texts: block.Texts,
		})
	}
	return payloads
}

func attendancePayload(attendance []domain.Attendance) []AttendancePayload {
	payloads := make([]AttendancePayload, 0, len(attendance))
	for _, entry := range attendance {
		payloads = append(payloads, AttendancePayload{
			Kind:     string(entry.Kind),
			Ident:    entry.Ident,
			Attended: entry.Attended,
		})
	}
	return payloads
}

func minutesContentFromRequest(request MinutesContentRequest) domain.MinutesContent {
	content := domain.MinutesContent{
		PractitionerTask: request.PractitionerTask,
	}
	for _, block := range request.Document {
		content.Document = append(content.Document, domain.DocumentBlock{
			Kind:  domain.BlockKind(block.Kind),
			Title: block.Title,
			Texts: block.Texts,
		})
	}
	for _, entry := range request.Attendance {
		content.Attendance = append(content.Attendance, domain.Attendance{
			Kind:     domain.ParticipantKind(entry.Kind),
			Ident:    entry.Ident,
			Attended: entry.Attended,
		})
	}
	return content
}
