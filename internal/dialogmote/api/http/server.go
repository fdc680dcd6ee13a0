// Package httpapi exposes the meeting lifecycle over JSON HTTP for the
// caseworker frontend and the delivery adapters.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/navikt/isdialogmote/internal/dialogmote/domain"
)

// Dispatcher hands committed notifications to the outbound delivery
// sinks. Dispatch failures never unwind the commit.
type Dispatcher interface {
	Dispatch(ctx context.Context, meeting domain.Meeting, notifications []domain.Notification) error
}

// Server routes meeting lifecycle requests to the domain service.
type Server struct {
	mux        *http.ServeMux
	service    *domain.Service
	dispatcher Dispatcher
	renderer   domain.DocumentRenderer
	logger     *slog.Logger
}

// NewServer wires the HTTP routes. The dispatcher and renderer are
// optional: without a dispatcher, transitions commit but nothing is
// sent; without a renderer, document requests fail with a validation
// error.
func NewServer(service *domain.Service, dispatcher Dispatcher, renderer domain.DocumentRenderer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		mux:        http.NewServeMux(),
		service:    service,
		dispatcher: dispatcher,
		renderer:   renderer,
		logger:     logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/v1/meetings", s.handleConvene)
	s.mux.HandleFunc("GET /api/v1/meetings/{meeting_id}", s.handleGetMeeting)
	s.mux.HandleFunc("POST /api/v1/meetings/{meeting_id}/reschedule", s.handleReschedule)
	s.mux.HandleFunc("POST /api/v1/meetings/{meeting_id}/cancel", s.handleCancel)
	s.mux.HandleFunc("POST /api/v1/meetings/{meeting_id}/close", s.handleClose)

	s.mux.HandleFunc("PUT /api/v1/meetings/{meeting_id}/minutes/draft", s.handleStoreDraft)
	s.mux.HandleFunc("POST /api/v1/meetings/{meeting_id}/minutes/finalize", s.handleFinalize)
	s.mux.HandleFunc("POST /api/v1/meetings/{meeting_id}/minutes/amend", s.handleAmend)
	s.mux.HandleFunc("GET /api/v1/meetings/{meeting_id}/minutes", s.handleListMinutes)
	s.mux.HandleFunc("GET /api/v1/meetings/{meeting_id}/minutes/current", s.handleCurrentMinutes)

	s.mux.HandleFunc("GET /api/v1/meetings/{meeting_id}/notifications", s.handleListNotifications)
	s.mux.HandleFunc("GET /api/v1/meetings/{meeting_id}/audit", s.handleListAudit)

	s.mux.HandleFunc("POST /api/v1/notifications/{notification_id}/read", s.handleMarkRead)
	s.mux.HandleFunc("POST /api/v1/notifications/{notification_id}/letter-ordered", s.handleMarkLetterOrdered)
	s.mux.HandleFunc("POST /api/v1/notifications/{notification_id}/response", s.handleRecordResponse)
	s.mux.HandleFunc("GET /api/v1/notifications/{notification_id}/document", s.handleRenderedDocument)

	s.mux.HandleFunc("POST /api/v1/inbound/practitioner-reply", s.handleInboundReply)
	s.mux.HandleFunc("POST /api/v1/audit/{audit_id}/published", s.handleMarkAuditPublished)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleConvene(w http.ResponseWriter, r *http.Request) {
	var req ConveneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "invalid_json", Message: "request body must be valid JSON"})
		return
	}

	input := domain.ConveneInput{
		CaseworkerIdent: req.CaseworkerIdent,
		OrgUnit:         req.OrgUnit,
		ScheduledAt:     req.ScheduledAt,
		Place:           req.Place,
		VideoLink:       req.VideoLink,
		EmployeeIdent:   req.EmployeeIdent,
		EmployerIdent:   req.EmployerIdent,
		Reachability: domain.Reachability{
			EmployeeDigital: req.Reachability.EmployeeDigital,
			EmployerDigital: req.Reachability.EmployerDigital,
		},
		EmployeeText:      req.EmployeeText,
		EmployerText:      req.EmployerText,
		PractitionerText:  req.PractitionerText,
		FollowUpStartDate: req.FollowUpStartDate,
	}
	if req.Practitioner != nil {
		input.Practitioner = &domain.PractitionerInput{
			Ident:           req.Practitioner.Ident,
			Attends:         req.Practitioner.Attends,
			ReceivesMinutes: req.Practitioner.ReceivesMinutes,
		}
	}

	result, err := s.service.Convene(r.Context(), input)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.dispatch(r, result)
	writeJSON(w, http.StatusCreated, transitionResponse(result))
}

func (s *Server) handleGetMeeting(w http.ResponseWriter, r *http.Request) {
	meeting, err := s.service.GetMeeting(r.Context(), r.PathValue("meeting_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meetingPayload(meeting))
}

func (s *Server) handleReschedule(w http.ResponseWriter, r *http.Request) {
	var req RescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "invalid_json", Message: "request body must be valid JSON"})
		return
	}

	result, err := s.service.Reschedule(r.Context(), domain.RescheduleInput{
		MeetingID:       r.PathValue("meeting_id"),
		CaseworkerIdent: req.CaseworkerIdent,
		ScheduledAt:     req.ScheduledAt,
		Place:           req.Place,
		VideoLink:       req.VideoLink,
		Reachability: domain.Reachability{
			EmployeeDigital: req.Reachability.EmployeeDigital,
			EmployerDigital: req.Reachability.EmployerDigital,
		},
		EmployeeText:      req.EmployeeText,
		EmployerText:      req.EmployerText,
		PractitionerText:  req.PractitionerText,
		FollowUpStartDate: req.FollowUpStartDate,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.dispatch(r, result)
	writeJSON(w, http.StatusOK, transitionResponse(result))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "invalid_json", Message: "request body must be valid JSON"})
		return
	}

	result, err := s.service.Cancel(r.Context(), domain.CancelInput{
		MeetingID:       r.PathValue("meeting_id"),
		CaseworkerIdent: req.CaseworkerIdent,
		Reachability: domain.Reachability{
			EmployeeDigital: req.Reachability.EmployeeDigital,
			EmployerDigital: req.Reachability.EmployerDigital,
		},
		EmployeeText:      req.EmployeeText,
		EmployerText:      req.EmployerText,
		PractitionerText:  req.PractitionerText,
		FollowUpStartDate: req.FollowUpStartDate,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.dispatch(r, result)
	writeJSON(w, http.StatusOK, transitionResponse(result))
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	var req CloseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "invalid_json", Message: "request body must be valid JSON"})
		return
	}

	result, err := s.service.Close(r.Context(), domain.CloseInput{
		MeetingID:         r.PathValue("meeting_id"),
		ActorIdent:        req.ActorIdent,
		FollowUpStartDate: req.FollowUpStartDate,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transitionResponse(result))
}

func (s *Server) handleStoreDraft(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "invalid_json", Message: "request body must be valid JSON"})
		return
	}

	draft, err := s.service.StoreDraft(r.Context(), domain.DraftInput{
		MeetingID: r.PathValue("meeting_id"),
		Content:   minutesContentFromRequest(req.Content),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, minutesPayload(draft))
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	var req FinalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "invalid_json", Message: "request body must be valid JSON"})
		return
	}

	input := domain.FinalizeInput{
		MeetingID:       r.PathValue("meeting_id"),
		CaseworkerIdent: req.CaseworkerIdent,
		Reachability: domain.Reachability{
			EmployeeDigital: req.Reachability.EmployeeDigital,
			EmployerDigital: req.Reachability.EmployerDigital,
		},
		FollowUpStartDate: req.FollowUpStartDate,
	}
	if req.Content != nil {
		content := minutesContentFromRequest(*req.Content)
		input.Content = &content
	}

	result, err := s.service.Finalize(r.Context(), input)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.dispatch(r, result)
	writeJSON(w, http.StatusOK, transitionResponse(result))
}

func (s *Server) handleAmend(w http.ResponseWriter, r *http.Request) {
	var req AmendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "invalid_json", Message: "request body must be valid JSON"})
		return
	}

	result, err := s.service.AmendMinutes(r.Context(), domain.AmendInput{
		MeetingID:       r.PathValue("meeting_id"),
		CaseworkerIdent: req.CaseworkerIdent,
		Content:         minutesContentFromRequest(req.Content),
		AmendmentReason: req.AmendmentReason,
		Reachability: domain.Reachability{
			EmployeeDigital: req.Reachability.EmployeeDigital,
			EmployerDigital: req.Reachability.EmployerDigital,
		},
		FollowUpStartDate: req.FollowUpStartDate,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.dispatch(r, result)
	writeJSON(w, http.StatusOK, transitionResponse(result))
}

func (s *Server) handleListMinutes(w http.ResponseWriter, r *http.Request) {
	versions, err := s.service.ListMinutes(r.Context(), r.PathValue("meeting_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	payloads := make([]MinutesPayload, 0, len(versions))
	for _, minutes := range versions {
		payloads = append(payloads, minutesPayload(minutes))
	}
	writeJSON(w, http.StatusOK, payloads)
}

func (s *Server) handleCurrentMinutes(w http.ResponseWriter, r *http.Request) {
	minutes, err := s.service.CurrentMinutes(r.Context(), r.PathValue("meeting_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, minutesPayload(minutes))
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := s.service.ListNotifications(r.Context(), r.PathValue("meeting_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notificationPayloads(notifications))
}

func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.ListAudit(r.Context(), r.PathValue("meeting_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	payloads := make([]AuditPayload, 0, len(entries))
	for _, entry := range entries {
		payloads = append(payloads, auditPayload(entry))
	}
	writeJSON(w, http.StatusOK, payloads)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	notification, err := s.service.MarkNotificationRead(r.Context(), r.PathValue("notification_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notificationPayload(notification))
}

func (s *Server) handleMarkLetterOrdered(w http.ResponseWriter, r *http.Request) {
	notification, err := s.service.MarkLetterOrdered(r.Context(), r.PathValue("notification_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notificationPayload(notification))
}

func (s *Server) handleRecordResponse(w http.ResponseWriter, r *http.Request) {
	var req ResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "invalid_json", Message: "request body must be valid JSON"})
		return
	}

	response, err := s.service.RecordResponse(r.Context(), domain.RecordResponseInput{
		NotificationID: r.PathValue("notification_id"),
		Kind:           domain.ResponseKind(req.Kind),
		FreeText:       req.FreeText,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, responsePayload(response))
}

func (s *Server) handleRenderedDocument(w http.ResponseWriter, r *http.Request) {
	notificationID := r.PathValue("notification_id")
	artifactRef, err := s.service.RenderedDocument(r.Context(), notificationID, s.renderer)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentResponse{NotificationID: notificationID, ArtifactRef: artifactRef})
}

func (s *Server) handleInboundReply(w http.ResponseWriter, r *http.Request) {
	var req InboundReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "invalid_json", Message: "request body must be valid JSON"})
		return
	}

	response, err := s.service.RecordInboundReply(r.Context(), domain.InboundReplyInput{
		ConversationRef: req.ConversationRef,
		ParentRef:       req.ParentRef,
		Kind:            domain.ResponseKind(req.Kind),
		FreeText:        req.FreeText,
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotificationNotFound) {
			s.logger.WarnContext(r.Context(), "dropping unmatched practitioner reply",
				"conversation_ref", req.ConversationRef,
				"parent_ref", req.ParentRef)
		}
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, responsePayload(response))
}

func (s *Server) handleMarkAuditPublished(w http.ResponseWriter, r *http.Request) {
	if err := s.service.MarkAuditPublished(r.Context(), r.PathValue("audit_id")); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// dispatch hands the committed notifications to the outbound sinks.
// Failures are logged, not surfaced: the lifecycle state already
// stands and delivery is retried out of band.
func (s *Server) dispatch(r *http.Request, result domain.TransitionResult) {
	if s.dispatcher == nil || len(result.Notifications) == 0 {
		return
	}
	if err := s.dispatcher.Dispatch(r.Context(), result.Meeting, result.Notifications); err != nil {
		s.logger.ErrorContext(r.Context(), "notification dispatch failed",
			"meeting_id", result.Meeting.ID,
			"error", err)
	}
}

func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "validation_error", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Code: "not_found", Message: err.Error()})
	case errors.Is(err, domain.ErrConflict):
		writeJSON(w, http.StatusConflict, ErrorResponse{Code: "conflict", Message: err.Error()})
	case errors.Is(err, domain.ErrDelivery):
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Code: "delivery_error", Message: err.Error()})
	default:
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Code: "internal_error", Message: "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
