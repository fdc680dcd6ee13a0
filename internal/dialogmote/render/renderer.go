// Package render produces localized delivery copy for notification
// documents and caches rendered artifacts.
package render

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/navikt/isdialogmote/internal/dialogmote/domain"
)

const (
	defaultInvitedTitle     = "Invitation to dialogue meeting"
	defaultRescheduledTitle = "New time for dialogue meeting"
	defaultCancelledTitle   = "Dialogue meeting cancelled"
	defaultMinutesTitle     = "Minutes from dialogue meeting"
	defaultResponsePrompt   = "Please let us know whether you can attend."
)

// Localizer is the minimal message-printer contract required by the
// renderer.
type Localizer interface {
	Sprintf(key message.Reference, args ...any) string
}

// NewLocalizer returns a message printer for the given BCP 47 tag.
// Unknown tags fall back to Norwegian Bokmål, the primary audience
// language.
func NewLocalizer(tag string) Localizer {
	parsed, err := language.Parse(strings.TrimSpace(tag))
	if err != nil {
		parsed = language.MustParse("nb")
	}
	return message.NewPrinter(parsed)
}

// Output is the rendered plain-text form of one notification document.
type Output struct {
	Title string
	Lines []string
}

// Document renders one notification document into localized text. The
// title is derived from the notification type; block content was
// composed at transition time and is rendered verbatim.
func Document(loc Localizer, notification domain.Notification) Output {
	out := Output{Title: titleFor(loc, notification.Type)}
	for _, block := range notification.Document {
		if block.Title != "" {
			out.Lines = append(out.Lines, block.Title)
		}
		out.Lines = append(out.Lines, block.Texts...)
	}
	if notification.FreeText != "" {
		out.Lines = append(out.Lines, notification.FreeText)
	}
	if notification.Type != domain.TypeMinutes && notification.Kind != domain.KindPractitioner {
		out.Lines = append(out.Lines, localizeWithFallback(loc, "dialogmote.response_prompt", defaultResponsePrompt))
	}
	return out
}

func titleFor(loc Localizer, notificationType domain.NotificationType) string {
	switch notificationType {
	case domain.TypeRescheduled:
		return localizeWithFallback(loc, "dialogmote.rescheduled.title", defaultRescheduledTitle)
	case domain.TypeCancelled:
		return localizeWithFallback(loc, "dialogmote.cancelled.title", defaultCancelledTitle)
	case domain.TypeMinutes:
		return localizeWithFallback(loc, "dialogmote.minutes.title", defaultMinutesTitle)
	default:
		return localizeWithFallback(loc, "dialogmote.invited.title", defaultInvitedTitle)
	}
}

func localize(loc Localizer, key message.Reference, args ...any) string {
	if loc == nil {
		if asString, ok := key.(string); ok {
			return asString
		}
		return ""
	}
	return loc.Sprintf(key, args...)
}

func localizeWithFallback(loc Localizer, key string, fallback string) string {
	value := strings.TrimSpace(localize(loc, key))
	if value == "" || value == key {
		return fallback
	}
	return value
}

// ArtifactStore persists rendered artifacts and returns their stable
// references.
type ArtifactStore interface {
	Save(ctx context.Context, notificationID string, content string) (string, error)
}

// MemoryArtifactStore keeps rendered artifacts in memory, addressed by
// content hash.
type MemoryArtifactStore struct {
	mu        sync.Mutex
	artifacts map[string]string
}

// NewMemoryArtifactStore returns an empty in-memory artifact store.
func NewMemoryArtifactStore() *MemoryArtifactStore {
	return &MemoryArtifactStore{artifacts: map[string]string{}}
}

// Save stores content and returns its content-addressed reference.
func (s *MemoryArtifactStore) Save(_ context.Context, notificationID string, content string) (string, error) {
	if strings.TrimSpace(notificationID) == "" {
		return "", fmt.Errorf("notification id is required")
	}
	sum := sha256.Sum256([]byte(content))
	ref := "artifact:" + hex.EncodeToString(sum[:8])
	s.mu.Lock()
	s.artifacts[ref] = content
	s.mu.Unlock()
	return ref, nil
}

// Get returns a stored artifact by reference.
func (s *MemoryArtifactStore) Get(ref string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.artifacts[ref]
	return content, ok
}

// Renderer renders notification documents and persists the result as a
// delivery artifact. It satisfies the domain renderer collaborator.
type Renderer struct {
	loc   Localizer
	store ArtifactStore
}

// NewRenderer builds a renderer over a localizer and an artifact store.
func NewRenderer(loc Localizer, store ArtifactStore) *Renderer {
	return &Renderer{loc: loc, store: store}
}

// Render produces the notification's delivery artifact and returns its
// reference.
func (r *Renderer) Render(ctx context.Context, notification domain.Notification) (string, error) {
	if r == nil || r.store == nil {
		return "", fmt.Errorf("artifact store is not configured")
	}
	out := Document(r.loc, notification)
	var b strings.Builder
	b.WriteString(out.Title)
	for _, line := range out.Lines {
		b.WriteString("\n")
		b.WriteString(line)
	}
	ref, err := r.store.Save(ctx, notification.ID, b.String())
	if err != nil {
		return "", fmt.Errorf("save rendered artifact: %w", err)
	}
	return ref, nil
}
