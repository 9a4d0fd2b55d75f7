// Package interview implements the client side of a mock interview: an
// append-only conversation that is replayed to the relay on every turn.
package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jxucoder/mockmate/pkg/model"
)

// Relay is the conversation-turn relay as seen by a client session.
type Relay interface {
	Interview(ctx context.Context, history []model.Turn, role string) (string, error)
}

// Saver persists a transcript and returns the stored record.
// *client.Client satisfies it.
type Saver interface {
	SaveInterview(ctx context.Context, iv *model.Interview) (*model.Interview, error)
}

var (
	ErrBusy           = errors.New("a relay call is already in flight")
	ErrNotStarted     = errors.New("interview has not started")
	ErrAlreadyStarted = errors.New("interview already started")
	ErrEmptyContent   = errors.New("turn content is empty")
	ErrInvalidContent = errors.New("invalid turn content")
	ErrEmptyRole      = errors.New("role is required")
)

// Session owns one conversation for its lifetime. At most one relay call is
// in flight at a time; turns are only ever appended.
type Session struct {
	relay Relay

	mu           sync.Mutex
	id           string
	role         string
	conversation []model.Turn
	inFlight     bool
	createdAt    time.Time
}

// NewSession creates an unstarted session.
func NewSession(relay Relay) *Session {
	return &Session{
		relay:     relay,
		id:        uuid.New().String(),
		createdAt: time.Now().UTC(),
	}
}

// ID returns the session identifier, also used as the saved interview ID.
func (s *Session) ID() string { return s.id }

// Role returns the role the interview was started for.
func (s *Session) Role() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

// Conversation returns a copy of the transcript.
func (s *Session) Conversation() []model.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneTurns(s.conversation)
}

// Busy reports whether a relay call is in flight.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// Start asks the relay for the opening question. On failure the conversation
// stays empty and Start may be called again.
func (s *Session) Start(ctx context.Context, role string) (model.Turn, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return model.Turn{}, ErrEmptyRole
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return model.Turn{}, ErrBusy
	}
	if len(s.conversation) > 0 {
		s.mu.Unlock()
		return model.Turn{}, ErrAlreadyStarted
	}
	s.inFlight = true
	s.mu.Unlock()

	text, err := s.relay.Interview(ctx, []model.Turn{}, role)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	if err != nil {
		return model.Turn{}, err
	}
	reply := model.ModelText(text)
	s.role = role
	s.conversation = []model.Turn{reply}
	return reply, nil
}

// Send appends a user turn and relays the whole conversation. The user turn
// is appended before the call and kept even when the call fails, so content
// the relay would reject is refused up front.
func (s *Session) Send(ctx context.Context, content model.Part) (model.Turn, error) {
	if content.IsEmpty() {
		return model.Turn{}, ErrEmptyContent
	}
	if content.InlineData == nil {
		content.Text = strings.TrimSpace(content.Text)
	} else if strings.TrimSpace(content.InlineData.MIMEType) == "" {
		return model.Turn{}, fmt.Errorf("%w: audio has no MIME type", ErrInvalidContent)
	}
	turn := model.Turn{Role: model.SpeakerUser, Parts: []model.Part{content}}
	if err := turn.Validate(); err != nil {
		return model.Turn{}, fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return model.Turn{}, ErrBusy
	}
	if len(s.conversation) == 0 {
		s.mu.Unlock()
		return model.Turn{}, ErrNotStarted
	}
	s.conversation = append(s.conversation, turn)
	history := model.CloneTurns(s.conversation)
	role := s.role
	s.inFlight = true
	s.mu.Unlock()

	text, err := s.relay.Interview(ctx, history, role)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	if err != nil {
		return model.Turn{}, err
	}
	reply := model.ModelText(text)
	s.conversation = append(s.conversation, reply)
	return reply, nil
}

// SendText is Send with a text part.
func (s *Session) SendText(ctx context.Context, text string) (model.Turn, error) {
	return s.Send(ctx, model.TextPart(text))
}

// Snapshot returns the session as a saveable interview record.
func (s *Session) Snapshot(userID string) *model.Interview {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &model.Interview{
		ID:        s.id,
		UserID:    userID,
		Role:      s.role,
		History:   model.CloneTurns(s.conversation),
		CreatedAt: s.createdAt,
	}
}

// Save persists the transcript. Saving again overwrites the previous save.
func (s *Session) Save(ctx context.Context, saver Saver, userID string) (*model.Interview, error) {
	iv := s.Snapshot(userID)
	if len(iv.History) == 0 {
		return nil, ErrNotStarted
	}
	saved, err := saver.SaveInterview(ctx, iv)
	if err != nil {
		return nil, fmt.Errorf("saving interview: %w", err)
	}
	return saved, nil
}
