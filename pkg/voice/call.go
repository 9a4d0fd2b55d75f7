package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jxucoder/mockmate/pkg/eventbus"
	"github.com/jxucoder/mockmate/pkg/model"
)

const (
	DefaultMaxRecord     = 10 * time.Second
	DefaultRelistenDelay = 500 * time.Millisecond
	// DefaultMinAudioBytes is the smallest recording worth sending.
	DefaultMinAudioBytes = 100
)

// Recorder captures one spoken answer. It must stop after max and return what
// it has. io.EOF means there is nothing more to record and ends the call.
type Recorder interface {
	Record(ctx context.Context, max time.Duration) (audio []byte, mimeType string, err error)
}

// Speaker plays a reply back to the candidate.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Transcriber turns recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Sender relays one candidate turn and returns the interviewer's reply.
// *interview.Session satisfies it.
type Sender interface {
	Send(ctx context.Context, content model.Part) (model.Turn, error)
}

// CallConfig tunes a Call. Zero values take the defaults.
type CallConfig struct {
	MaxRecord     time.Duration
	RelistenDelay time.Duration
	MinAudioBytes int

	// Transcriber, when set, converts each recording to text before it is
	// sent. Otherwise the audio is sent inline.
	Transcriber Transcriber

	// Bus receives state, transcript, reply and error events keyed by the
	// call ID. May be nil.
	Bus eventbus.Bus

	Logger zerolog.Logger
}

// Call is one voice interview over an already started session.
type Call struct {
	id      string
	sender  Sender
	rec     Recorder
	spk     Speaker
	cfg     CallConfig
	log     zerolog.Logger
	machine *Machine
}

// NewCall wires a call. The session behind sender must already be started.
func NewCall(sender Sender, rec Recorder, spk Speaker, cfg CallConfig) *Call {
	if cfg.MaxRecord <= 0 {
		cfg.MaxRecord = DefaultMaxRecord
	}
	if cfg.RelistenDelay <= 0 {
		cfg.RelistenDelay = DefaultRelistenDelay
	}
	if cfg.MinAudioBytes <= 0 {
		cfg.MinAudioBytes = DefaultMinAudioBytes
	}

	c := &Call{
		id:     uuid.New().String(),
		sender: sender,
		rec:    rec,
		spk:    spk,
		cfg:    cfg,
	}
	c.log = cfg.Logger.With().Str("component", "voice").Str("call_id", c.id).Logger()
	c.machine = NewMachine(c.stateChanged)
	return c
}

// ID returns the call identifier used as the event bus session.
func (c *Call) ID() string { return c.id }

// State returns the current call state.
func (c *Call) State() State { return c.machine.State() }

// Run loops until the recorder is exhausted (returns nil) or ctx is done
// (returns ctx.Err()). Per-turn failures are published and logged, and the
// call goes back to listening.
func (c *Call) Run(ctx context.Context) error {
	defer func() { _, _ = c.machine.Fire(EventEnd) }()

	for {
		if _, err := c.machine.Fire(EventStart); err != nil {
			return err
		}

		done, err := c.turn(ctx)
		if done {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.RelistenDelay):
		}
	}
}

// turn runs one listen/process/speak cycle from the listening state back to
// idle. done reports that the call is over.
func (c *Call) turn(ctx context.Context) (done bool, err error) {
	audio, mimeType, err := c.rec.Record(ctx, c.cfg.MaxRecord)
	switch {
	case ctx.Err() != nil:
		return true, ctx.Err()
	case errors.Is(err, io.EOF):
		return true, nil
	case err != nil:
		c.fail(EventFailed, fmt.Errorf("recording: %w", err))
		return false, nil
	}

	if len(audio) < c.cfg.MinAudioBytes {
		c.log.Debug().Int("bytes", len(audio)).Msg("recording too short, discarded")
		c.fire(EventDiscarded)
		return false, nil
	}
	c.fire(EventRecorded)

	part, err := c.answer(ctx, audio, mimeType)
	if err != nil {
		if ctx.Err() != nil {
			return true, ctx.Err()
		}
		c.fail(EventFailed, err)
		return false, nil
	}

	reply, err := c.sender.Send(ctx, part)
	if err != nil {
		if ctx.Err() != nil {
			return true, ctx.Err()
		}
		c.fail(EventFailed, err)
		return false, nil
	}
	text := reply.Text()
	c.publish(eventbus.TypeReply, text)
	c.fire(EventReplied)

	if err := c.spk.Speak(ctx, text); err != nil {
		if ctx.Err() != nil {
			return true, ctx.Err()
		}
		c.fail(EventFailed, fmt.Errorf("speaking: %w", err))
		return false, nil
	}
	c.fire(EventSpoken)
	return false, nil
}

// answer builds the turn content for a recording.
func (c *Call) answer(ctx context.Context, audio []byte, mimeType string) (model.Part, error) {
	if c.cfg.Transcriber == nil {
		return model.AudioPart(mimeType, audio), nil
	}
	text, err := c.cfg.Transcriber.Transcribe(ctx, audio, mimeType)
	if err != nil {
		return model.Part{}, fmt.Errorf("transcribing: %w", err)
	}
	text = strings.TrimSpace(text)
	c.publish(eventbus.TypeTranscript, text)
	return model.TextPart(text), nil
}

func (c *Call) fail(ev Event, err error) {
	c.log.Warn().Err(err).Str("state", string(c.machine.State())).Msg("voice turn failed")
	c.publish(eventbus.TypeError, err.Error())
	c.fire(ev)
}

// fire applies an event the loop knows to be legal.
func (c *Call) fire(ev Event) {
	if _, err := c.machine.Fire(ev); err != nil {
		c.log.Error().Err(err).Msg("unexpected state transition")
	}
}

func (c *Call) stateChanged(from, to State, ev Event) {
	c.log.Debug().Str("from", string(from)).Str("to", string(to)).Str("event", string(ev)).Msg("state changed")
	c.publish(eventbus.TypeState, string(to))
}

func (c *Call) publish(typ, data string) {
	if c.cfg.Bus == nil {
		return
	}
	c.cfg.Bus.Publish(c.id, &model.Event{SessionID: c.id, Type: typ, Data: data})
}
