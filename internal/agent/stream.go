package agent

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/qmuntal/stateless"

	"github.com/roeiex74/agno-ollama-chatbot/internal/history"
	"github.com/roeiex74/agno-ollama-chatbot/internal/llm"
	"github.com/roeiex74/agno-ollama-chatbot/internal/logger"
)

// Streaming turn lifecycle. A turn starts in Streaming, re-enters it on each
// fragment, and ends in exactly one of Done or Failed.
type turnState stateless.State

var (
	stateStreaming turnState = "Streaming"
	stateDone      turnState = "Done"   // terminal: reply persisted, done event emitted
	stateFailed    turnState = "Failed" // terminal: partial reply discarded
)

type turnTrigger stateless.Trigger

var (
	triggerFragment  turnTrigger = "Fragment"
	triggerCompleted turnTrigger = "Completed"
	triggerFailed    turnTrigger = "Failed"
)

// Event is one element of a streaming turn: either a delta fragment or the
// single terminal event (done or error) that ends the stream.
type Event struct {
	Delta          string `json:"delta,omitempty"`
	Done           bool   `json:"done,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Response       string `json:"response,omitempty"`
	Usage          *Usage `json:"usage,omitempty"`
	Error          string `json:"error,omitempty"`
}

// TurnStream is a pull-based, single-consumption event stream for one
// streaming turn. The state machine guarantees that exactly one terminal
// event is produced and that Recv returns io.EOF afterwards.
type TurnStream struct {
	bot            *Chatbot
	ctx            context.Context
	conversationID string
	sent           int // messages sent to the runtime, reported in usage
	upstream       llm.Stream
	upstreamClosed bool
	reply          strings.Builder
	fsm            *stateless.StateMachine
}

func newTurnStream(bot *Chatbot, ctx context.Context, conversationID string, sent int, upstream llm.Stream) *TurnStream {
	fsm := stateless.NewStateMachine(stateStreaming)
	fsm.Configure(stateStreaming).
		PermitReentry(triggerFragment).
		Permit(triggerCompleted, stateDone).
		Permit(triggerFailed, stateFailed)

	return &TurnStream{
		bot:            bot,
		ctx:            ctx,
		conversationID: conversationID,
		sent:           sent,
		upstream:       upstream,
		fsm:            fsm,
	}
}

// Recv returns the next event. After the terminal event every call returns
// io.EOF.
func (s *TurnStream) Recv() (Event, error) {
	if s.fsm.MustState() != stateStreaming {
		return Event{}, io.EOF
	}

	frag, err := s.upstream.Recv()
	if errors.Is(err, io.EOF) {
		return s.complete(), nil
	}
	if err != nil {
		return s.fail(err), nil
	}

	s.reply.WriteString(frag)
	s.fire(triggerFragment)
	return Event{Delta: frag}, nil
}

// complete persists the accumulated reply and builds the done event.
func (s *TurnStream) complete() Event {
	s.closeUpstream()
	reply := s.reply.String()

	if err := s.bot.store.Append(s.ctx, s.conversationID, history.RoleAssistant, reply); err != nil {
		return s.fail(err)
	}
	if err := s.bot.store.Truncate(s.ctx, s.conversationID, s.bot.maxHistory); err != nil {
		return s.fail(err)
	}

	s.fire(triggerCompleted)
	return Event{
		Done:           true,
		ConversationID: s.conversationID,
		Response:       reply,
		Usage:          &Usage{Model: s.bot.model, Messages: s.sent},
	}
}

// fail discards the partial reply and builds the error terminal event. Only
// the user message of this turn remains in history.
func (s *TurnStream) fail(err error) Event {
	logger.L.Error("streaming turn failed", "conversation_id", s.conversationID, "error", err)
	s.fire(triggerFailed)
	s.closeUpstream()
	return Event{Error: err.Error(), Done: true}
}

// Close stops fragment consumption. A stream closed before its terminal event
// appends nothing to history.
func (s *TurnStream) Close() error {
	if s.fsm.MustState() == stateStreaming {
		s.fire(triggerFailed)
	}
	s.closeUpstream()
	return nil
}

// closeUpstream closes the fragment source at most once; complete, fail, and
// Close may each reach it for the same stream.
func (s *TurnStream) closeUpstream() {
	if s.upstreamClosed {
		return
	}
	s.upstreamClosed = true
	if err := s.upstream.Close(); err != nil {
		logger.L.Warn("closing fragment stream", "error", err)
	}
}

func (s *TurnStream) fire(trigger turnTrigger) {
	if err := s.fsm.Fire(trigger); err != nil {
		logger.L.Warn("turn stream transition failed", "trigger", trigger, "error", err)
	}
}
