package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/davidbz/chatrelay/internal/observability"
)

// RequestState is a step of the chat request lifecycle.
type RequestState string

// Request lifecycle states.
const (
	StateIdle         RequestState = "idle"
	StateQuotaChecked RequestState = "quota_checked"
	StateContextBuilt RequestState = "context_built"
	StateStreaming    RequestState = "streaming"
	StateAccounted    RequestState = "accounted"
	StateErrored      RequestState = "errored"
	StateClosed       RequestState = "closed"
)

// FragmentSink is the outbound channel of a chat request.
type FragmentSink interface {
	// WriteFragment writes one fragment unit.
	WriteFragment(fragment Fragment) error

	// WriteError writes the terminal error unit.
	WriteError(err error) error

	// Close ends the stream.
	Close() error
}

// ChatService orchestrates one chat request: quota check, context
// reconstruction, completion streaming and usage accounting.
type ChatService struct {
	ledger     *Ledger
	completion *CompletionClient
	costModel  CostModel
	events     EventPublisher
}

// NewChatService creates a new chat service (DI constructor).
func NewChatService(
	ledger *Ledger,
	completion *CompletionClient,
	costModel CostModel,
	events EventPublisher,
) *ChatService {
	return &ChatService{
		ledger:     ledger,
		completion: completion,
		costModel:  costModel,
		events:     events,
	}
}

// Model returns the active completion model.
func (s *ChatService) Model() string {
	return s.completion.Model()
}

// Process runs req and writes its outcome to sink. Failures are written to
// the sink as a terminal error unit and also returned; the sink is always
// closed. Usage is recorded only for completions that finished.
func (s *ChatService) Process(ctx context.Context, req *ChatRequest, sink FragmentSink) (*CompletionResult, error) {
	if sink == nil {
		return nil, errors.New("sink cannot be nil")
	}

	run := &chatRun{logger: observability.FromContext(ctx), state: StateIdle}
	defer func() {
		if closeErr := sink.Close(); closeErr != nil {
			run.logger.Debug("closing sink failed", observability.Error(closeErr))
		}
		run.transition(StateClosed)
	}()

	result, err := s.process(ctx, run, req, sink)
	if err != nil {
		run.transition(StateErrored)
		run.logger.Warn("chat request failed", observability.Error(err))
		if writeErr := sink.WriteError(err); writeErr != nil {
			run.logger.Debug("writing error unit failed", observability.Error(writeErr))
		}
		return nil, err
	}

	return result, nil
}

func (s *ChatService) process(
	ctx context.Context,
	run *chatRun,
	req *ChatRequest,
	sink FragmentSink,
) (*CompletionResult, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request cannot be nil", ErrInvalidArgument)
	}

	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("%w: prompt cannot be empty", ErrInvalidArgument)
	}

	usage, err := s.ledger.ReadUsage(ctx)
	if err != nil {
		return nil, err
	}

	if !CheckQuota(usage.Used, usage.Limit) {
		return nil, fmt.Errorf("%w: used %d of %d", ErrQuotaExceeded, usage.Used, usage.Limit)
	}
	run.transition(StateQuotaChecked)

	history := Reconstruct(req.Options.DataSources, req.Options.ParentMessageID)
	run.transition(StateContextBuilt)
	run.logger.Debug("continuation context built",
		observability.Int("records", len(req.Options.DataSources)),
		observability.Int("turns", len(history)),
	)

	run.transition(StateStreaming)
	result, err := s.completion.Complete(ctx, &CompletionInput{
		Message:           req.Prompt,
		Context:           history,
		SystemInstruction: req.SystemMessage,
		ConversationID:    req.Options.ConversationID,
		ParentMessageID:   req.Options.ParentMessageID,
	}, sink.WriteFragment)
	if err != nil {
		return nil, err
	}

	// The completion finished; accounting must survive a client that hangs up now.
	charge := s.ledger.NewCharge(s.costModel.Cost(req, result))
	state, err := charge.Commit(context.WithoutCancel(ctx))
	if err != nil {
		return nil, err
	}
	run.transition(StateAccounted)

	if s.events != nil {
		s.events.Publish(ctx, "usage.recorded", map[string]interface{}{
			"units":      charge.Units(),
			"used":       state.Used,
			"limit":      state.Limit,
			"cost_model": s.costModel.Name(),
			"message_id": result.MessageID,
		})
	}

	run.logger.Info("chat request completed",
		observability.String("message_id", result.MessageID),
		observability.Int("fragments", result.Fragments),
		observability.Int64("units", charge.Units()),
	)

	return result, nil
}

type chatRun struct {
	logger *observability.Logger
	state  RequestState
}

func (r *chatRun) transition(next RequestState) {
	r.logger.Debug("chat request state changed",
		observability.String("from", string(r.state)),
		observability.String("to", string(next)),
	)
	r.state = next
}
