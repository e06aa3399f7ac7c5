package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"travelchat/internal/ai"
	"travelchat/internal/model"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrMessageEmpty    = errors.New("message content is empty")
)

const WelcomeText = "Hi! I'm your travel assistant - where would you like to go?"

// Replies shown when the assistant cannot be reached.
const (
	unreachableText  = "I couldn't reach the server. Make sure the backend is running!"
	datesFailedText  = "Couldn't save your dates - try again?"
	guestsFailedText = "Couldn't save your guests - try again?"
)

// Pickers the UI should open after a turn.
const (
	PromptDates  = "dates"
	PromptGuests = "guests"
)

type Assistant interface {
	Call(ctx context.Context, history []model.Message) (ai.Reply, error)
}

// TravelService runs one chat turn against the assistant and saves the
// resulting history through the SessionService.
type TravelService struct {
	sessions  *SessionService
	assistant Assistant
	logger    *zap.Logger
}

type SendInput struct {
	OwnerID   string
	SessionID string
	Text      string
}

type DatesInput struct {
	OwnerID   string
	SessionID string
	StartDate string
	EndDate   string
}

type GuestsInput struct {
	OwnerID   string
	SessionID string
	Adults    int
	Children  int
}

type TurnResult struct {
	Messages []model.Message `json:"messages"`
	Prompt   string          `json:"prompt,omitempty"`
	Saved    bool            `json:"saved"`
}

func NewTravelService(sessions *SessionService, assistant Assistant, logger *zap.Logger) *TravelService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TravelService{sessions: sessions, assistant: assistant, logger: logger}
}

func WelcomeMessage() model.Message {
	return model.Message{Role: model.RoleAI, Text: WelcomeText}
}

func (s *TravelService) Send(ctx context.Context, input SendInput) (*TurnResult, error) {
	if strings.TrimSpace(input.SessionID) == "" {
		return nil, ErrInvalidInput
	}
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, ErrMessageEmpty
	}
	return s.turn(ctx, input.OwnerID, input.SessionID, text, unreachableText)
}

func (s *TravelService) SelectDates(ctx context.Context, input DatesInput) (*TurnResult, error) {
	start := strings.TrimSpace(input.StartDate)
	end := strings.TrimSpace(input.EndDate)
	if strings.TrimSpace(input.SessionID) == "" || start == "" || end == "" {
		return nil, ErrInvalidInput
	}
	return s.turn(ctx, input.OwnerID, input.SessionID, DatesFact(start, end), datesFailedText)
}

func (s *TravelService) SelectGuests(ctx context.Context, input GuestsInput) (*TurnResult, error) {
	if strings.TrimSpace(input.SessionID) == "" || input.Adults < 1 || input.Children < 0 {
		return nil, ErrInvalidInput
	}
	return s.turn(ctx, input.OwnerID, input.SessionID, GuestsFact(input.Adults, input.Children), guestsFailedText)
}

// DatesFact is the user message recorded when trip dates are picked.
func DatesFact(start, end string) string {
	return fmt.Sprintf("📅 I'd like to go from %s to %s", start, end)
}

// GuestsFact is the user message recorded when the party size is picked.
func GuestsFact(adults, children int) string {
	return fmt.Sprintf("👤 We're %d adult(s) and %d child(ren).", adults, children)
}

func (s *TravelService) turn(ctx context.Context, ownerID, sessionID, userText, failureText string) (*TurnResult, error) {
	messages, ok := s.sessions.LoadMessages(ctx, sessionID)
	if !ok || len(messages) == 0 {
		messages = []model.Message{WelcomeMessage()}
	}

	userMessage := model.Message{Role: model.RoleUser, Text: userText}
	history := ai.HistoryForServer(messages, &userMessage)
	messages = append(messages, userMessage)

	result := &TurnResult{}
	reply, err := s.assistant.Call(ctx, history)
	if err != nil {
		s.logger.Warn("travel assistant call failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		messages = append(messages, model.Message{Role: model.RoleAI, Text: failureText})
	} else {
		messages, result.Prompt = applyReply(messages, reply)
	}

	_, result.Saved = s.sessions.Save(ctx, messages, sessionID, ownerID)
	result.Messages = messages
	return result, nil
}

func applyReply(messages []model.Message, reply ai.Reply) ([]model.Message, string) {
	if reply.AIText != "" {
		messages = append(messages, model.Message{Role: model.RoleAI, Text: reply.AIText})
	}
	if reply.Signal == nil {
		return messages, ""
	}

	switch reply.Signal.Type {
	case ai.SignalDateNeeded:
		return messages, PromptDates
	case ai.SignalGuestsNeeded:
		return messages, PromptGuests
	case ai.SignalPlanReady:
		return appendPlan(messages, reply.Signal.Payload), ""
	}
	return messages, ""
}

// appendPlan adds a plan card followed by the hidden snapshot marker, unless
// the most recent plan card already shows the same plan.
func appendPlan(messages []model.Message, payload []byte) []model.Message {
	if len(payload) == 0 {
		return messages
	}
	card := model.Message{Role: model.RolePlan, Payload: append([]byte(nil), payload...)}

	if next, ok := card.Plan(); ok {
		for i := len(messages) - 1; i >= 0; i-- {
			if messages[i].Role != model.RolePlan {
				continue
			}
			if last, ok := messages[i].Plan(); ok && model.SamePlan(last, next) {
				return messages
			}
			break
		}
	}

	return append(messages,
		card,
		model.Message{Role: model.RoleUser, Text: model.PlanSnapshotMarker, Hidden: true},
	)
}
