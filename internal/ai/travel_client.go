package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"travelchat/internal/model"
)

// Signal types the assistant attaches to a reply.
const (
	SignalDateNeeded   = "dateNeeded"
	SignalGuestsNeeded = "guestsNeeded"
	SignalPlanReady    = "planReady"
)

type Signal struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Reply struct {
	AIText string  `json:"aiText"`
	Signal *Signal `json:"signal,omitempty"`
}

// TravelClient talks to the hosted travel assistant.
type TravelClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewTravelClient(baseURL string, timeout time.Duration) *TravelClient {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &TravelClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Call sends the chat history and returns the assistant's next turn.
func (c *TravelClient) Call(ctx context.Context, history []model.Message) (Reply, error) {
	bodyBytes, err := json.Marshal(map[string]any{"messages": history})
	if err != nil {
		return Reply{}, fmt.Errorf("marshal travel request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/travel", bytes.NewReader(bodyBytes))
	if err != nil {
		return Reply{}, fmt.Errorf("build travel request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("travel request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Reply{}, fmt.Errorf("read travel response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return Reply{}, fmt.Errorf("travel response status %d: %s", resp.StatusCode, string(raw))
	}

	var reply Reply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return Reply{}, fmt.Errorf("parse travel json failed: %w", err)
	}
	return reply, nil
}

// HistoryForServer drops plan cards, which the assistant never needs back,
// and appends extra when given.
func HistoryForServer(messages []model.Message, extra *model.Message) []model.Message {
	out := make([]model.Message, 0, len(messages)+1)
	for _, m := range messages {
		if m.Role == model.RolePlan {
			continue
		}
		out = append(out, m)
	}
	if extra != nil {
		out = append(out, *extra)
	}
	return out
}
