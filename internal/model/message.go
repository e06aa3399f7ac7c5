package model

import (
	"bytes"
	"encoding/json"
)

const (
	RoleUser = "user"
	RoleAI   = "ai"
	RolePlan = "plan"
)

// PlanSnapshotMarker is the hidden user message appended after a plan card so
// the assistant only considers new information for the next plan.
const PlanSnapshotMarker = "[PLAN_SNAPSHOT]"

type Message struct {
	Role    string          `json:"role"`
	Text    string          `json:"text,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Hidden  bool            `json:"hidden,omitempty"`
}

// TripPlan is the payload of a "plan" message.
type TripPlan struct {
	Location    string          `json:"location,omitempty"`
	Dates       string          `json:"dates,omitempty"`
	Description string          `json:"description,omitempty"`
	Image       string          `json:"image,omitempty"`
	Price       json.RawMessage `json:"price,omitempty"`
}

// Plan decodes the payload of a plan message. ok is false for other roles or
// payloads that are not a JSON object.
func (m Message) Plan() (TripPlan, bool) {
	if m.Role != RolePlan || len(m.Payload) == 0 {
		return TripPlan{}, false
	}
	var plan TripPlan
	if err := json.Unmarshal(m.Payload, &plan); err != nil {
		return TripPlan{}, false
	}
	return plan, true
}

// SamePlan reports whether two plans would render as the same card.
func SamePlan(a, b TripPlan) bool {
	return a.Location == b.Location &&
		a.Dates == b.Dates &&
		a.Description == b.Description &&
		a.Image == b.Image &&
		sameJSON(a.Price, b.Price)
}

// sameJSON compares two JSON values ignoring insignificant whitespace.
func sameJSON(a, b json.RawMessage) bool {
	var ca, cb bytes.Buffer
	if json.Compact(&ca, a) != nil || json.Compact(&cb, b) != nil {
		return bytes.Equal(a, b)
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}
