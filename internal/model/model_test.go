package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionList_SortsMostRecentFirst(t *testing.T) {
	list := SessionList(map[string]Session{
		"a": {ID: "a", Timestamp: 100},
		"b": {ID: "b", Timestamp: 300},
		"c": {ID: "c", Timestamp: 200},
	})

	require.Len(t, list, 3)
	assert.Equal(t, []string{"b", "c", "a"}, []string{list[0].ID, list[1].ID, list[2].ID})
	assert.NotNil(t, SessionList(nil))
}

func TestMessagePlan(t *testing.T) {
	m := Message{Role: RolePlan, Payload: json.RawMessage(`{"location":"Oslo","price":"$900"}`)}
	plan, ok := m.Plan()
	require.True(t, ok)
	assert.Equal(t, "Oslo", plan.Location)
	assert.JSONEq(t, `"$900"`, string(plan.Price))

	_, ok = Message{Role: RoleUser, Payload: m.Payload}.Plan()
	assert.False(t, ok)
	_, ok = Message{Role: RolePlan, Payload: json.RawMessage(`[1,2]`)}.Plan()
	assert.False(t, ok)
	_, ok = Message{Role: RolePlan}.Plan()
	assert.False(t, ok)
}

func TestSamePlan(t *testing.T) {
	a := TripPlan{Location: "Oslo", Dates: "May", Price: json.RawMessage(`900`)}
	b := a
	assert.True(t, SamePlan(a, b))

	b.Price = json.RawMessage(`950`)
	assert.False(t, SamePlan(a, b))

	b.Price = json.RawMessage("{ \"amount\": 900,\n \"currency\": \"EUR\" }")
	a.Price = json.RawMessage(`{"amount":900,"currency":"EUR"}`)
	assert.True(t, SamePlan(a, b))

	b = a
	b.Description = "fjords"
	assert.False(t, SamePlan(a, b))
}
