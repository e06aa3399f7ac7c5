package model

import "sort"

// Session is one persisted trip-planning chat.
type Session struct {
	ID          string    `json:"id"`
	Preview     string    `json:"preview"`
	Timestamp   int64     `json:"timestamp"` // unix milliseconds
	Messages    []Message `json:"messages"`
	CustomTitle bool      `json:"customTitle"`
}

// MinPersistedMessages is the smallest history that counts as a started chat.
// A session holding only the welcome message is never written anywhere.
const MinPersistedMessages = 2

// SortByRecent orders sessions by timestamp, most recent first.
// Ties keep no particular order.
func SortByRecent(sessions []Session) {
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Timestamp > sessions[j].Timestamp
	})
}

// SessionList flattens a session map into a list sorted by SortByRecent.
func SessionList(byID map[string]Session) []Session {
	list := make([]Session, 0, len(byID))
	for _, s := range byID {
		list = append(list, s)
	}
	SortByRecent(list)
	return list
}
