package recital

import "time"

// Session captures one ongoing recitation conversation.
type Session struct {
	ID             string    `json:"id"`
	Topic          string    `json:"topic,omitempty"`
	Language       string    `json:"language"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActivity   time.Time `json:"lastActivity"`
	History        []string  `json:"history"`
	LastTranscript string    `json:"lastTranscript,omitempty"`
	// TransportRef names the live connection bound to the session, if any.
	// The session never owns the connection and the ref may be stale.
	TransportRef string `json:"-"`
}

// RecentHistory returns at most n of the latest history entries.
func (s Session) RecentHistory(n int) []string {
	if n <= 0 || len(s.History) == 0 {
		return nil
	}
	start := len(s.History) - n
	if start < 0 {
		start = 0
	}
	return s.History[start:]
}
