// Package queue defines message payloads exchanged over the message broker
// and the background consumer that records them.
package queue

// AccountEvent is published when an account is created or deleted. Kind is
// one of "registered", "oauth_login" or "deleted". It carries enough
// for downstream consumers (audit, mailing) without querying the database.
type AccountEvent struct {
	Kind       string `json:"kind"`
	UserID     string `json:"user_id"`
	Email      string `json:"email,omitempty"`
	Provider   string `json:"provider,omitempty"`
	OccurredAt string `json:"occurred_at"`
}
