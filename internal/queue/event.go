// Package queue defines message payloads exchanged over the message broker.
package queue

// Event kinds carried by AccountEvent.
const (
	KindClaimed  = "claimed"
	KindReported = "reported"
)

// AccountEvent is published whenever an account is claimed or an outcome is
// reported. It contains enough information for downstream consumers to log,
// notify, or trigger analytics without querying the backing table. Outcome
// and State are only set on "reported" events.
type AccountEvent struct {
	Kind       string `json:"kind"`
	Requester  string `json:"requester"`
	Username   string `json:"username"`
	Row        int    `json:"row"`
	Region     string `json:"region,omitempty"`
	Outcome    string `json:"outcome,omitempty"`
	State      string `json:"state,omitempty"`
	OccurredAt string `json:"occurred_at"`
}
