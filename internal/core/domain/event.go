package domain

import "time"

// AuthEventKind names the credential operation an audit event records.
type AuthEventKind string

const (
	EventRegister AuthEventKind = "register"
	EventLogin    AuthEventKind = "login"
)

// AuthEventOutcome is the result of the recorded operation.
type AuthEventOutcome string

const (
	OutcomeSuccess AuthEventOutcome = "success"
	OutcomeFailure AuthEventOutcome = "failure"
)

// AuthEvent is an audit record of a register or login attempt. It never
// carries passwords, hashes or tokens.
type AuthEvent struct {
	ID         string
	Username   string
	Kind       AuthEventKind
	Outcome    AuthEventOutcome
	Reason     string // optional, e.g. "duplicate_username"
	RemoteIP   string
	OccurredAt time.Time
}
