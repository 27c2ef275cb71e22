// Package schema defines the exact shape of every message crossing the
// room channel and validates it at the boundary. Server payloads use
// snake_case field names; the json tags here perform the one-to-one
// renaming to Go-cased fields, once, at decode/encode time.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/wfunc/betduel/room"
)

// EventType discriminates inbound server events.
type EventType string

const (
	EvtUserJoined        EventType = "user_joined"
	EvtChallengeReceived EventType = "challenge_received"
	EvtChallengeAccepted EventType = "challenge_accepted"
	EvtChallengeDeclined EventType = "challenge_declined"
	EvtBetCompleted      EventType = "bet_completed"
	EvtUserLeft          EventType = "user_left"
	EvtGameReset         EventType = "game_reset"
)

// ServerEventTypes is the closed set of game events a joined channel
// delivers. The session subscribes to exactly these.
var ServerEventTypes = []EventType{
	EvtUserJoined,
	EvtChallengeReceived,
	EvtChallengeAccepted,
	EvtChallengeDeclined,
	EvtBetCompleted,
	EvtUserLeft,
	EvtGameReset,
}

// ValidationError reports a payload that does not match its declared
// event shape. The offending message is dropped; it never reaches the
// state machine.
type ValidationError struct {
	Event  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %q payload: %s", e.Event, e.Reason)
}

// ServerEvent is the sealed union of inbound game events.
type ServerEvent interface {
	isServerEvent()
	Type() EventType
}

type UserJoined struct {
	Room room.Info
}

type ChallengeReceived struct {
	ChallengeDescription string `json:"challenge_description"`
}

type ChallengeAccepted struct {
	Amount float64 `json:"amount"`
}

type ChallengeDeclined struct {
	DeclinedBy string `json:"declined_by"`
}

type BetCompleted struct {
	Status           room.BetStatus `json:"status"`
	ChallengerAmount float64        `json:"challenger_amount"`
	ChallengedAmount float64        `json:"challenged_amount"`
}

type UserLeft struct {
	UserID string `json:"user_id"`
}

type GameReset struct{}

func (UserJoined) isServerEvent()        {}
func (ChallengeReceived) isServerEvent() {}
func (ChallengeAccepted) isServerEvent() {}
func (ChallengeDeclined) isServerEvent() {}
func (BetCompleted) isServerEvent()      {}
func (UserLeft) isServerEvent()          {}
func (GameReset) isServerEvent()         {}

func (UserJoined) Type() EventType        { return EvtUserJoined }
func (ChallengeReceived) Type() EventType { return EvtChallengeReceived }
func (ChallengeAccepted) Type() EventType { return EvtChallengeAccepted }
func (ChallengeDeclined) Type() EventType { return EvtChallengeDeclined }
func (BetCompleted) Type() EventType      { return EvtBetCompleted }
func (UserLeft) Type() EventType          { return EvtUserLeft }
func (GameReset) Type() EventType         { return EvtGameReset }

// DecodeServerEvent parses and validates an inbound game event. Any
// failure returns a *ValidationError; nothing is partially applied.
//
// Validation here is shape-only. Identifier fields must be non-empty
// because strictDecode cannot tell an absent field from an empty
// string; amount fields accept any number, the server owns their
// business rules (a forfeited bet legitimately completes with zero
// amounts).
func DecodeServerEvent(event string, payload json.RawMessage) (ServerEvent, error) {
	switch EventType(event) {
	case EvtUserJoined:
		var ev UserJoined
		if err := strictDecode(payload, &ev.Room); err != nil {
			return nil, &ValidationError{Event: event, Reason: err.Error()}
		}
		if ev.Room.RoomID == "" {
			return nil, &ValidationError{Event: event, Reason: "missing room_id"}
		}
		return &ev, nil

	case EvtChallengeReceived:
		var ev ChallengeReceived
		if err := strictDecode(payload, &ev); err != nil {
			return nil, &ValidationError{Event: event, Reason: err.Error()}
		}
		if ev.ChallengeDescription == "" {
			return nil, &ValidationError{Event: event, Reason: "missing challenge_description"}
		}
		return &ev, nil

	case EvtChallengeAccepted:
		var ev ChallengeAccepted
		if err := strictDecode(payload, &ev); err != nil {
			return nil, &ValidationError{Event: event, Reason: err.Error()}
		}
		return &ev, nil

	case EvtChallengeDeclined:
		var ev ChallengeDeclined
		if err := strictDecode(payload, &ev); err != nil {
			return nil, &ValidationError{Event: event, Reason: err.Error()}
		}
		if ev.DeclinedBy == "" {
			return nil, &ValidationError{Event: event, Reason: "missing declined_by"}
		}
		return &ev, nil

	case EvtBetCompleted:
		var ev BetCompleted
		if err := strictDecode(payload, &ev); err != nil {
			return nil, &ValidationError{Event: event, Reason: err.Error()}
		}
		if !ev.Status.Valid() {
			return nil, &ValidationError{Event: event, Reason: fmt.Sprintf("bad status %q", ev.Status)}
		}
		return &ev, nil

	case EvtUserLeft:
		var ev UserLeft
		if err := strictDecode(payload, &ev); err != nil {
			return nil, &ValidationError{Event: event, Reason: err.Error()}
		}
		if ev.UserID == "" {
			return nil, &ValidationError{Event: event, Reason: "missing user_id"}
		}
		return &ev, nil

	case EvtGameReset:
		var ev GameReset
		if err := strictDecode(payload, &ev); err != nil {
			return nil, &ValidationError{Event: event, Reason: err.Error()}
		}
		return &ev, nil

	default:
		return nil, &ValidationError{Event: event, Reason: "unknown event"}
	}
}

// strictDecode rejects unknown fields and trailing garbage so a shape
// mismatch can never be silently coerced away.
func strictDecode(payload json.RawMessage, v interface{}) error {
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data after payload")
	}
	return nil
}
