// Package state projects the sequence of validated server events onto
// the challenge/bet lifecycle. Apply is a pure reducer: no I/O, no
// hidden state, same inputs always produce the same snapshot.
package state

import (
	"errors"
	"fmt"

	"github.com/wfunc/betduel/room"
	"github.com/wfunc/betduel/schema"
)

type Phase string

const (
	PhaseIdle              Phase = "idle"
	PhaseChallengeSent     Phase = "challenge_sent"
	PhaseChallengeReceived Phase = "challenge_received"
	PhaseChallengeAccepted Phase = "challenge_accepted"
	PhaseChallengeDeclined Phase = "challenge_declined"
	// PhaseBetPlaced is declared for completeness of the lifecycle
	// enumeration. Placing a bet only flips the dispatcher's
	// awaiting-peer flag; the phase advances when bet_completed
	// arrives.
	PhaseBetPlaced    Phase = "bet_placed"
	PhaseBetCompleted Phase = "bet_completed"
)

// Snapshot couples the coarse lifecycle phase with the room payload
// projection and the session identity.
type Snapshot struct {
	Phase  Phase
	Room   room.Info
	UserID string
}

func NewSnapshot() Snapshot {
	return Snapshot{Phase: PhaseIdle}
}

// IsChallenger derives the local role from the current snapshot.
func (s Snapshot) IsChallenger() bool {
	return s.Room.IsChallenger(s.UserID)
}

var ErrUnhandledEvent = errors.New("unhandled event type")

// Apply returns the snapshot after one inbound event. Transitions are
// keyed on the event type alone, not the prior phase; the server is
// trusted to emit well-ordered sequences. Callers that want to notice
// causal oddities check Expected before applying.
func Apply(s Snapshot, evt schema.ServerEvent) (Snapshot, error) {
	next := s

	switch e := evt.(type) {
	case *schema.UserJoined:
		next.Room = e.Room

	case *schema.ChallengeReceived:
		next.Phase = PhaseChallengeReceived
		next.Room.ChallengeDescription = e.ChallengeDescription

	case *schema.ChallengeAccepted:
		next.Phase = PhaseChallengeAccepted
		next.Room.ChallengeAmount = e.Amount

	case *schema.ChallengeDeclined:
		next.Phase = PhaseChallengeDeclined

	case *schema.BetCompleted:
		next.Phase = PhaseBetCompleted
		next.Room.BetStatus = e.Status
		next.Room.ChallengerBetAmount = e.ChallengerAmount
		next.Room.ChallengedBetAmount = e.ChallengedAmount

	case *schema.UserLeft:
		next.Phase = PhaseIdle
		next.Room = next.Room.Clear()

	case *schema.GameReset:
		next = Reset(next)

	default:
		return s, fmt.Errorf("%w: %T", ErrUnhandledEvent, evt)
	}

	return next, nil
}

// Reset returns the snapshot to idle, clearing one lifecycle's
// challenge/bet fields while keeping the room and both identities.
// The server's game_reset and the dispatcher's optimistic local reset
// both run through here, so applying it twice is a no-op.
func Reset(s Snapshot) Snapshot {
	s.Phase = PhaseIdle
	s.Room = s.Room.ResetTransient()
	return s
}

// expectedPhases lists the prior phases each event is causally
// consistent with. Nil means any phase is fine.
var expectedPhases = map[schema.EventType][]Phase{
	schema.EvtUserJoined:        nil,
	schema.EvtChallengeReceived: {PhaseIdle, PhaseChallengeSent},
	schema.EvtChallengeAccepted: {PhaseChallengeSent, PhaseChallengeReceived},
	schema.EvtChallengeDeclined: {PhaseChallengeSent, PhaseChallengeReceived},
	schema.EvtBetCompleted:      {PhaseChallengeAccepted, PhaseBetPlaced},
	schema.EvtUserLeft:          nil,
	schema.EvtGameReset:         nil,
}

// Expected reports whether evt arriving in phase matches causal
// history. A false result is worth a warning, not a rejection.
func Expected(phase Phase, evt schema.EventType) bool {
	allowed, ok := expectedPhases[evt]
	if !ok || allowed == nil {
		return true
	}
	for _, p := range allowed {
		if p == phase {
			return true
		}
	}
	return false
}
