// Package action translates user intent into validated outbound
// pushes. Preconditions are checked locally so obviously invalid
// input never costs a round-trip; the server re-validates everything
// regardless.
package action

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/wfunc/betduel/schema"
	"github.com/wfunc/betduel/session"
)

// PreconditionError is a local validation failure. It never reaches
// the wire; surface it inline to the user.
type PreconditionError struct {
	Action string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Action, e.Reason)
}

// Dispatcher owns the transient drafts of pending user input. Drafts
// are local only; nothing here is shared room state.
type Dispatcher struct {
	sess *session.Session

	mutex            sync.Mutex
	descriptionDraft string
	acceptDraft      float64
	betDraft         float64
	awaitingPeer     bool
}

func NewDispatcher(sess *session.Session) *Dispatcher {
	return &Dispatcher{sess: sess}
}

// AwaitingPeer reports whether the local party has committed a bet
// and is waiting for the server to confirm both sides. It gates the
// bet input, not the lifecycle phase.
func (d *Dispatcher) AwaitingPeer() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.awaitingPeer
}

// SendChallenge pushes a challenge description. The description must
// be non-empty after trimming.
func (d *Dispatcher) SendChallenge(ctx context.Context, description string) error {
	trimmed := strings.TrimSpace(description)
	if trimmed == "" {
		return &PreconditionError{Action: string(schema.CmdSendChallenge), Reason: "description must not be empty"}
	}

	d.mutex.Lock()
	d.descriptionDraft = trimmed
	d.mutex.Unlock()

	if err := d.sess.Send(ctx, &schema.SendChallenge{ChallengeDescription: trimmed}); err != nil {
		return err
	}
	d.sess.MarkChallengeSent()
	return nil
}

// AcceptChallenge commits the challenged party with a positive stake.
func (d *Dispatcher) AcceptChallenge(ctx context.Context, amount float64) error {
	if err := positive(schema.CmdAcceptChallenge, amount); err != nil {
		return err
	}

	d.mutex.Lock()
	d.acceptDraft = amount
	d.mutex.Unlock()

	return d.sess.Send(ctx, &schema.AcceptChallenge{Amount: amount})
}

func (d *Dispatcher) DeclineChallenge(ctx context.Context) error {
	return d.sess.Send(ctx, &schema.DeclineChallenge{})
}

// PlaceBet pushes this party's bet. The amount must be positive and
// strictly less than the accepted challenge amount; betting the full
// stake or more is rejected locally.
func (d *Dispatcher) PlaceBet(ctx context.Context, amount float64) error {
	if err := positive(schema.CmdPlaceBet, amount); err != nil {
		return err
	}

	challengeAmount := d.sess.Snapshot().Room.ChallengeAmount
	if challengeAmount <= 0 {
		return &PreconditionError{Action: string(schema.CmdPlaceBet), Reason: "no accepted challenge to bet on"}
	}
	if amount >= challengeAmount {
		return &PreconditionError{
			Action: string(schema.CmdPlaceBet),
			Reason: fmt.Sprintf("bet must be less than the challenge amount (%v)", challengeAmount),
		}
	}

	d.mutex.Lock()
	d.betDraft = amount
	d.mutex.Unlock()

	if err := d.sess.Send(ctx, &schema.PlaceBet{Amount: amount}); err != nil {
		return err
	}

	// Each party commits independently; the phase advances only when
	// the server reports bet_completed.
	d.mutex.Lock()
	d.awaitingPeer = true
	d.mutex.Unlock()
	return nil
}

func (d *Dispatcher) ForfeitBet(ctx context.Context) error {
	return d.sess.Send(ctx, &schema.ForfeitBet{})
}

// ResetGame clears the local lifecycle immediately and then notifies
// the server. The local clear is the one deliberate optimistic
// mutation in the client; the server's game_reset event replays the
// same logic onto an already-reset snapshot.
func (d *Dispatcher) ResetGame(ctx context.Context) error {
	d.clearDrafts()
	d.sess.ApplyLocalReset()
	return d.sess.Send(ctx, &schema.ResetGame{})
}

func (d *Dispatcher) clearDrafts() {
	d.mutex.Lock()
	d.descriptionDraft = ""
	d.acceptDraft = 0
	d.betDraft = 0
	d.awaitingPeer = false
	d.mutex.Unlock()
}

func positive(cmd schema.CommandType, amount float64) error {
	if amount <= 0 {
		return &PreconditionError{Action: string(cmd), Reason: "amount must be a positive number"}
	}
	return nil
}
