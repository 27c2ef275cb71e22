package schema

import (
	"encoding/json"
	"fmt"
	"math"
)

// CommandType discriminates outbound client pushes.
type CommandType string

const (
	CmdSendChallenge    CommandType = "send_challenge"
	CmdAcceptChallenge  CommandType = "accept_challenge"
	CmdDeclineChallenge CommandType = "decline_challenge"
	CmdPlaceBet         CommandType = "place_bet"
	CmdForfeitBet       CommandType = "forfeit_bet"
	CmdResetGame        CommandType = "reset_game"
)

// ClientCommand is the sealed union of outbound pushes.
type ClientCommand interface {
	isClientCommand()
	Type() CommandType
}

type SendChallenge struct {
	ChallengeDescription string `json:"challenge_description"`
}

type AcceptChallenge struct {
	Amount float64 `json:"amount"`
}

type DeclineChallenge struct{}

type PlaceBet struct {
	Amount float64 `json:"amount"`
}

type ForfeitBet struct{}

type ResetGame struct{}

func (SendChallenge) isClientCommand()    {}
func (AcceptChallenge) isClientCommand()  {}
func (DeclineChallenge) isClientCommand() {}
func (PlaceBet) isClientCommand()         {}
func (ForfeitBet) isClientCommand()       {}
func (ResetGame) isClientCommand()        {}

func (SendChallenge) Type() CommandType    { return CmdSendChallenge }
func (AcceptChallenge) Type() CommandType  { return CmdAcceptChallenge }
func (DeclineChallenge) Type() CommandType { return CmdDeclineChallenge }
func (PlaceBet) Type() CommandType         { return CmdPlaceBet }
func (ForfeitBet) Type() CommandType       { return CmdForfeitBet }
func (ResetGame) Type() CommandType        { return CmdResetGame }

// EncodeCommand validates an outbound command and renders its event
// name and wire payload. Invalid commands never reach the wire.
func EncodeCommand(cmd ClientCommand) (string, json.RawMessage, error) {
	event := string(cmd.Type())

	switch c := cmd.(type) {
	case *SendChallenge:
		if c.ChallengeDescription == "" {
			return "", nil, &ValidationError{Event: event, Reason: "missing challenge_description"}
		}
	case *AcceptChallenge:
		if err := validOutboundAmount(event, c.Amount); err != nil {
			return "", nil, err
		}
	case *PlaceBet:
		if err := validOutboundAmount(event, c.Amount); err != nil {
			return "", nil, err
		}
	case *DeclineChallenge, *ForfeitBet, *ResetGame:
		// No payload fields.
	default:
		return "", nil, &ValidationError{Event: event, Reason: fmt.Sprintf("unsupported command %T", cmd)}
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		return "", nil, &ValidationError{Event: event, Reason: err.Error()}
	}
	return event, payload, nil
}

func validOutboundAmount(event string, v float64) error {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return &ValidationError{Event: event, Reason: "amount must be a positive number"}
	}
	return nil
}
