package room

// BetStatus is the server-reported outcome of a completed bet.
type BetStatus string

const (
	BetCompleted    BetStatus = "completed"
	BetNotCompleted BetStatus = "not_completed"
)

func (s BetStatus) Valid() bool {
	return s == BetCompleted || s == BetNotCompleted
}

// Info is the client's snapshot of the shared room state. The server
// is authoritative; the snapshot is replaced wholesale on join and
// patched field by field as events arrive. Zero values stand for the
// wire's nulls.
type Info struct {
	RoomID               string    `json:"room_id"`
	ChallengerID         string    `json:"challenger_id"`
	ChallengedID         string    `json:"challenged_id"`
	ChallengeAmount      float64   `json:"challenge_amount"`
	ChallengeDescription string    `json:"challenge_description"`
	ChallengerBetAmount  float64   `json:"challenger_bet_amount"`
	ChallengedBetAmount  float64   `json:"challenged_bet_amount"`
	BetStatus            BetStatus `json:"bet_status"`
	CreatedAt            int64     `json:"created_at"`
}

// IsChallenger derives the caller's role. Roles are recomputed from
// the current snapshot on every use, never cached, because a rejoin
// can hand the session a different identity.
func (i Info) IsChallenger(userID string) bool {
	return userID != "" && userID == i.ChallengerID
}

// Clear wipes the snapshot entirely (user_left).
func (i Info) Clear() Info {
	return Info{}
}

// ResetTransient drops the challenge/bet fields of one lifecycle while
// preserving the room identity and both participants (game_reset).
func (i Info) ResetTransient() Info {
	return Info{
		RoomID:       i.RoomID,
		ChallengerID: i.ChallengerID,
		ChallengedID: i.ChallengedID,
		CreatedAt:    i.CreatedAt,
	}
}
