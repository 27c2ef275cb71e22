package state

import (
	"reflect"
	"testing"

	"github.com/wfunc/betduel/room"
	"github.com/wfunc/betduel/schema"
)

func snapshotInRoom() Snapshot {
	return Snapshot{
		Phase:  PhaseIdle,
		UserID: "u1",
		Room: room.Info{
			RoomID:       "r1",
			ChallengerID: "u1",
			ChallengedID: "u2",
			CreatedAt:    1700000000,
		},
	}
}

func TestApply_UserJoinedReplacesRoomWholesale(t *testing.T) {
	s := snapshotInRoom()
	s.Room.ChallengeDescription = "stale"

	next, err := Apply(s, &schema.UserJoined{Room: room.Info{RoomID: "r1", ChallengerID: "u1"}})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if next.Phase != PhaseIdle {
		t.Errorf("user_joined must not change the phase, got %s", next.Phase)
	}
	if next.Room.ChallengeDescription != "" {
		t.Error("user_joined must replace the room snapshot wholesale")
	}
	if next.Room.ChallengedID != "" {
		t.Error("Fields absent from the new snapshot must not survive")
	}
}

func TestApply_ChallengeReceived(t *testing.T) {
	next, err := Apply(snapshotInRoom(), &schema.ChallengeReceived{ChallengeDescription: "coin flip"})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if next.Phase != PhaseChallengeReceived {
		t.Errorf("Expected phase challenge_received, got %s", next.Phase)
	}
	if next.Room.ChallengeDescription != "coin flip" {
		t.Errorf("Expected description %q, got %q", "coin flip", next.Room.ChallengeDescription)
	}
}

func TestApply_ChallengeAccepted(t *testing.T) {
	next, err := Apply(snapshotInRoom(), &schema.ChallengeAccepted{Amount: 40})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if next.Phase != PhaseChallengeAccepted {
		t.Errorf("Expected phase challenge_accepted, got %s", next.Phase)
	}
	if next.Room.ChallengeAmount != 40 {
		t.Errorf("Expected challenge amount 40, got %v", next.Room.ChallengeAmount)
	}
}

func TestApply_ChallengeDeclined(t *testing.T) {
	next, err := Apply(snapshotInRoom(), &schema.ChallengeDeclined{DeclinedBy: "u2"})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if next.Phase != PhaseChallengeDeclined {
		t.Errorf("Expected phase challenge_declined, got %s", next.Phase)
	}
}

func TestApply_BetCompleted(t *testing.T) {
	next, err := Apply(snapshotInRoom(), &schema.BetCompleted{
		Status:           room.BetCompleted,
		ChallengerAmount: 50,
		ChallengedAmount: 30,
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if next.Phase != PhaseBetCompleted {
		t.Errorf("Expected phase bet_completed, got %s", next.Phase)
	}
	if next.Room.ChallengerBetAmount != 50 || next.Room.ChallengedBetAmount != 30 {
		t.Errorf("Bet amounts not applied: %+v", next.Room)
	}
	if next.Room.BetStatus != room.BetCompleted {
		t.Errorf("Expected bet status completed, got %q", next.Room.BetStatus)
	}
}

func TestApply_UserLeftClearsEverything(t *testing.T) {
	s := snapshotInRoom()
	s.Phase = PhaseChallengeAccepted
	s.Room.ChallengeAmount = 40

	next, err := Apply(s, &schema.UserLeft{UserID: "u2"})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if next.Phase != PhaseIdle {
		t.Errorf("Expected phase idle, got %s", next.Phase)
	}
	if !reflect.DeepEqual(next.Room, room.Info{}) {
		t.Errorf("user_left must clear the room snapshot, got %+v", next.Room)
	}
}

func TestApply_GameResetPreservesIdentities(t *testing.T) {
	s := snapshotInRoom()
	s.Phase = PhaseBetCompleted
	s.Room.ChallengeAmount = 40
	s.Room.ChallengeDescription = "coin flip"
	s.Room.ChallengerBetAmount = 20
	s.Room.ChallengedBetAmount = 10
	s.Room.BetStatus = room.BetCompleted

	next, err := Apply(s, &schema.GameReset{})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if next.Phase != PhaseIdle {
		t.Errorf("Expected phase idle, got %s", next.Phase)
	}
	if next.Room.ChallengerID != "u1" || next.Room.ChallengedID != "u2" {
		t.Error("game_reset must preserve participant identities")
	}
	if next.Room.RoomID != "r1" || next.Room.CreatedAt != 1700000000 {
		t.Error("game_reset must preserve the room identity")
	}
	if next.Room.ChallengeAmount != 0 || next.Room.ChallengeDescription != "" || next.Room.BetStatus != "" {
		t.Errorf("game_reset must clear transient fields, got %+v", next.Room)
	}
}

func TestApply_ResetIsIdempotent(t *testing.T) {
	s := snapshotInRoom()
	s.Phase = PhaseBetCompleted
	s.Room.ChallengeAmount = 40

	once, err := Apply(s, &schema.GameReset{})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	twice, err := Apply(once, &schema.GameReset{})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Applying game_reset twice must be a no-op: %+v vs %+v", once, twice)
	}

	// The optimistic local reset runs the same logic, so a local reset
	// followed by the server event lands on the same snapshot.
	local := Reset(s)
	if !reflect.DeepEqual(local, once) {
		t.Errorf("Local reset and server reset must agree: %+v vs %+v", local, once)
	}
}

func TestApply_IsDeterministic(t *testing.T) {
	s := snapshotInRoom()
	evt := &schema.ChallengeAccepted{Amount: 40}

	first, err1 := Apply(s, evt)
	second, err2 := Apply(s, evt)
	if err1 != nil || err2 != nil {
		t.Fatalf("Apply failed: %v %v", err1, err2)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Apply must be pure: %+v vs %+v", first, second)
	}
	if s.Room.ChallengeAmount != 0 {
		t.Error("Apply must not mutate its input snapshot")
	}
}

func TestRoleDerivation(t *testing.T) {
	s := snapshotInRoom()
	if !s.IsChallenger() {
		t.Error("u1 should be the challenger")
	}

	s.UserID = "u2"
	if s.IsChallenger() {
		t.Error("u2 should be the challenged party")
	}

	s.UserID = ""
	if s.IsChallenger() {
		t.Error("An unassigned identity is never the challenger")
	}
}

func TestExpectedPhases(t *testing.T) {
	if !Expected(PhaseIdle, schema.EvtChallengeReceived) {
		t.Error("challenge_received from idle is causally expected")
	}
	if Expected(PhaseIdle, schema.EvtBetCompleted) {
		t.Error("bet_completed from idle should be flagged as unexpected")
	}
	if !Expected(PhaseBetCompleted, schema.EvtGameReset) {
		t.Error("game_reset is expected from any phase")
	}
	if !Expected(PhaseChallengeAccepted, schema.EvtUserJoined) {
		t.Error("user_joined is expected from any phase")
	}
}
