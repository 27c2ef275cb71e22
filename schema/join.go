package schema

import (
	"encoding/json"

	"github.com/wfunc/betduel/room"
)

// JoinRequest is the payload of the join push. UserID carries a
// previously persisted identity so the server can restore the
// caller's role after a reconnect; omitted on a first join.
type JoinRequest struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id,omitempty"`
}

// JoinResponse is the ok-reply body of a join push.
type JoinResponse struct {
	RoomInfo room.Info `json:"room_info"`
	UserID   string    `json:"user_id"`
}

// PushReply is the server's answer to any client push, correlated by
// the echoed frame ref.
type PushReply struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response,omitempty"`
}

func DecodeJoinResponse(payload json.RawMessage) (*JoinResponse, error) {
	var resp JoinResponse
	if err := strictDecode(payload, &resp); err != nil {
		return nil, &ValidationError{Event: "join", Reason: err.Error()}
	}
	if resp.UserID == "" {
		return nil, &ValidationError{Event: "join", Reason: "missing user_id"}
	}
	if resp.RoomInfo.RoomID == "" {
		return nil, &ValidationError{Event: "join", Reason: "missing room_info.room_id"}
	}
	return &resp, nil
}

func DecodePushReply(payload json.RawMessage) (*PushReply, error) {
	var reply PushReply
	if err := strictDecode(payload, &reply); err != nil {
		return nil, &ValidationError{Event: "reply", Reason: err.Error()}
	}
	if reply.Status == "" {
		return nil, &ValidationError{Event: "reply", Reason: "missing status"}
	}
	return &reply, nil
}
