package network

// Control events owned by the channel protocol itself. Game events are
// defined in the schema package.
const (
	EventJoin  = "join"
	EventLeave = "leave"
	EventReply = "reply"
)

// Reply statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// RoomTopic returns the channel topic for a room.
func RoomTopic(roomID string) string {
	return "room:" + roomID
}
