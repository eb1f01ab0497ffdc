package chatclient

// State is the lifecycle state of a RoomConnection.
type State int32

const (
	StateConnecting State = iota // handshake in progress
	StateOpen                    // handshake done, frames flowing
	StateClosed                  // terminal; no reconnect is attempted
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateOpen:
		return "Open"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Label is the user-facing status text for a connection indicator.
func (s State) Label() string {
	switch s {
	case StateOpen:
		return "Connected"
	case StateConnecting:
		return "Connecting..."
	default:
		return "Disconnected"
	}
}
