package model

// Lane numbers a reserved foundation lane. The relay carries only lanes 0-3;
// custom lanes advertised in a manifest travel over direct peer connections.
type Lane int

const (
	LaneHandshake Lane = 0
	LaneIdentity  Lane = 1
	LaneKeepalive Lane = 2
	LaneTelemetry Lane = 3
)

// FoundationLanes is the fixed name->number mapping returned to clients so
// they can self-document lane numbers.
var FoundationLanes = map[string]Lane{
	"HANDSHAKE": LaneHandshake,
	"IDENTITY":  LaneIdentity,
	"KEEPALIVE": LaneKeepalive,
	"TELEMETRY": LaneTelemetry,
}

// Valid reports whether the lane is one of the four foundation lanes.
func (l Lane) Valid() bool {
	return l >= LaneHandshake && l <= LaneTelemetry
}
