package flight

import "strings"

// Aircraft is the airframe a pilot flies. The set is closed.
type Aircraft string

const (
	Raptor Aircraft = "raptor"
	Dragon Aircraft = "dragon"

	DefaultAircraft = Raptor
)

// ParseAircraft maps s onto the closed set, falling back to DefaultAircraft.
func ParseAircraft(s string) Aircraft {
	switch a := Aircraft(strings.ToLower(strings.TrimSpace(s))); a {
	case Raptor, Dragon:
		return a
	}
	return DefaultAircraft
}
