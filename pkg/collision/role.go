package collision

// Role declares which direction of collision checking applies to a body
type Role int

const (
	// HitOnly bodies check against others but are never checked against.
	// Useful for bullets, which never need to test each other.
	HitOnly Role = iota + 1
	// HitAndReceive bodies both initiate checks and can be struck
	HitAndReceive
	// ReceiveOnly bodies can be struck but never initiate a check
	ReceiveOnly
	// Stationary bodies never move and occupy every cell their bounds cover
	Stationary
)

// String returns the role name
func (r Role) String() string {
	switch r {
	case HitOnly:
		return "HitOnly"
	case HitAndReceive:
		return "HitAndReceive"
	case ReceiveOnly:
		return "ReceiveOnly"
	case Stationary:
		return "Stationary"
	default:
		return "Unknown"
	}
}

// Valid reports whether r is one of the defined roles
func (r Role) Valid() bool {
	return r >= HitOnly && r <= Stationary
}

// Initiates reports whether bodies with this role start pair checks
func (r Role) Initiates() bool {
	return r == HitOnly || r == HitAndReceive
}

// Receives reports whether bodies with this role are stored in the grid and
// can be the target of a check
func (r Role) Receives() bool {
	return r == HitAndReceive || r == ReceiveOnly || r == Stationary
}
