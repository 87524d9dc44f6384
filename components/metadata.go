package components

var navStateNames = [...]string{"idle", "active", "arrived"}

// String returns the display name for a NavState.
func (s NavState) String() string {
	if int(s) < len(navStateNames) {
		return navStateNames[s]
	}
	return "unknown"
}

// NavStateNames returns the display names for all navigation states.
// The order matches the NavState constants.
func NavStateNames() []string {
	return navStateNames[:]
}

// NavStateCount returns the number of navigation states.
func NavStateCount() int {
	return len(navStateNames)
}
