package contract

// exchange converts an amount of one pool asset into the other.
// Shares are pegged 1:1 to the reserve asset in both directions; a
// proportional share price would replace this function.
func exchange(amount uint64) uint64 {
	return amount
}
