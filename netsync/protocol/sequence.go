package protocol

// SeqGreater reports whether a is newer than b, treating values more than
// half the sequence space apart as having wrapped.
func SeqGreater(a, b uint16) bool {
	if a > b {
		return a-b <= HalfSequence
	}
	if a < b {
		return b-a > HalfSequence
	}
	return false
}

// SeqDiff returns the forward distance from b to a, walking through the
// wrap point when a is not above b.
func SeqDiff(a, b uint16) int {
	if a == b {
		return 0
	}
	if a > b {
		return int(a) - int(b)
	}
	return int(a) + (MaxSequence - int(b)) + 1
}
