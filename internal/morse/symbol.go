// Package morse holds the line code: symbols, the encode table, the timing
// classifier and the decode automaton.
package morse

// Symbol is one element of the Morse line code.
type Symbol uint8

const (
	// Dot is a one-unit mark
	Dot Symbol = iota
	// Dash is a three-unit mark
	Dash
	// Space is a gap long enough to end a letter or a word
	Space

	// NumSymbols is the size of the symbol alphabet
	NumSymbols = 3
)

func (s Symbol) String() string {
	switch s {
	case Dot:
		return "Dot"
	case Dash:
		return "Dash"
	case Space:
		return "Space"
	}
	return "Symbol(?)"
}

// Timing thresholds in ticks. Boundaries are inclusive.
const (
	// DotMaxTicks is the longest interval classified as a dot
	DotMaxTicks = 3
	// DashMaxTicks is the longest interval classified as a dash
	DashMaxTicks = 7
)

// Classify converts an elapsed tick count into a symbol.
func Classify(ticks uint16) Symbol {
	switch {
	case ticks <= DotMaxTicks:
		return Dot
	case ticks <= DashMaxTicks:
		return Dash
	default:
		return Space
	}
}
