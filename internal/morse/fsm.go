package morse

// State is a node of the decode automaton: the Morse prefix accumulated so far.
type State uint8

const (
	Start State = iota
	E
	T
	I
	A
	N
	M
	S
	U
	R
	W
	D
	K
	G
	O
	H
	V
	F
	UU // ..-- leads to '2'
	L
	P
	J
	B
	X
	C
	Y
	Z
	Q
	OE // ---. leads to '8'
	CH // ---- leads to '9' and '0'

	// NumStates is the number of automaton states
	NumStates = 30
)

var stateNames = [NumStates]string{
	"Start", "E", "T", "I", "A", "N", "M", "S", "U", "R", "W", "D", "K", "G", "O",
	"H", "V", "F", "UU", "L", "P", "J", "B", "X", "C", "Y", "Z", "Q", "OE", "CH",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "State(?)"
}

type transition struct {
	next State
	emit byte
}

// transitions is indexed [state][symbol]. Every cell is defined.
//
// Dot and Dash walk down the Morse tree. Where the tree has no continuation
// the pending letter completes and the symbol starts the next letter (E or T).
// Space completes the pending letter and returns to Start; the non-letter
// nodes UU, OE and CH complete to nothing.
var transitions = [NumStates][NumSymbols]transition{
	//         Dot              Dash             Space
	Start: {{E, 0}, {T, 0}, {Start, 0}},
	E:     {{I, 0}, {A, 0}, {Start, 'E'}},
	T:     {{N, 0}, {M, 0}, {Start, 'T'}},
	I:     {{S, 0}, {U, 0}, {Start, 'I'}},
	A:     {{R, 0}, {W, 0}, {Start, 'A'}},
	N:     {{D, 0}, {K, 0}, {Start, 'N'}},
	M:     {{G, 0}, {O, 0}, {Start, 'M'}},
	S:     {{H, 0}, {V, 0}, {Start, 'S'}},
	U:     {{F, 0}, {UU, 0}, {Start, 'U'}},
	R:     {{L, 0}, {T, 'R'}, {Start, 'R'}},
	W:     {{P, 0}, {J, 0}, {Start, 'W'}},
	D:     {{B, 0}, {X, 0}, {Start, 'D'}},
	K:     {{C, 0}, {Y, 0}, {Start, 'K'}},
	G:     {{Z, 0}, {Q, 0}, {Start, 'G'}},
	O:     {{OE, 0}, {CH, 0}, {Start, 'O'}},
	H:     {{Start, '5'}, {Start, '4'}, {Start, 'H'}},
	V:     {{E, 'V'}, {Start, '3'}, {Start, 'V'}},
	F:     {{E, 'F'}, {T, 'F'}, {Start, 'F'}},
	UU:    {{E, 0}, {Start, '2'}, {Start, 0}},
	L:     {{E, 'L'}, {T, 'L'}, {Start, 'L'}},
	P:     {{E, 'P'}, {T, 'P'}, {Start, 'P'}},
	J:     {{E, 'J'}, {Start, '1'}, {Start, 'J'}},
	B:     {{Start, '6'}, {T, 'B'}, {Start, 'B'}},
	X:     {{E, 'X'}, {T, 'X'}, {Start, 'X'}},
	C:     {{E, 'C'}, {T, 'C'}, {Start, 'C'}},
	Y:     {{E, 'Y'}, {T, 'Y'}, {Start, 'Y'}},
	Z:     {{Start, '7'}, {T, 'Z'}, {Start, 'Z'}},
	Q:     {{E, 'Q'}, {T, 'Q'}, {Start, 'Q'}},
	OE:    {{Start, '8'}, {T, 0}, {Start, 0}},
	CH:    {{Start, '9'}, {Start, '0'}, {Start, 0}},
}

// Next returns the state after consuming sym from s and the byte it
// completes, or 0 if nothing completed.
func Next(s State, sym Symbol) (State, byte) {
	t := transitions[s%NumStates][sym%NumSymbols]
	return t.next, t.emit
}

// Decoder walks the automaton one symbol at a time. The zero value is
// ready to use and positioned at Start.
type Decoder struct {
	state State
}

// Feed consumes sym and returns the byte it completes, or 0.
func (d *Decoder) Feed(sym Symbol) byte {
	next, c := Next(d.state, sym)
	d.state = next
	return c
}

// Reset discards any partial letter.
func (d *Decoder) Reset() {
	d.state = Start
}

// State returns the current automaton position.
func (d *Decoder) State() State {
	return d.state
}
