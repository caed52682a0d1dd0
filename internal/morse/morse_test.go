package morse

import (
	"slices"
	"testing"
)

// itu is the published International Morse table for letters and digits.
var itu = map[byte]string{
	'A': ".-", 'B': "-...", 'C': "-.-.", 'D': "-..", 'E': ".", 'F': "..-.",
	'G': "--.", 'H': "....", 'I': "..", 'J': ".---", 'K': "-.-", 'L': ".-..",
	'M': "--", 'N': "-.", 'O': "---", 'P': ".--.", 'Q': "--.-", 'R': ".-.",
	'S': "...", 'T': "-", 'U': "..-", 'V': "...-", 'W': ".--", 'X': "-..-",
	'Y': "-.--", 'Z': "--..",
	'0': "-----", '1': ".----", '2': "..---", '3': "...--", '4': "....-",
	'5': ".....", '6': "-....", '7': "--...", '8': "---..", '9': "----.",
}

func symbolsOf(pattern string) []Symbol {
	var out []Symbol
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '.':
			out = append(out, Dot)
		case '-':
			out = append(out, Dash)
		}
	}
	return out
}

func TestClassify_Boundaries(t *testing.T) {
	tests := []struct {
		ticks uint16
		want  Symbol
	}{
		{0, Dot},
		{1, Dot},
		{3, Dot},
		{4, Dash},
		{7, Dash},
		{8, Space},
		{1000, Space},
		{65535, Space},
	}

	for _, tt := range tests {
		if got := Classify(tt.ticks); got != tt.want {
			t.Errorf("Classify(%d) = %v, want %v", tt.ticks, got, tt.want)
		}
	}
}

func TestEncode_MatchesITU(t *testing.T) {
	for b, pattern := range itu {
		want := symbolsOf(pattern)
		if got := slices.Collect(Encode(b)); !slices.Equal(got, want) {
			t.Errorf("Encode(%q) = %v, want %v", b, got, want)
		}
	}
}

func TestEncode_CaseInsensitive(t *testing.T) {
	for b := byte('a'); b <= 'z'; b++ {
		upper := b - ('a' - 'A')
		if !slices.Equal(slices.Collect(Encode(b)), slices.Collect(Encode(upper))) {
			t.Errorf("Encode(%q) differs from Encode(%q)", b, upper)
		}
	}
}

func TestEncode_Whitespace(t *testing.T) {
	for _, b := range []byte{' ', '\t', '\r', '\n'} {
		got := slices.Collect(Encode(b))
		if !slices.Equal(got, []Symbol{Space}) {
			t.Errorf("Encode(%q) = %v, want [Space]", b, got)
		}
	}
}

func TestEncode_UnknownIsEmpty(t *testing.T) {
	for _, b := range []byte{0, '!', '?', '.', ',', '/', '=', 0x7f, 0xff} {
		if got := slices.Collect(Encode(b)); len(got) != 0 {
			t.Errorf("Encode(%q) = %v, want empty", b, got)
		}
		if p := Pattern(b); p != "" {
			t.Errorf("Pattern(%q) = %q, want empty", b, p)
		}
	}
}

func TestEncode_StopsEarly(t *testing.T) {
	n := 0
	for range Encode('0') {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("iterated %d symbols, want 2", n)
	}
}

func TestNext_Total(t *testing.T) {
	for s := State(0); s < NumStates; s++ {
		for sym := Symbol(0); sym < NumSymbols; sym++ {
			next, _ := Next(s, sym)
			if next >= NumStates {
				t.Errorf("Next(%v, %v) = %v, outside the automaton", s, sym, next)
			}
		}
	}
}

func TestNext_SpaceAlwaysReturnsToStart(t *testing.T) {
	for s := State(0); s < NumStates; s++ {
		next, c := Next(s, Space)
		if next != Start {
			t.Errorf("Next(%v, Space) state = %v, want Start", s, next)
		}
		switch s {
		case Start, UU, OE, CH:
			if c != 0 {
				t.Errorf("Next(%v, Space) emitted %q, want nothing", s, c)
			}
		default:
			if c != s.String()[0] {
				t.Errorf("Next(%v, Space) emitted %q, want %q", s, c, s.String()[0])
			}
		}
	}
}

func TestNext_ConsecutiveSpacesAtStart(t *testing.T) {
	var d Decoder
	for i := 0; i < 5; i++ {
		if c := d.Feed(Space); c != 0 || d.State() != Start {
			t.Fatalf("Space #%d at Start: state=%v emitted=%q", i, d.State(), c)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for b := range itu {
		for _, in := range []byte{b, b | 0x20} {
			var d Decoder
			var got []byte
			for sym := range Encode(in) {
				if c := d.Feed(sym); c != 0 {
					got = append(got, c)
				}
			}
			if c := d.Feed(Space); c != 0 {
				got = append(got, c)
			}
			if !slices.Equal(got, []byte{b}) {
				t.Errorf("round trip %q = %q, want %q", in, got, b)
			}
			if d.State() != Start {
				t.Errorf("round trip %q left state %v, want Start", in, d.State())
			}
		}
	}
}

func TestScenario_DotDashSpace(t *testing.T) {
	s, c := Next(Start, Dot)
	if s != E || c != 0 {
		t.Fatalf("Start+Dot = (%v, %q), want (E, 0)", s, c)
	}
	s, c = Next(s, Dash)
	if s != A || c != 0 {
		t.Fatalf("E+Dash = (%v, %q), want (A, 0)", s, c)
	}
	s, c = Next(s, Space)
	if s != Start || c != 0x41 {
		t.Fatalf("A+Space = (%v, %q), want (Start, 'A')", s, c)
	}
}

func TestNext_OffTreeStartsNewLetter(t *testing.T) {
	tests := []struct {
		name  string
		from  State
		sym   Symbol
		state State
		emit  byte
	}{
		{"Q then dot", Q, Dot, E, 'Q'},
		{"C then dash", C, Dash, T, 'C'},
		{"R then dash", R, Dash, T, 'R'},
		{"B then dash", B, Dash, T, 'B'},
		{"UU then dot", UU, Dot, E, 0},
		{"OE then dash", OE, Dash, T, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, c := Next(tt.from, tt.sym)
			if s != tt.state || c != tt.emit {
				t.Errorf("Next(%v, %v) = (%v, %q), want (%v, %q)", tt.from, tt.sym, s, c, tt.state, tt.emit)
			}
		})
	}
}

func TestNext_DigitsCompleteWithoutSpace(t *testing.T) {
	for _, d := range []byte("0123456789") {
		var dec Decoder
		var last byte
		syms := slices.Collect(Encode(d))
		for i, sym := range syms {
			last = dec.Feed(sym)
			if i < len(syms)-1 && last != 0 {
				t.Fatalf("%q emitted %q before its last symbol", d, last)
			}
		}
		if last != d || dec.State() != Start {
			t.Errorf("%q: emitted %q state %v, want %q at Start", d, last, dec.State(), d)
		}
	}
}

func TestDecoder_ResetDropsPartialLetter(t *testing.T) {
	var d Decoder
	d.Feed(Dot)
	d.Feed(Dash)
	if d.State() != A {
		t.Fatalf("State() = %v, want A", d.State())
	}

	d.Reset()
	if d.State() != Start {
		t.Errorf("State() after Reset = %v, want Start", d.State())
	}
	if c := d.Feed(Space); c != 0 {
		t.Errorf("Space after Reset emitted %q, want nothing", c)
	}
}

func TestStringers(t *testing.T) {
	if Dash.String() != "Dash" {
		t.Errorf("Dash.String() = %q", Dash.String())
	}
	if Symbol(9).String() != "Symbol(?)" {
		t.Errorf("Symbol(9).String() = %q", Symbol(9).String())
	}
	if CH.String() != "CH" || Start.String() != "Start" {
		t.Errorf("unexpected state names %q %q", CH, Start)
	}
	if State(200).String() != "State(?)" {
		t.Errorf("State(200).String() = %q", State(200).String())
	}
}
