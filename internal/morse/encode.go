package morse

import "iter"

// codes maps an upper-case byte to its International Morse pattern.
// '.' is a dot, '-' a dash, ' ' a word space.
var codes = [256]string{
	'A': ".-",
	'B': "-...",
	'C': "-.-.",
	'D': "-..",
	'E': ".",
	'F': "..-.",
	'G': "--.",
	'H': "....",
	'I': "..",
	'J': ".---",
	'K': "-.-",
	'L': ".-..",
	'M': "--",
	'N': "-.",
	'O': "---",
	'P': ".--.",
	'Q': "--.-",
	'R': ".-.",
	'S': "...",
	'T': "-",
	'U': "..-",
	'V': "...-",
	'W': ".--",
	'X': "-..-",
	'Y': "-.--",
	'Z': "--..",

	'1': ".----",
	'2': "..---",
	'3': "...--",
	'4': "....-",
	'5': ".....",
	'6': "-....",
	'7': "--...",
	'8': "---..",
	'9': "----.",
	'0': "-----",

	' ':  " ",
	'\t': " ",
	'\r': " ",
	'\n': " ",
}

// Pattern returns the dotted notation for b, or "" if b has no code.
// Lower-case letters share the upper-case pattern.
func Pattern(b byte) string {
	if b >= 'a' && b <= 'z' {
		b -= 'a' - 'A'
	}
	return codes[b]
}

// Encode returns the symbols that key b. The sequence is produced lazily
// and is empty for bytes without a code.
func Encode(b byte) iter.Seq[Symbol] {
	pattern := Pattern(b)
	return func(yield func(Symbol) bool) {
		for i := 0; i < len(pattern); i++ {
			var s Symbol
			switch pattern[i] {
			case '.':
				s = Dot
			case '-':
				s = Dash
			default:
				s = Space
			}
			if !yield(s) {
				return
			}
		}
	}
}
