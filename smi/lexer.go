package smi

type tokKind int

const (
	tokIdent tokKind = iota
	tokNumber
	tokString
	tokAssign // ::=
	tokLBrace
	tokRBrace
	tokLParen
	tokRParen
	tokSemi
	tokOther
)

type token struct {
	kind tokKind
	text string
	line int
}

// scan tokenizes MIB text. Comments ("--" to end of line or to a closing
// "--") and whitespace are dropped; punctuation not significant to the
// structural parse comes back as tokOther.
func scan(src []byte) ([]token, error) {
	estimated := max(len(src)/8, 32)
	toks := make([]token, 0, estimated)

	pos := 0
	line := 1
	for pos < len(src) {
		b := src[pos]

		switch {
		case b == '\n':
			line++
			pos++

		case b == ' ' || b == '\t' || b == '\r' || b == '\f':
			pos++

		case b == '-' && pos+1 < len(src) && src[pos+1] == '-':
			pos += 2
			for pos < len(src) {
				if src[pos] == '\n' {
					break
				}
				if src[pos] == '-' && pos+1 < len(src) && src[pos+1] == '-' {
					pos += 2
					break
				}
				pos++
			}

		case b == '"':
			start := line
			pos++
			var text []byte
			for {
				if pos >= len(src) {
					return nil, &ParseError{Line: start, Msg: "unterminated string literal"}
				}
				c := src[pos]
				if c == '"' {
					pos++
					break
				}
				if c == '\n' {
					line++
				}
				text = append(text, c)
				pos++
			}
			toks = append(toks, token{kind: tokString, text: string(text), line: start})

		case b == ':' && pos+2 < len(src) && src[pos+1] == ':' && src[pos+2] == '=':
			toks = append(toks, token{kind: tokAssign, text: "::=", line: line})
			pos += 3

		case b == '{':
			toks = append(toks, token{kind: tokLBrace, text: "{", line: line})
			pos++

		case b == '}':
			toks = append(toks, token{kind: tokRBrace, text: "}", line: line})
			pos++

		case b == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", line: line})
			pos++

		case b == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", line: line})
			pos++

		case b == ';':
			toks = append(toks, token{kind: tokSemi, text: ";", line: line})
			pos++

		case isDigit(b):
			start := pos
			for pos < len(src) && isDigit(src[pos]) {
				pos++
			}
			toks = append(toks, token{kind: tokNumber, text: string(src[start:pos]), line: line})

		case isLetter(b):
			start := pos
			for pos < len(src) && isIdentByte(src[pos]) {
				// "--" starts a comment even when glued to a name.
				if src[pos] == '-' && pos+1 < len(src) && src[pos+1] == '-' {
					break
				}
				pos++
			}
			// A trailing hyphen belongs to a following comment, not the name.
			end := pos
			for end > start && src[end-1] == '-' {
				end--
				pos--
			}
			toks = append(toks, token{kind: tokIdent, text: string(src[start:end]), line: line})

		default:
			toks = append(toks, token{kind: tokOther, text: string(b), line: line})
			pos++
		}
	}
	return toks, nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_'
}

func isIdentByte(b byte) bool {
	return isLetter(b) || isDigit(b) || b == '-'
}
