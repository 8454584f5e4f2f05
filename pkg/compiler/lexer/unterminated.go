package lexer

// Unterminated reports whether a literal or comment token was closed at end
// of input rather than by its own delimiter. The scanner accepts such tokens
// as they are; callers that want to warn about them use this check.
func Unterminated(src string, tok Token) bool {
	text := tok.Text(src)
	switch tok.Kind {
	case KindLiteral:
		if len(text) == 0 {
			return false
		}
		quote := text[0]
		for i := 1; i < len(text); i++ {
			switch text[i] {
			case quote:
				return false
			case '\\':
				i++
			}
		}
		return true
	case KindComment:
		depth := 0
		for i := 2; i < len(text)-1; i++ {
			if text[i] == '*' && text[i+1] == '/' {
				i++
				if depth == 0 {
					return false
				}
				depth--
			} else if text[i] == '/' && text[i+1] == '*' {
				i++
				depth++
			}
		}
		return true
	}
	return false
}
