package bot

import "strings"

// tokenize splits a command line on whitespace, honoring double
// quotes so titles with spaces stay one token.
func tokenize(line string) []string {
	var tokens []string
	var current strings.Builder
	inQuotes := false

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case !inQuotes && (r == ' ' || r == '\t' || r == '\n'):
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

// splitArgs separates positional arguments from --flag values. A flag
// without a following value (or followed by another flag) is stored
// with an empty value.
func splitArgs(tokens []string) (positional []string, flags map[string]string) {
	flags = make(map[string]string)
	for i := 0; i < len(tokens); i++ {
		token := tokens[i]
		if strings.HasPrefix(token, "--") {
			name := strings.TrimPrefix(token, "--")
			if i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "--") {
				flags[name] = tokens[i+1]
				i++
			} else {
				flags[name] = ""
			}
			continue
		}
		positional = append(positional, token)
	}
	return positional, flags
}
