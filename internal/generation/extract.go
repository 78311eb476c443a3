package generation

// ExtractJSON returns the first balanced JSON object or array embedded in raw.
// Brackets inside string literals are ignored. Agents often wrap their output
// in prose or markdown fences; everything outside the balanced span is dropped.
func ExtractJSON(raw string) (string, bool) {
	for start := 0; start < len(raw); start++ {
		if raw[start] != '{' && raw[start] != '[' {
			continue
		}
		if end, ok := balancedEnd(raw, start); ok {
			return raw[start : end+1], true
		}
	}
	return "", false
}

// balancedEnd scans from an opening bracket and returns the index of its matching closer.
func balancedEnd(s string, start int) (int, bool) {
	var stack []byte
	inString, escaped := false, false

	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return 0, false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
