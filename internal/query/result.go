package query

import "strconv"

// ParseResult scans a decimal integer the way the backend writes it:
// leading whitespace, an optional sign, then digits. Anything after the
// digits is ignored. It reports false for empty, partial or out-of-range
// input so the caller keeps polling.
func ParseResult(data []byte) (int, bool) {
	i := 0
	for i < len(data) && isSpace(data[i]) {
		i++
	}
	start := i
	if i < len(data) && (data[i] == '+' || data[i] == '-') {
		i++
	}
	digits := i
	for i < len(data) && data[i] >= '0' && data[i] <= '9' {
		i++
	}
	if i == digits {
		return 0, false
	}
	v, err := strconv.ParseInt(string(data[start:i]), 10, 32)
	if err != nil {
		return 0, false
	}
	return int(v), true
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
