package redis

import "strings"

// parseMonitorLine decodes a MONITOR push of the form
// `<timestamp> [<db> <addr>] "<arg1>" "<arg2>" ...`: the timestamp is the
// bytes up to the first space, the remainder is split on `" "` boundaries
// with `\"` unescaped to `"`.
func parseMonitorLine(line string) (timestamp string, args []string) {
	idx := strings.IndexByte(line, ' ')
	if idx < 0 {
		return line, nil
	}
	timestamp = line[:idx]
	rest := line[idx+1:]

	// Skip an optional "[<db> <addr>] " context prefix some server builds
	// emit ahead of the quoted argument list.
	if len(rest) > 0 && rest[0] == '[' {
		if end := strings.IndexByte(rest, ']'); end >= 0 {
			rest = strings.TrimLeft(rest[end+1:], " ")
		}
	}

	args = splitQuotedArgs(rest)
	return timestamp, args
}

// splitQuotedArgs splits `"a" "b c" "d\"e"` into ["a", "b c", `d"e`].
func splitQuotedArgs(s string) []string {
	var out []string
	i := 0
	for i < len(s) {
		for i < len(s) && s[i] == ' ' {
			i++
		}
		if i >= len(s) || s[i] != '"' {
			break
		}
		i++ // skip opening quote
		var b strings.Builder
		for i < len(s) {
			switch s[i] {
			case '\\':
				if i+1 < len(s) && s[i+1] == '"' {
					b.WriteByte('"')
					i += 2
					continue
				}
				b.WriteByte(s[i])
				i++
			case '"':
				i++
				goto closed
			default:
				b.WriteByte(s[i])
				i++
			}
		}
	closed:
		out = append(out, b.String())
	}
	return out
}
