package bot

import (
	"strings"
	"unicode"
)

// Command is one parsed inbound message: the lowercased first token plus the
// remainder with leading whitespace trimmed, original casing preserved.
// Commands are derived per message and never persisted.
type Command struct {
	Keyword  string
	Argument string
	Raw      string
}

// ParseCommand splits a message on the first run of whitespace. Keyword
// matching downstream is exact: no prefix or fuzzy matching, lowercasing
// here is the only normalization.
func ParseCommand(text string) Command {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Command{Raw: text}
	}

	cut := strings.IndexFunc(trimmed, unicode.IsSpace)
	if cut < 0 {
		return Command{
			Keyword: strings.ToLower(trimmed),
			Raw:     text,
		}
	}

	return Command{
		Keyword:  strings.ToLower(trimmed[:cut]),
		Argument: strings.TrimSpace(trimmed[cut:]),
		Raw:      text,
	}
}
