package bot

import "testing"

func TestParseCommand_LowercasesKeyword(t *testing.T) {
	cmd := ParseCommand("MEME When it compiles")
	if cmd.Keyword != "meme" {
		t.Fatalf("expected lowercased keyword, got %q", cmd.Keyword)
	}
	if cmd.Argument != "When it compiles" {
		t.Fatalf("argument should keep original case, got %q", cmd.Argument)
	}
}

func TestParseCommand_KeywordOnly(t *testing.T) {
	cmd := ParseCommand("help")
	if cmd.Keyword != "help" || cmd.Argument != "" {
		t.Fatalf("unexpected parse: %+v", cmd)
	}
}

func TestParseCommand_SplitsOnFirstWhitespaceRun(t *testing.T) {
	cmd := ParseCommand("search   grumpy cat")
	if cmd.Keyword != "search" {
		t.Fatalf("expected 'search', got %q", cmd.Keyword)
	}
	if cmd.Argument != "grumpy cat" {
		t.Fatalf("leading whitespace should be trimmed from argument, got %q", cmd.Argument)
	}
}

func TestParseCommand_TabSeparated(t *testing.T) {
	cmd := ParseCommand("caption\t61579")
	if cmd.Keyword != "caption" || cmd.Argument != "61579" {
		t.Fatalf("unexpected parse: %+v", cmd)
	}
}

func TestParseCommand_SurroundingWhitespace(t *testing.T) {
	cmd := ParseCommand("  generate cats in space  ")
	if cmd.Keyword != "generate" || cmd.Argument != "cats in space" {
		t.Fatalf("unexpected parse: %+v", cmd)
	}
}

func TestParseCommand_Empty(t *testing.T) {
	cmd := ParseCommand("   ")
	if cmd.Keyword != "" || cmd.Argument != "" {
		t.Fatalf("blank message should parse to empty command, got %+v", cmd)
	}
}
