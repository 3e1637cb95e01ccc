// Package parser implements the command parser (component B): a
// quote-aware tokenizer, subcommand detection for a fixed closed list of
// multi-level programs, and extraction of learnable argument values for
// the ingestion pipeline's argument-pattern tracking.
package parser

import "strings"

// subcommandPrograms is the fixed closed list of programs whose second
// token is treated as a subcommand rather than an argument.
var subcommandPrograms = map[string]bool{
	"git": true, "docker": true, "docker-compose": true, "kubectl": true,
	"npm": true, "yarn": true, "pnpm": true, "cargo": true, "rustup": true,
	"go": true, "pip": true, "poetry": true, "conda": true, "brew": true,
	"apt": true, "systemctl": true, "journalctl": true, "aws": true,
	"gcloud": true, "az": true, "terraform": true, "make": true,
	"cmake": true, "gradle": true, "mvn": true, "dotnet": true,
	"mix": true, "bundle": true,
}

// valueTakingFlags map a flag to whether its value should be kept as a
// learnable argument (true) or discarded entirely (false, e.g. commit
// messages which are too unique to learn).
var valueTakingFlags = map[string]bool{
	"-m": false, "--message": false,
	"-b": true, "--branch": true,
	"-f": true, "--file": true,
}

// Parsed is the decomposition of a command string.
type Parsed struct {
	Full       string
	Program    string
	Subcommand string
	Args       []string
	Partial    bool
}

// Parse tokenizes cmd and decomposes it into program, subcommand, and
// argument tokens. Partial is true iff cmd ends in whitespace, signalling
// the user is mid-argument.
func Parse(cmd string) Parsed {
	p := Parsed{
		Full:    cmd,
		Partial: len(cmd) > 0 && isSpace(rune(cmd[len(cmd)-1])),
	}

	tokens := Tokenize(cmd)
	if len(tokens) == 0 {
		return p
	}

	p.Program = tokens[0]
	rest := tokens[1:]

	if subcommandPrograms[p.Program] && len(rest) > 0 && !strings.HasPrefix(rest[0], "-") {
		p.Subcommand = rest[0]
		rest = rest[1:]
	}

	p.Args = rest
	return p
}

// IsPartial reports whether full ends with whitespace.
func IsPartial(full string) bool {
	return len(full) > 0 && isSpace(rune(full[len(full)-1]))
}

// ArgLookupKey returns the (program, subcommand) key used to look up
// ArgPattern rows for the argument-suggestion branch (component D, step
// 0).
func ArgLookupKey(p Parsed) (program, subcommand string) {
	return p.Program, p.Subcommand
}

// Tokenize performs a minimal shell-like tokenization honouring single and
// double quotes: a quoted region, including its quote characters, is part
// of one token; whitespace inside quotes is preserved. There is no escape
// processing, variable expansion, or globbing.
func Tokenize(s string) []string {
	var tokens []string
	var cur strings.Builder
	var quote rune // 0, '\'', or '"'
	inToken := false

	flush := func() {
		if inToken {
			tokens = append(tokens, cur.String())
			cur.Reset()
			inToken = false
		}
	}

	for _, r := range s {
		switch {
		case quote != 0:
			cur.WriteRune(r)
			inToken = true
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
			cur.WriteRune(r)
			inToken = true
		case isSpace(r):
			flush()
		default:
			cur.WriteRune(r)
			inToken = true
		}
	}
	flush()

	return tokens
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}

// ExtractLearnableArgs walks Args, skipping flag tokens, flag-value
// pairs (discarding the value for -m/--message, keeping it for
// -b/--branch/-f/--file), and arguments longer than 100 characters.
func ExtractLearnableArgs(p Parsed) []string {
	var out []string
	skipNext := false

	for _, arg := range p.Args {
		if skipNext {
			skipNext = false
			continue
		}
		if strings.HasPrefix(arg, "-") {
			if keep, known := valueTakingFlags[arg]; known {
				if !keep {
					skipNext = true
				}
			}
			continue
		}
		if len(arg) > 100 {
			continue
		}
		out = append(out, arg)
	}

	return out
}
