package lineage

import (
	"iter"
	"regexp"
	"strings"
)

// Statement is one CREATE TABLE ... AS SELECT block carved out of a SQL
// file. Text is the verbatim source slice, comments included; Offset is
// the byte offset of the block within the file.
type Statement struct {
	Text   string
	Offset int
}

// createTablePattern matches the start of a CREATE [OR REPLACE] TABLE
// statement. It is applied to masked text, so occurrences inside comments
// and string literals never match.
var createTablePattern = regexp.MustCompile(`(?is)\bCREATE\s+(?:OR\s+REPLACE\s+)?TABLE\b`)

// selectAfterAsPattern checks that a candidate block is a CTAS: somewhere
// after the target name there is AS ... SELECT at statement level.
var selectAfterAsPattern = regexp.MustCompile(`(?is)\bAS\b.*?\bSELECT\b`)

// Split segments SQL file text into CREATE TABLE ... AS SELECT statement
// blocks. Each block runs from one CREATE [OR REPLACE] TABLE keyword up to
// (but not including) the next one, or end of input. Statements that are
// not CTAS (CREATE SCHEMA, bare INSERT, ...) are not yielded. The returned
// sequence is lazy and restartable; a file with no qualifying statements
// yields nothing.
func Split(input string) iter.Seq[Statement] {
	return func(yield func(Statement) bool) {
		masked := maskLiteralsAndComments(input)
		matches := createTablePattern.FindAllStringIndex(masked, -1)

		for i, m := range matches {
			start := m[0]
			end := len(input)
			if i+1 < len(matches) {
				end = matches[i+1][0]
			}

			// Qualify on the masked slice: the block must continue with
			// AS ... SELECT to be a CTAS.
			if !selectAfterAsPattern.MatchString(masked[m[1]:end]) {
				continue
			}

			stmt := Statement{
				Text:   strings.TrimRight(input[start:end], " \t\r\n"),
				Offset: start,
			}
			if !yield(stmt) {
				return
			}
		}
	}
}

// SplitStatements collects all statement blocks from Split.
func SplitStatements(input string) []Statement {
	var stmts []Statement
	for stmt := range Split(input) {
		stmts = append(stmts, stmt)
	}
	return stmts
}

// maskLiteralsAndComments returns a copy of the input with the contents of
// string literals, quoted identifiers, line comments, and block comments
// replaced by spaces. Length and offsets are preserved, so regexp match
// positions on the masked text index directly into the original.
func maskLiteralsAndComments(input string) string {
	out := []byte(input)

	const (
		stateCode = iota
		stateString
		stateQuotedIdent
		stateLineComment
		stateBlockComment
	)

	state := stateCode
	for i := 0; i < len(out); i++ {
		ch := out[i]
		var next byte
		if i+1 < len(out) {
			next = out[i+1]
		}

		switch state {
		case stateCode:
			switch {
			case ch == '\'':
				state = stateString
				out[i] = ' '
			case ch == '"':
				state = stateQuotedIdent
				out[i] = ' '
			case ch == '-' && next == '-':
				state = stateLineComment
				out[i] = ' '
			case ch == '/' && next == '*':
				state = stateBlockComment
				out[i] = ' '
			}

		case stateString:
			if ch == '\'' {
				if next == '\'' {
					out[i+1] = ' '
					i++ // doubled quote escape
				} else {
					state = stateCode
				}
			}
			out[i] = ' '

		case stateQuotedIdent:
			if ch == '"' {
				if next == '"' {
					out[i+1] = ' '
					i++
				} else {
					state = stateCode
				}
			}
			out[i] = ' '

		case stateLineComment:
			if ch == '\n' {
				state = stateCode
			} else {
				out[i] = ' '
			}

		case stateBlockComment:
			if ch == '*' && next == '/' {
				out[i] = ' '
				out[i+1] = ' '
				i++
				state = stateCode
			} else if ch != '\n' {
				out[i] = ' '
			}
		}
	}

	return string(out)
}
