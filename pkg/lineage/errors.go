package lineage

import "fmt"

// ExtractError reports a statement that could not be analyzed. It carries
// enough context to be surfaced as a build diagnostic without aborting the
// rest of the file.
type ExtractError struct {
	File    string   // originating SQL file, may be empty
	Pos     Position // location within the statement block
	Message string
}

func (e *ExtractError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Pos.Line, e.Pos.Column, e.Message)
	}
	return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

func extractErrorf(file string, pos Position, format string, args ...any) *ExtractError {
	return &ExtractError{
		File:    file,
		Pos:     pos,
		Message: fmt.Sprintf(format, args...),
	}
}
