// Package lineage extracts table and column lineage from CREATE TABLE AS
// SELECT statements.
//
// The package works statically on SQL text. Split segments a file into CTAS
// blocks, and Extract derives the target table, its source tables, and the
// provenance of each output column. No database connection is involved:
// extraction is a lexical analysis over a hand-written SQL lexer, precise
// enough for lineage but deliberately not a full SQL parser. Constructs the
// analysis cannot attribute (wildcards, multi-table expressions) are
// recorded with the sentinel values SourceStar, SourceComputed, and
// SourceMultiple rather than guessed at.
package lineage
