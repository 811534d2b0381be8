package lineage

import (
	"regexp"
	"strings"
)

// Sentinel values recorded in column lineage edges when a column's origin
// cannot be pinned to one source column.
const (
	// SourceComputed marks a column produced by an expression rather than a
	// plain column copy.
	SourceComputed = "COMPUTED"
	// SourceMultiple marks a reference that could come from more than one
	// table in scope.
	SourceMultiple = "MULTIPLE"
	// SourceStar marks a wildcard passthrough of all source columns.
	SourceStar = "*"
)

// TableEdge records that a target table reads from a source table.
type TableEdge struct {
	TargetTable string
	SourceTable string
	SQL         string
}

// ColumnEdge records the provenance of one target column.
type ColumnEdge struct {
	TargetTable         string
	TargetColumn        string
	SourceTable         string
	SourceColumn        string
	TransformationLogic string
	OriginFile          string
}

// Diagnostic reports a non-fatal extraction problem, such as a computed
// column without an alias. Diagnostics never abort a statement or a build.
type Diagnostic struct {
	File    string
	Pos     Position
	Message string
}

// TargetExtraction holds everything learned from one CTAS statement.
type TargetExtraction struct {
	TargetTable  string
	SourceTables []string // first-seen order, no duplicates
	Columns      []ColumnEdge
	SQL          string
	OriginFile   string
	Skipped      []Diagnostic
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidIdentifier reports whether s is a bare or schema-qualified SQL
// identifier safe to interpolate into generated queries.
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// Extract analyzes a single CREATE [OR REPLACE] TABLE ... AS SELECT block
// and returns the lineage facts it encodes. file is recorded on every edge
// for provenance. A statement the extractor cannot make sense of returns an
// *ExtractError; column-level problems are collected as Skipped diagnostics
// instead.
func Extract(stmt string, file string) (*TargetExtraction, error) {
	toks := Tokenize(stmt)

	p := &extractor{
		raw:    stmt,
		file:   file,
		tokens: toks,
	}
	return p.run()
}

type extractor struct {
	raw    string
	file   string
	tokens []Token
	pos    int
}

func (p *extractor) cur() Token { return p.tokens[p.pos] }

func (p *extractor) advance() {
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
}

func (p *extractor) run() (*TargetExtraction, error) {
	target, err := p.parseHeader()
	if err != nil {
		return nil, err
	}

	selectPos := p.pos // index of the token after AS ... SELECT

	fromIdx, ok := p.findTopLevelFrom(selectPos)
	if !ok {
		return nil, extractErrorf(p.file, p.cur().Pos, "no top-level FROM clause in statement for %s", target)
	}

	sources, aliases, err := p.parseFromClause(fromIdx, target)
	if err != nil {
		return nil, err
	}

	res := &TargetExtraction{
		TargetTable:  target,
		SourceTables: sources,
		SQL:          strings.TrimSpace(p.raw),
		OriginFile:   p.file,
	}

	for _, group := range p.columnGroups(selectPos, fromIdx) {
		edge, diag := p.classifyColumn(group, target, sources, aliases)
		if diag != nil {
			res.Skipped = append(res.Skipped, *diag)
			continue
		}
		res.Columns = append(res.Columns, edge...)
	}

	return res, nil
}

// parseHeader consumes CREATE [OR REPLACE] TABLE [IF NOT EXISTS] <name> AS
// SELECT [DISTINCT] and returns the normalized target name. On return the
// extractor is positioned at the first token of the select list.
func (p *extractor) parseHeader() (string, error) {
	if p.cur().Type != TOKEN_CREATE {
		return "", extractErrorf(p.file, p.cur().Pos, "statement does not start with CREATE")
	}
	p.advance()

	if p.cur().Type == TOKEN_OR {
		p.advance()
		if p.cur().Type != TOKEN_REPLACE {
			return "", extractErrorf(p.file, p.cur().Pos, "expected REPLACE after OR, got %q", p.cur().Literal)
		}
		p.advance()
	}

	if p.cur().Type != TOKEN_TABLE {
		return "", extractErrorf(p.file, p.cur().Pos, "expected TABLE, got %q", p.cur().Literal)
	}
	p.advance()

	if p.cur().Type == TOKEN_IF {
		p.advance()
		if p.cur().Type != TOKEN_NOT {
			return "", extractErrorf(p.file, p.cur().Pos, "expected NOT after IF, got %q", p.cur().Literal)
		}
		p.advance()
		if p.cur().Type != TOKEN_EXISTS {
			return "", extractErrorf(p.file, p.cur().Pos, "expected EXISTS after IF NOT, got %q", p.cur().Literal)
		}
		p.advance()
	}

	target, err := p.parseQualifiedName()
	if err != nil {
		return "", err
	}

	if p.cur().Type != TOKEN_AS {
		return "", extractErrorf(p.file, p.cur().Pos, "expected AS after table name %s, got %q", target, p.cur().Literal)
	}
	p.advance()

	// DuckDB allows CREATE TABLE t AS (SELECT ...); tolerate one level.
	if p.cur().Type == TOKEN_LPAREN {
		p.advance()
	}

	if p.cur().Type != TOKEN_SELECT {
		return "", extractErrorf(p.file, p.cur().Pos, "expected SELECT after AS, got %q", p.cur().Literal)
	}
	p.advance()

	if p.cur().Type == TOKEN_DISTINCT {
		p.advance()
	}

	return target, nil
}

// parseQualifiedName reads IDENT or IDENT.IDENT at the current position and
// returns it lowercased.
func (p *extractor) parseQualifiedName() (string, error) {
	if p.cur().Type != TOKEN_IDENT {
		return "", extractErrorf(p.file, p.cur().Pos, "expected identifier, got %q", p.cur().Literal)
	}
	name := strings.ToLower(p.cur().Literal)
	p.advance()

	if p.cur().Type == TOKEN_DOT {
		p.advance()
		if p.cur().Type != TOKEN_IDENT {
			return "", extractErrorf(p.file, p.cur().Pos, "expected identifier after %q., got %q", name, p.cur().Literal)
		}
		name += "." + strings.ToLower(p.cur().Literal)
		p.advance()
	}
	return name, nil
}

// findTopLevelFrom locates the FROM that belongs to the outer SELECT:
// the first FROM at zero paren depth and zero CASE depth, scanning from
// start.
func (p *extractor) findTopLevelFrom(start int) (int, bool) {
	parenDepth := 0
	caseDepth := 0
	for i := start; i < len(p.tokens); i++ {
		switch p.tokens[i].Type {
		case TOKEN_LPAREN:
			parenDepth++
		case TOKEN_RPAREN:
			parenDepth--
		case TOKEN_CASE:
			caseDepth++
		case TOKEN_END:
			if caseDepth > 0 {
				caseDepth--
			}
		case TOKEN_FROM:
			if parenDepth == 0 && caseDepth == 0 {
				return i, true
			}
		case TOKEN_EOF:
			return 0, false
		}
	}
	return 0, false
}

// parseFromClause reads table references after the top-level FROM,
// including comma-separated and JOINed tables, and returns the source list
// (first-seen order, deduplicated, target self-references dropped) plus the
// case-insensitive alias map.
func (p *extractor) parseFromClause(fromIdx int, target string) ([]string, map[string]string, error) {
	p.pos = fromIdx
	p.advance() // past FROM

	var sources []string
	seen := map[string]bool{}
	aliases := map[string]string{}

	addSource := func(table string) {
		if strings.EqualFold(table, target) {
			return // self-reference, not a lineage edge
		}
		if !seen[table] {
			seen[table] = true
			sources = append(sources, table)
		}
	}

	readRef := func() error {
		if p.cur().Type == TOKEN_LPAREN {
			return extractErrorf(p.file, p.cur().Pos, "subquery in FROM is not supported")
		}
		table, err := p.parseQualifiedName()
		if err != nil {
			return err
		}
		addSource(table)

		// The table's own base name always works as a qualifier.
		if i := strings.LastIndex(table, "."); i >= 0 {
			aliases[table[i+1:]] = table
		} else {
			aliases[table] = table
		}

		// Optional alias, with or without AS. A bare identifier that is
		// not a keyword is an implicit alias.
		if p.cur().Type == TOKEN_AS {
			p.advance()
			if p.cur().Type != TOKEN_IDENT {
				return extractErrorf(p.file, p.cur().Pos, "expected alias after AS, got %q", p.cur().Literal)
			}
			aliases[strings.ToLower(p.cur().Literal)] = table
			p.advance()
		} else if p.cur().Type == TOKEN_IDENT {
			aliases[strings.ToLower(p.cur().Literal)] = table
			p.advance()
		}
		return nil
	}

	if err := readRef(); err != nil {
		return nil, nil, err
	}

	for {
		switch p.cur().Type {
		case TOKEN_COMMA:
			p.advance()
			if err := readRef(); err != nil {
				return nil, nil, err
			}

		case TOKEN_JOIN, TOKEN_INNER, TOKEN_LEFT, TOKEN_RIGHT, TOKEN_FULL, TOKEN_CROSS, TOKEN_OUTER:
			// Consume join qualifiers up to JOIN itself.
			for p.cur().Type != TOKEN_JOIN {
				if p.cur().Type == TOKEN_EOF {
					return sources, aliases, nil
				}
				p.advance()
			}
			p.advance() // past JOIN
			if err := readRef(); err != nil {
				return nil, nil, err
			}
			p.skipJoinCondition()

		default:
			return sources, aliases, nil
		}
	}
}

// skipJoinCondition consumes an ON or USING clause up to the next top-level
// join keyword, comma, or end of the FROM scope.
func (p *extractor) skipJoinCondition() {
	if p.cur().Type != TOKEN_ON && p.cur().Type != TOKEN_USING {
		return
	}
	p.advance()

	parenDepth := 0
	caseDepth := 0
	for {
		switch p.cur().Type {
		case TOKEN_EOF, TOKEN_SEMICOLON:
			return
		case TOKEN_LPAREN:
			parenDepth++
		case TOKEN_RPAREN:
			if parenDepth == 0 {
				return
			}
			parenDepth--
		case TOKEN_CASE:
			caseDepth++
		case TOKEN_END:
			if caseDepth > 0 {
				caseDepth--
			}
		case TOKEN_JOIN, TOKEN_INNER, TOKEN_LEFT, TOKEN_RIGHT, TOKEN_FULL, TOKEN_CROSS, TOKEN_COMMA,
			TOKEN_WHERE, TOKEN_GROUP, TOKEN_ORDER, TOKEN_HAVING, TOKEN_LIMIT:
			if parenDepth == 0 && caseDepth == 0 {
				return
			}
		}
		p.advance()
	}
}

// columnGroups splits the select list (tokens between SELECT and the
// top-level FROM) on commas that sit at zero paren depth and zero CASE
// depth. Commas inside function calls, CASE expressions, and string
// literals never split.
func (p *extractor) columnGroups(start, fromIdx int) [][]Token {
	var groups [][]Token
	var cur []Token

	parenDepth := 0
	caseDepth := 0
	for i := start; i < fromIdx; i++ {
		tok := p.tokens[i]
		switch tok.Type {
		case TOKEN_LPAREN:
			parenDepth++
		case TOKEN_RPAREN:
			parenDepth--
		case TOKEN_CASE:
			caseDepth++
		case TOKEN_END:
			if caseDepth > 0 {
				caseDepth--
			}
		case TOKEN_COMMA:
			if parenDepth == 0 && caseDepth == 0 {
				groups = append(groups, cur)
				cur = nil
				continue
			}
		}
		cur = append(cur, tok)
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}
	return groups
}

// classifyColumn turns one select-list item into column edges. It returns
// either one or more edges, or a diagnostic when the item must be skipped.
func (p *extractor) classifyColumn(toks []Token, target string, sources []string, aliases map[string]string) ([]ColumnEdge, *Diagnostic) {
	if len(toks) == 0 {
		return nil, &Diagnostic{File: p.file, Message: "empty select list item"}
	}

	edge := func(targetCol, srcTable, srcCol, logic string) ColumnEdge {
		return ColumnEdge{
			TargetTable:         target,
			TargetColumn:        targetCol,
			SourceTable:         srcTable,
			SourceColumn:        srcCol,
			TransformationLogic: logic,
			OriginFile:          p.file,
		}
	}

	singleOrMultiple := func() string {
		if len(sources) == 1 {
			return sources[0]
		}
		return SourceMultiple
	}

	// Bare * passthrough: one wildcard edge, not an enumeration of unknown
	// column names.
	if len(toks) == 1 && toks[0].Type == TOKEN_STAR {
		return []ColumnEdge{edge(SourceStar, singleOrMultiple(), SourceStar, "")}, nil
	}

	// alias.* passthrough from one table.
	if len(toks) == 3 && toks[0].Type == TOKEN_IDENT && toks[1].Type == TOKEN_DOT && toks[2].Type == TOKEN_STAR {
		return []ColumnEdge{edge(SourceStar, p.resolveAlias(toks[0].Literal, aliases), SourceStar, "")}, nil
	}

	// Direct reference forms, optionally aliased:
	//   col | col AS a | col a | t.col | t.col AS a | t.col a
	if direct, ok := p.matchDirect(toks); ok {
		srcTable := singleOrMultiple()
		if direct.qualifier != "" {
			srcTable = p.resolveAlias(direct.qualifier, aliases)
		}
		return []ColumnEdge{edge(direct.targetColumn, srcTable, direct.sourceColumn, "")}, nil
	}

	// Everything else is a computed expression and needs an explicit alias.
	if len(toks) < 3 || toks[len(toks)-2].Type != TOKEN_AS || toks[len(toks)-1].Type != TOKEN_IDENT {
		return nil, &Diagnostic{
			File:    p.file,
			Pos:     toks[0].Pos,
			Message: "computed column without AS alias in " + target + ", skipped",
		}
	}

	alias := strings.ToLower(toks[len(toks)-1].Literal)
	exprToks := toks[:len(toks)-2]
	logic := p.sliceText(exprToks)
	return []ColumnEdge{edge(alias, singleOrMultiple(), SourceComputed, logic)}, nil
}

type directRef struct {
	qualifier    string
	sourceColumn string
	targetColumn string
}

// matchDirect recognizes plain column copies. Any other shape falls through
// to computed classification.
func (p *extractor) matchDirect(toks []Token) (directRef, bool) {
	var ref directRef

	i := 0
	if i >= len(toks) || toks[i].Type != TOKEN_IDENT {
		return ref, false
	}
	first := strings.ToLower(toks[i].Literal)
	i++

	if i < len(toks) && toks[i].Type == TOKEN_DOT {
		i++
		if i >= len(toks) || toks[i].Type != TOKEN_IDENT {
			return ref, false
		}
		ref.qualifier = first
		ref.sourceColumn = strings.ToLower(toks[i].Literal)
		i++
	} else {
		ref.sourceColumn = first
	}
	ref.targetColumn = ref.sourceColumn

	switch {
	case i == len(toks):
		return ref, true
	case toks[i].Type == TOKEN_AS && i+2 == len(toks) && toks[i+1].Type == TOKEN_IDENT:
		ref.targetColumn = strings.ToLower(toks[i+1].Literal)
		return ref, true
	case toks[i].Type == TOKEN_IDENT && i+1 == len(toks):
		ref.targetColumn = strings.ToLower(toks[i].Literal)
		return ref, true
	}
	return ref, false
}

// resolveAlias maps a FROM-clause alias (or a literal table name used as its
// own qualifier) to the table it stands for. Unresolved qualifiers are
// ambiguous, not fatal.
func (p *extractor) resolveAlias(name string, aliases map[string]string) string {
	key := strings.ToLower(name)
	if table, ok := aliases[key]; ok {
		return table
	}
	return SourceMultiple
}

// sliceText returns the verbatim source text spanned by a token run,
// comments and original spacing included.
func (p *extractor) sliceText(toks []Token) string {
	if len(toks) == 0 {
		return ""
	}
	start := toks[0].Pos.Offset
	end := toks[len(toks)-1].End
	if start < 0 || end > len(p.raw) || start >= end {
		return ""
	}
	return strings.TrimSpace(p.raw[start:end])
}
