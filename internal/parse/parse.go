// Package parse turns the semi-structured text returned by the generation
// backend into ordered, typed records. The format is a sequence of
//
//	# <KIND> <index>: <Title>
//
// blocks, each containing "## <Field>" sub-sections. Parsing is best effort:
// a missing or malformed field degrades to its documented default and is
// reported as a warning, never as a failure. The only hard failure is a
// response with no recognizable blocks at all.
package parse

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoRecords is returned when the input contains zero parseable blocks,
// which means the generation call produced an unusable response.
var ErrNoRecords = errors.New("no records found in input")

var (
	blockHeaderRe = regexp.MustCompile(`(?m)^#\s+([A-Za-z]+)\s+(\d+)\s*[:.]\s*(.*)$`)
	fieldHeaderRe = regexp.MustCompile(`(?m)^##\s+(.+?)\s*$`)
)

// Block is one raw "# KIND n: Title" section with its fields keyed by
// normalized field name.
type Block struct {
	Kind   string
	Index  int
	Title  string
	Fields map[string]string
}

// Warning records one fidelity loss during parsing: a defaulted field or a
// dropped unresolvable name.
type Warning struct {
	Block int    `json:"block"`
	Field string `json:"field"`
	Note  string `json:"note"`
}

// RefTable maps human-readable entity names to run-local ids. Lookups are
// case-insensitive.
type RefTable map[string]string

// NewRefTable builds a RefTable from name/id pairs.
func NewRefTable(pairs map[string]string) RefTable {
	t := make(RefTable, len(pairs))
	for name, id := range pairs {
		t[strings.ToLower(strings.TrimSpace(name))] = id
	}
	return t
}

// Lookup resolves a name, tolerating case and surrounding punctuation.
func (t RefTable) Lookup(name string) (string, bool) {
	id, ok := t[strings.ToLower(strings.Trim(strings.TrimSpace(name), `"'.`))]
	return id, ok
}

// SplitBlocks cuts raw text into blocks on the top-level header pattern.
// Preamble before the first header is discarded. Returns ErrNoRecords when
// no header matches.
func SplitBlocks(raw string) ([]Block, error) {
	locs := blockHeaderRe.FindAllStringSubmatchIndex(raw, -1)
	if len(locs) == 0 {
		return nil, ErrNoRecords
	}

	blocks := make([]Block, 0, len(locs))
	for i, loc := range locs {
		end := len(raw)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		header := blockHeaderRe.FindStringSubmatch(raw[loc[0]:loc[1]])
		idx, _ := strconv.Atoi(header[2])
		body := raw[loc[1]:end]
		blocks = append(blocks, Block{
			Kind:   strings.ToUpper(header[1]),
			Index:  idx,
			Title:  strings.TrimSpace(header[3]),
			Fields: splitFields(body),
		})
	}
	return blocks, nil
}

// splitFields extracts "## Field" sections from a block body. Field names
// are normalized to lowercase with single spaces so "## Cycle Phase" and
// "##  cycle  phase" land on the same key.
func splitFields(body string) map[string]string {
	fields := make(map[string]string)
	locs := fieldHeaderRe.FindAllStringSubmatchIndex(body, -1)
	for i, loc := range locs {
		name := normalizeFieldName(body[loc[2]:loc[3]])
		end := len(body)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		fields[name] = strings.TrimSpace(body[loc[1]:end])
	}
	return fields
}

func normalizeFieldName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// splitList breaks a field body into items. Both bullet lists and
// comma-separated lines are accepted since the model alternates freely.
func splitList(body string) []string {
	var items []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*•")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.Contains(line, ",") {
			for _, part := range strings.Split(line, ",") {
				if p := strings.TrimSpace(part); p != "" {
					items = append(items, p)
				}
			}
			continue
		}
		items = append(items, line)
	}
	return items
}

// firstLine returns the first non-empty line of a field body, for fields
// that should be a single value but sometimes arrive with trailing prose.
func firstLine(body string) string {
	for _, line := range strings.Split(body, "\n") {
		if l := strings.TrimSpace(line); l != "" {
			return l
		}
	}
	return ""
}
