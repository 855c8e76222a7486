package parse

import "fmt"

// fieldSpec is one entry in a schema's extraction table: the normalized
// field name, accepted aliases, and the default applied when the field is
// absent or empty. Keeping defaults in the table makes every degradation
// path auditable instead of buried in control flow.
type fieldSpec struct {
	key     string
	aliases []string
	def     string
}

// get resolves a field from a block, falling back through aliases and then
// the default. A warning is appended whenever the default is used.
func (f fieldSpec) get(b Block, warnings *[]Warning) string {
	if v, ok := b.Fields[f.key]; ok && v != "" {
		return v
	}
	for _, alias := range f.aliases {
		if v, ok := b.Fields[alias]; ok && v != "" {
			return v
		}
	}
	if f.def != "" {
		*warnings = append(*warnings, Warning{
			Block: b.Index,
			Field: f.key,
			Note:  fmt.Sprintf("missing, defaulted to %q", f.def),
		})
	} else {
		*warnings = append(*warnings, Warning{
			Block: b.Index,
			Field: f.key,
			Note:  "missing, left empty",
		})
	}
	return f.def
}

// getOptional resolves a field without warning when absent, for fields that
// are legitimately empty on most records.
func (f fieldSpec) getOptional(b Block) string {
	if v, ok := b.Fields[f.key]; ok && v != "" {
		return v
	}
	for _, alias := range f.aliases {
		if v, ok := b.Fields[alias]; ok && v != "" {
			return v
		}
	}
	return ""
}

// resolveNames maps a list of human-readable names through a reference
// table. Unmatched names are dropped and surfaced as warnings rather than
// failing the record.
func resolveNames(b Block, field string, names []string, table RefTable, warnings *[]Warning) []string {
	var ids []string
	for _, name := range names {
		if id, ok := table.Lookup(name); ok {
			ids = append(ids, id)
			continue
		}
		*warnings = append(*warnings, Warning{
			Block: b.Index,
			Field: field,
			Note:  fmt.Sprintf("unknown name %q dropped", name),
		})
	}
	return ids
}
