// internal/models/context.go
package models

// ContextEntry is one gathered piece of evidence: the tool that produced it
// and its formatted result.
type ContextEntry struct {
	Tool   string `json:"tool"`
	Result string `json:"result"`
}

// DataContext accumulates evidence across pipeline stages. Entries keep the
// order they were added in; nothing is ever overwritten or removed.
type DataContext struct {
	Entries []ContextEntry `json:"entries"`
}

// Add appends one tool result.
func (dc *DataContext) Add(tool, result string) {
	dc.Entries = append(dc.Entries, ContextEntry{Tool: tool, Result: result})
}

// Merge appends all entries from another context, preserving their order.
func (dc *DataContext) Merge(other *DataContext) {
	if other == nil {
		return
	}
	dc.Entries = append(dc.Entries, other.Entries...)
}

// Tools returns the tool names in invocation order, duplicates included.
func (dc *DataContext) Tools() []string {
	names := make([]string, 0, len(dc.Entries))
	for _, e := range dc.Entries {
		names = append(names, e.Tool)
	}
	return names
}

// Empty reports whether no evidence has been gathered.
func (dc *DataContext) Empty() bool {
	return len(dc.Entries) == 0
}
