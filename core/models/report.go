package models

// FlaggedImport is an offending import line paired with its closest public
// catalog entries, best match first.
type FlaggedImport struct {
	Line        string   `json:"line"`
	Suggestions []string `json:"suggestions"`
}

// ImportReport is the outcome of validating one generated source.
// Flagged holds lines with at least one suggestion; Unfixable holds offending
// lines for which no catalog entry cleared the similarity cutoff.
type ImportReport struct {
	Flagged   []FlaggedImport `json:"flagged"`
	Unfixable []string        `json:"unfixable"`
}

// Map returns the flagged import map keyed by offending line.
func (r ImportReport) Map() map[string][]string {
	out := make(map[string][]string, len(r.Flagged))
	for _, f := range r.Flagged {
		out[f.Line] = f.Suggestions
	}
	return out
}

func (r ImportReport) HasFlagged() bool {
	return len(r.Flagged) > 0
}

// Clean reports whether no offending line was found at all.
func (r ImportReport) Clean() bool {
	return len(r.Flagged) == 0 && len(r.Unfixable) == 0
}

func (r ImportReport) Lines() []string {
	lines := make([]string, 0, len(r.Flagged))
	for _, f := range r.Flagged {
		lines = append(lines, f.Line)
	}
	return lines
}
