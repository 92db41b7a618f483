package catalog

import (
	"github.com/sahilm/fuzzy"
	"github.com/tristendillon/diagify/core/models"
)

type entrySource []models.CatalogEntry

func (s entrySource) String(i int) string { return string(s[i]) }
func (s entrySource) Len() int            { return len(s) }

// Search fuzzy-matches query against the catalog, best first. An empty
// query returns the first limit entries.
func Search(cat *models.Catalog, query string, limit int) []models.CatalogEntry {
	if cat == nil {
		return nil
	}
	if query == "" {
		return head(cat.Entries, limit)
	}

	matches := fuzzy.FindFrom(query, entrySource(cat.Entries))
	out := make([]models.CatalogEntry, 0, len(matches))
	for _, m := range matches {
		out = append(out, cat.Entries[m.Index])
	}
	return head(out, limit)
}

func head(entries []models.CatalogEntry, limit int) []models.CatalogEntry {
	if limit > 0 && len(entries) > limit {
		return entries[:limit]
	}
	return entries
}
