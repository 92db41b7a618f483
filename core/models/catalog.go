package models

import (
	"fmt"
	"strings"
)

// CatalogEntry is one importable type of the diagram library, written as
// "from <module> import <Name>".
type CatalogEntry string

func NewCatalogEntry(module, name string) CatalogEntry {
	return CatalogEntry(fmt.Sprintf("from %s import %s", module, name))
}

func (e CatalogEntry) String() string {
	return string(e)
}

// Module returns the dotted module path of the entry.
func (e CatalogEntry) Module() string {
	fields := strings.Fields(string(e))
	if len(fields) < 4 || fields[0] != "from" {
		return ""
	}
	return fields[1]
}

// Name returns the imported name: the last whitespace-delimited token.
func (e CatalogEntry) Name() string {
	fields := strings.Fields(string(e))
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

func (e CatalogEntry) IsPrivate() bool {
	return strings.HasPrefix(e.Name(), "_")
}

// Catalog is the set of valid import lines for one installation of the
// diagram library. Entries keep filesystem walk order and may repeat; they
// must not be modified after the first Contains call.
type Catalog struct {
	Package string
	Version string
	Root    string
	Entries []CatalogEntry

	index map[string]struct{}
}

func NewCatalog(pkg string, entries []CatalogEntry) *Catalog {
	return &Catalog{Package: pkg, Entries: entries}
}

// Contains reports exact, case-sensitive membership of line.
func (c *Catalog) Contains(line string) bool {
	if c == nil {
		return false
	}
	if c.index == nil {
		c.buildIndex()
	}
	_, ok := c.index[line]
	return ok
}

func (c *Catalog) buildIndex() {
	c.index = make(map[string]struct{}, len(c.Entries))
	for _, e := range c.Entries {
		c.index[string(e)] = struct{}{}
	}
}

func (c *Catalog) Strings() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.Entries))
	for i, e := range c.Entries {
		out[i] = string(e)
	}
	return out
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Entries)
}

// Modules returns the distinct module paths in first-seen order.
func (c *Catalog) Modules() []string {
	seen := make(map[string]bool)
	var modules []string
	for _, e := range c.Entries {
		m := e.Module()
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		modules = append(modules, m)
	}
	return modules
}
