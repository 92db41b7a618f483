package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

var ErrSyntax = errors.New("python syntax error")

// TypeNames returns the names a module binds to classes at top level:
// class definitions (decorated or not), CapWords names pulled in with
// "from x import Name" where x is relative or inside pkg, and aliases
// "Alias = KnownClass". The result is sorted like dir().
func TypeNames(ctx context.Context, src []byte, pkg string) ([]string, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, ErrSyntax
	}

	text := func(n *sitter.Node) string {
		return string(src[n.StartByte():n.EndByte()])
	}

	known := make(map[string]bool)
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)

		switch child.Type() {
		case "class_definition":
			if name := child.ChildByFieldName("name"); name != nil {
				known[text(name)] = true
			}

		case "decorated_definition":
			def := child.ChildByFieldName("definition")
			if def != nil && def.Type() == "class_definition" {
				if name := def.ChildByFieldName("name"); name != nil {
					known[text(name)] = true
				}
			}

		case "import_from_statement":
			if !fromPackage(child, pkg, text) {
				continue
			}
			for _, name := range importedNames(child, text) {
				if looksLikeType(name) {
					known[name] = true
				}
			}

		case "expression_statement":
			if child.NamedChildCount() == 0 {
				continue
			}
			assign := child.NamedChild(0)
			if assign.Type() != "assignment" {
				continue
			}
			left := assign.ChildByFieldName("left")
			right := assign.ChildByFieldName("right")
			if left == nil || right == nil || left.Type() != "identifier" || right.Type() != "identifier" {
				continue
			}
			if known[text(right)] {
				known[text(left)] = true
			}
		}
	}

	names := make([]string, 0, len(known))
	for name := range known {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// importedNames returns the local names bound by a from-import, honoring
// "as" aliases. Wildcard imports bind nothing we can see.
func importedNames(stmt *sitter.Node, text func(*sitter.Node) string) []string {
	moduleName := stmt.ChildByFieldName("module_name")
	var names []string
	for i := 0; i < int(stmt.NamedChildCount()); i++ {
		n := stmt.NamedChild(i)
		if moduleName != nil && n.StartByte() == moduleName.StartByte() {
			continue
		}
		switch n.Type() {
		case "dotted_name":
			names = append(names, lastDotted(text(n)))
		case "aliased_import":
			if alias := n.ChildByFieldName("alias"); alias != nil {
				names = append(names, text(alias))
			}
		}
	}
	return names
}

// fromPackage reports whether a from-import reads from pkg itself. Names
// from the standard library or third-party modules are never catalog types.
func fromPackage(stmt *sitter.Node, pkg string, text func(*sitter.Node) string) bool {
	moduleName := stmt.ChildByFieldName("module_name")
	if moduleName == nil {
		return false
	}
	if moduleName.Type() == "relative_import" {
		return true
	}
	mod := text(moduleName)
	return mod == pkg || strings.HasPrefix(mod, pkg+".")
}

func lastDotted(s string) string {
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[i+1:]
	}
	return s
}

// looksLikeType reports CapWords names, optionally with leading underscores.
func looksLikeType(name string) bool {
	trimmed := strings.TrimLeft(name, "_")
	if trimmed == "" {
		return false
	}
	return unicode.IsUpper([]rune(trimmed)[0])
}
