package edit

import (
	"encoding/json"
	"go/parser"
	"go/token"
	"path/filepath"
)

// CheckSyntax runs an advisory syntax check over content based on path's
// extension. It reports (message, true) when a recognized extension fails
// to parse, and ("", false) when the extension is unrecognized or parsing
// succeeded — a failure here never rolls back Apply's write, matching the
// original tool's syn::validate, which is informational only.
//
// Only .go and .json are recognized: these are the two source extensions
// the original validates (forge_tool::fs::syn), and both have a direct
// standard library parser, so no third-party dependency is warranted here
// (see DESIGN.md).
func CheckSyntax(path string, content string) (string, bool) {
	switch filepath.Ext(path) {
	case ".go":
		fset := token.NewFileSet()
		if _, err := parser.ParseFile(fset, path, content, parser.AllErrors); err != nil {
			return err.Error(), true
		}
	case ".json":
		var v any
		if err := json.Unmarshal([]byte(content), &v); err != nil {
			return err.Error(), true
		}
	}
	return "", false
}
