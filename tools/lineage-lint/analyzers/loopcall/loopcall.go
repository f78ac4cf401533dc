// Package loopcall detects single-record store lookups inside loops.
package loopcall

import (
	"go/ast"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

// Analyzer detects per-record graph store lookups inside loops.
var Analyzer = &analysis.Analyzer{
	Name:     "loopcall",
	Doc:      "detects single-record graph store lookups inside loops",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

// lookupMethods fetch one record per call. FindParents, FindChildren and
// FindUnionMembers already return the related person records.
var lookupMethods = map[string]string{
	"FindPersonByID":    "use the persons returned by FindParents, FindChildren or FindUnionMembers",
	"FindPersonsByName": "resolve names once before the loop",
	"FindEdgeByID":      "use the edges returned by FindParents or FindChildren",
	"FindUnionByID":     "use the unions returned by FindUnionsByPerson",
}

func run(pass *analysis.Pass) (interface{}, error) {
	inspect := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{
		(*ast.RangeStmt)(nil),
		(*ast.ForStmt)(nil),
	}

	inspect.Preorder(nodeFilter, func(n ast.Node) {
		var body *ast.BlockStmt
		switch stmt := n.(type) {
		case *ast.RangeStmt:
			body = stmt.Body
		case *ast.ForStmt:
			body = stmt.Body
		}
		if body == nil {
			return
		}

		ast.Inspect(body, func(n ast.Node) bool {
			// Nested loops are visited by Preorder on their own.
			switch n.(type) {
			case *ast.RangeStmt, *ast.ForStmt, *ast.FuncLit:
				return false
			}

			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}

			sel, ok := call.Fun.(*ast.SelectorExpr)
			if !ok {
				return true
			}

			if hint, found := lookupMethods[sel.Sel.Name]; found {
				pass.Reportf(call.Pos(),
					"potential N+1: %s called inside loop - %s",
					sel.Sel.Name, hint)
			}

			return true
		})
	})

	return nil, nil
}
