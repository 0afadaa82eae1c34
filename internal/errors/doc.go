// Package errors provides coded, actionable errors for the nested tooling.
//
// Every error has a code (e.g. "N202") that maps to a short message, a
// longer explanation and a documentation link. Errors raised while reading a
// tree definition carry the file position and the surrounding lines.
//
// # Error Categories
//
//   - config: nested.json problems (N100-N199)
//   - tree: tree definition files and scripts (N200-N299)
//   - session, protocol: the HTTP and WebSocket surface (N300-N399)
//   - cli: command usage (N400-N499)
//
// # Usage
//
//	err := errors.New("N202").
//	    WithLocation("menu.yaml", 12, 7).
//	    WithDetailf("node %q is already defined at line %d", "save", 4)
//
//	fmt.Println(err.Format())
//	// ERROR N202: Duplicate node id
//	//
//	//   menu.yaml:12:7
//	//
//	//     10 │   - id: file
//	//     11 │     children:
//	//   → 12 │       - id: save
//	//     13 │       - id: quit
//	//
//	//   node "save" is already defined at line 4
//
// The server renders the same errors with FormatJSON.
package errors
