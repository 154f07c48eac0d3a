// The pldc command line tool is a batch compiler for a small C-like
// procedural language, emitting GAS-syntax assembly for one of four target
// architectures.
//
// Usage:
//
//	pldc [flags] source.json
//
//	-target string
//		  target architecture (default "x86-64")
//	-o filename
//		  output filename for the assembly listing (default stdout)
//	-debug
//		  enable debug diagnostics
//
// source.json is a JSON-encoded parse tree (internal/ast.Node), the
// grammar-driven parser's output. pldc runs semantic analysis, builds the
// three-address-code IR, and lowers it through the selected backend.
//
// -debug: prints pass timings to stderr and, should the compiler hit an
// internal error, a full error chain instead of a one-line message.
package main
