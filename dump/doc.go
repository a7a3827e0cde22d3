// Package dump renders code objects and containers for inspection.
//
// The text rendering prints the container header, then each code object
// with its summary, instruction hex dump, constants, identifiers and line
// table, nesting code constants one indentation level deeper. With Listing
// set, a disassembly and the decoded line table are added.
//
// The JSON and CBOR renderings encode the same tree as a view.
package dump
