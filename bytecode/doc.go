// Package bytecode holds the code object model and its binary encodings.
//
// A Code object owns its instruction stream, a constant pool of tagged
// values (string, numerical or nested code), an identifier pool and a
// line number table. Code objects nest only through code constants.
//
// On disk a code object is wrapped in a container: a 32-byte header
// starting with MAGIC, followed by the bzip2 compressed code object and an
// optional signature.
package bytecode
