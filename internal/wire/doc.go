// Package wire implements the binary record format read and written by propmig.
//
// A record is a self-describing list of tagged properties. Each property is
// preceded by a Tag that names it, declares its type, and records the byte
// size of the encoded value so readers can skip fields they do not know.
// The list ends with a tag whose name is NoneName.
//
// Layout of a single property:
//
//	name        string  (int32 length + UTF-8 bytes)
//	type        string  (a Kind, e.g. "IntProperty")
//	size        int32   (bytes of the encoded value)
//	array index int32
//	type extras         (struct name, inner/value kinds, inline bool)
//	value       size bytes
//
// All integers and floats are little-endian.
//
// Reader and Writer both satisfy Archive, which exposes the cursor
// (Tell/Seek) that migration scopes rely on to rewind and restore.
package wire
