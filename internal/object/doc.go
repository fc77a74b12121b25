// Package object is a reflection layer for classes declared at run time.
//
// A Class lists typed fields with defaults and a code version; an Instance
// holds one prop.Property per field. Together they satisfy the scope
// package's Class and Object interfaces, so records of schema-declared
// classes can be saved and loaded through a migration scope.
//
// Save is a delta serializer: fields equal to the class default are not
// written. Load is the strict, schema-aware loader; the generic view of the
// same stream is produced by the decode package.
package object
