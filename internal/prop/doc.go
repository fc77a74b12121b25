// Package prop holds the property tree: a schema-agnostic representation
// of a decoded record.
//
// A Tree maps field names to Property entries. Each Property keeps the type
// information from its wire tag and the decoded Values (and Keys, for
// maps). Value is a sealed sum type over scalars, the built-in struct
// catalogue, object references, and nested Trees. A nested Tree is owned by
// the Property holding it; there is no shared structure between trees.
//
// This package imports only wire. The decoder, migration scope, and
// migration rules all build on it.
package prop
