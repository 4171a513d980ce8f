// Package types defines the entity model (User, Collection, Snippet), the
// Store interface the command layer talks to, and the Config used to open a
// store. Entities are valid by construction: constructors and setters run
// the validators from package validate and leave the entity untouched when a
// value is rejected.
package types
