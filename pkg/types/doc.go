// Package types defines the Registry and store interfaces, entity types,
// and standard error types for the tombstone tracking system.
package types
