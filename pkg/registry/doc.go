// Package registry holds the handler descriptors known to the process.
//
// Handlers are registered at startup, then the registry is frozen and shared
// read-only. Registration order is kept: it breaks specificity ties when a
// stack is resolved.
package registry
