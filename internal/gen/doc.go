// Package gen synthesizes client functions from the normalized service
// model: it resolves schemas to Go types through a deduplicating registry,
// classifies parameters and bodies, compiles path templates, and renders one
// function per operation grouped by tag.
package gen
