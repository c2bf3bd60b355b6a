// Package entry holds the concrete repositories the server hands out:
// suite results, suite times (versioned) and subset sizes. Each persists its
// state as JSON through the registry in package repo.
//
// Use the typed accessors (SuiteResults, SuiteTimes, SubsetSizes) rather than
// calling Registry.FindOrCreate directly; Constructors supplies the kind
// dispatch table for repo.NewRegistry.
package entry
