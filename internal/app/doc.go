// Package app provides the application service layer.
//
// Orchestrates the query use cases: windowed sentiment aggregation over
// the cache, ad-hoc text analysis, and the health snapshot. Sits between
// HTTP handlers and the domain collaborators. Depends on domain
// interfaces and the engine packages, not on adapters.
package app
