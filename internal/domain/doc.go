// Package domain defines the core domain types and collaborator contracts.
//
// This package contains concept-oriented files (article.go, sentiment.go,
// aggregate.go, errors.go, etc.) with shared types and cross-cutting
// interfaces. No implementation code - just contracts. Prevents circular
// imports by keeping interfaces on the consumer side.
package domain
