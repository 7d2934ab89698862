// Package domain holds the entities that flow through the penpal pipeline.
//
// # Entities
//
//   - [Credential]: login identity, immutable once loaded
//   - [Candidate]: a listing-page entry waiting for detail extraction
//   - [Record]: one extracted person, keyed by [Record.IdentityKey]
//   - [Batch]: the ordered records gathered by one crawl
//   - [Table]: the rectangular shape exchanged with tabular file stores
//   - [RunStatus]: the persisted outcome of the last run
//
// The package has no infrastructure dependencies.
package domain
