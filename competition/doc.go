// Package competition defines the domain types shared by the relay: athletes
// and their attempts, per-platform update snapshots, timer and decision
// substates, records, and the parsers that turn raw database payloads from
// competition software into those types.
//
// Types in this package are plain data. Mutation and serialization of live
// state belongs to the hub store, which owns the single writable copy.
package competition
