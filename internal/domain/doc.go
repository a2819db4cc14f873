// Package domain contains the core domain entities and value objects for wasmix.
//
// This package represents the innermost layer of the Clean Architecture. It has
// no dependencies on infrastructure concerns (audio devices, file system,
// logging) and contains only pure business logic.
//
// # Entities
//
//   - [FrameBlock]: A fixed-size block of capture samples with sequence and timestamp
//   - [RenderArtifact]: A finalized WAV byte sequence ready for persistence
//   - [JournalEntry]: A single append-only journal record (seq, ts, kind, payload)
//   - [JournalState]: The fold of a document's journal entries over time
//
// # Design Principles
//
// Domain entities are:
//   - Immutable after construction (where practical)
//   - Free of infrastructure dependencies
//   - Focused on business rules and invariants
//   - Testable without mocks or external systems
package domain
