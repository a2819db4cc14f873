// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// In Clean Architecture / Hexagonal Architecture, ports are the boundaries
// between the application core and the outside world. They define what the
// application needs from external systems without specifying how those needs
// are fulfilled.
//
// # Port Interfaces
//
//   - [DeviceSource]: Delivers sample blocks from an audio capture device
//   - [Store]: Persists opaque document values under relative keys
//   - [Journal]: Records document history as an append-only entry log
//   - [Logger]: Structured logging abstraction (aliases pkg/log)
//
// # Usage
//
// The application layer (internal/app, internal/capture) depends only on
// these interfaces. Infrastructure adapters (internal/adapters) implement
// them with concrete implementations (portaudio, file system, etc.).
//
// This separation enables:
//   - Testing application logic with mock implementations
//   - Swapping infrastructure without changing business logic
//   - Clear boundaries and dependency direction
package ports
