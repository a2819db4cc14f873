// Package wasmix provides an embeddable local-first audio capture recorder.
//
// Wasmix captures microphone input into an in-memory take, renders takes as
// canonical WAV files, and persists them in a crash-safe store with a
// journaled session history. It can be used as a standalone CLI application
// or embedded as a library in other Go programs.
//
// # Basic Usage
//
// To embed wasmix in your application:
//
//	cfg := wasmix.Config{
//	    StoreRoot: "/path/to/store",
//	}
//
//	rec, err := wasmix.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx := context.Background()
//	if err := rec.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := rec.Monitor(); err != nil {
//	    log.Fatal(err)
//	}
//	if err := rec.Record(); err != nil {
//	    log.Fatal(err)
//	}
//
//	// ... capture runs until stopped ...
//
//	if err := rec.StopCapture(); err != nil {
//	    log.Printf("capture stop error: %v", err)
//	}
//	if _, err := rec.SaveRender("takes/first.wav"); err != nil {
//	    log.Printf("save error: %v", err)
//	}
//
//	if err := rec.Stop(); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
//
// # Configuration
//
// Create a [Config] with at minimum StoreRoot (or Home to auto-derive
// StoreRoot). All other fields have sensible defaults set via
// [Config.SetDefaults].
//
// # Event Handling
//
// To receive notifications about wasmix operations, implement [EventHandler]
// and pass it via [WithEventHandler]:
//
//	handler := &myEventHandler{}
//	rec, err := wasmix.New(cfg, wasmix.WithEventHandler(handler))
//
// Events are called synchronously from the operation that raised them.
// Implementations should return quickly to avoid blocking saves.
//
// # Dependency Injection
//
// For testing, you can inject custom implementations of external dependencies:
//
//	rec, err := wasmix.New(cfg,
//	    wasmix.WithDeviceSource(fakeDevice),
//	    wasmix.WithLogger(customLogger),
//	)
//
// # Lifecycle States
//
// A Wasmix instance can be in one of five states: [StateStopped],
// [StateStarting], [StateRunning], [StateStopping], or [StateCrashed]. Use
// [Wasmix.Status] to query the current state. Capture has its own state
// machine within a running session; see [Wasmix.CaptureStatus].
//
// # Plugins
//
// Wasmix supports optional plugins for extended functionality:
//
//	import "github.com/yukihamada/wasmix-sub003/plugins/retention"
//	import "github.com/yukihamada/wasmix-sub003/plugins/configwatch"
//
//	rec, err := wasmix.New(cfg,
//	    retention.WithRetention(retention.DefaultConfig()),
//	    configwatch.WithConfigWatch(configwatch.DefaultConfig()),
//	)
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package wasmix
