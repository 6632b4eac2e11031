// Package plugin provides the Canopy plugin handle: one session between a
// plugin process and the FSM host it serves.
//
// # Basic Usage
//
//	cfg := plugin.DefaultConfig()
//	cfg.ChainID = 1
//	cfg.DataDirPath = "/tmp/plugin/"
//
//	p, err := plugin.New(cfg, plugin.WithContract(contract.Playground()))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := p.Start(ctx); err != nil {
//	    _ = p.Close()
//	    log.Fatal(err)
//	}
//
//	select {
//	case <-ctx.Done():
//	case <-p.Done():
//	}
//	_ = p.Close()
//
// # Session
//
// Start waits for the host's unix socket under DataDirPath, dials it with
// exponential backoff and sends a handshake carrying the plugin [Manifest].
// After the host accepts, every host request is dispatched to the registered
// contract on a bounded worker pool and answered on the same connection.
// Handlers may call back into the host through [contract.Host].
//
// # Lifecycle States
//
// A Plugin moves through [StateStopped], [StateStarting], [StateRunning],
// [StateShuttingDown] and [StateTerminated]. A failed start or a session
// lost while running moves it to [StateCrashed]. Use [Plugin.Status] to
// query the current state and [WithEventHandler] to observe changes.
//
// # Release
//
// [Plugin.Close] releases the handle exactly once. It is safe before Start,
// while Start is still connecting and after the session has ended; later
// calls return the result of the first.
//
// # Extensions
//
// Optional components such as the health server or the status file hook into
// the handle through [WithExtension]. Extensions are initialized in
// registration order when Start runs and shut down in reverse order by Close.
package plugin
