// Package contract is the plugin-side request handling surface.
//
// A Registry maps request kinds to Handlers. The plugin session looks up the
// handler for every request the FSM host sends and replies with the handler's
// result. Kinds are opaque strings agreed between the contract and the host;
// this package attaches no meaning to them beyond the reserved handshake.
//
//	reg := contract.NewRegistry()
//	_ = reg.HandleFunc("deliver_tx", func(ctx context.Context, host contract.Host, req contract.Request) (any, error) {
//	    balance, err := host.Call(ctx, "state_read", map[string]string{"key": "balance"})
//	    ...
//	})
//
// [Playground] returns the default contract used by the playground binary.
package contract
