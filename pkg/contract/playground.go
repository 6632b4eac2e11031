package contract

import "context"

// Request kinds the playground contract answers.
const (
	KindGenesis    = "genesis"
	KindBeginBlock = "begin_block"
	KindCheckTx    = "check_tx"
	KindDeliverTx  = "deliver_tx"
	KindEndBlock   = "end_block"
	KindPing       = "ping"
)

// Pong is the reply to a ping.
type Pong struct {
	Message string `json:"message"`
}

// Playground returns the hello-world contract: every block lifecycle kind is
// acknowledged with an empty payload and ping answers pong.
func Playground() *Registry {
	r := NewRegistry()
	for _, kind := range []string{KindGenesis, KindBeginBlock, KindCheckTx, KindDeliverTx, KindEndBlock} {
		_ = r.HandleFunc(kind, acknowledge)
	}
	_ = r.HandleFunc(KindPing, func(context.Context, Host, Request) (any, error) {
		return Pong{Message: "pong"}, nil
	})
	return r
}

func acknowledge(context.Context, Host, Request) (any, error) {
	return nil, nil
}
