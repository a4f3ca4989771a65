package restyutil

import (
	"fmt"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

// Dumper writes every response that passes through the clients it is attached to.
// Ids are sequential across clients, so one Dumper can be shared by many short lived
// clients.
type Dumper struct {
	output Output
	prefix string
	ids    atomic.Uint64
}

// NewDumper returns nil for a nil output, Attach on a nil Dumper is a no-op.
func NewDumper(prefix string, output Output) *Dumper {
	if output == nil {
		return nil
	}
	return &Dumper{output: output, prefix: prefix}
}

func (d *Dumper) Attach(client *resty.Client) {
	if d == nil {
		return
	}
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		id := fmt.Sprintf("%s%04d", d.prefix, d.ids.Add(1))
		d.output.Write(id, formatExchange(res))
		return nil
	})
}
