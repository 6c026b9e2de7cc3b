package pushsvc

import (
	"context"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/trezcool/masomo-absences/core"
)

// ConsoleGateway prints pushes instead of delivering them.
type ConsoleGateway struct {
	out *log.Logger
}

var _ core.PushGateway = (*ConsoleGateway)(nil)

func NewConsoleGateway() *ConsoleGateway {
	return &ConsoleGateway{out: log.New(os.Stdout, "PUSH : ", log.LstdFlags)}
}

func (gw *ConsoleGateway) Send(ctx context.Context, handle, title, body string, data map[string]string) error {
	if err := ctx.Err(); err != nil {
		return core.NewUpstreamError("push gateway", err)
	}
	gw.out.Printf("to=%s title=%q body=%q data={%s}", handle, title, body, formatData(data))
	return nil
}

func formatData(data map[string]string) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+data[k])
	}
	return strings.Join(pairs, " ")
}
