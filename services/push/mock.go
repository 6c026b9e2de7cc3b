package pushsvc

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/masomo-absences/core"
)

type SentPush struct {
	Handle string
	Title  string
	Body   string
	Data   map[string]string
}

// MockGateway records pushes. Handles in Fail get the mapped error; Delay holds every send (ctx permitting).
type MockGateway struct {
	Fail  map[string]error
	Delay time.Duration

	mu   sync.Mutex
	sent []SentPush
}

var _ core.PushGateway = (*MockGateway)(nil)

func NewMockGateway() *MockGateway {
	return &MockGateway{Fail: make(map[string]error)}
}

func (gw *MockGateway) Send(ctx context.Context, handle, title, body string, data map[string]string) error {
	if gw.Delay > 0 {
		select {
		case <-time.After(gw.Delay):
		case <-ctx.Done():
			return core.NewUpstreamError("push gateway", ctx.Err())
		}
	}
	if err, ok := gw.Fail[handle]; ok {
		return err
	}

	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.sent = append(gw.sent, SentPush{Handle: handle, Title: title, Body: body, Data: data})
	return nil
}

func (gw *MockGateway) Sent() []SentPush {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	return append([]SentPush(nil), gw.sent...)
}

// SentTo returns the handles pushed to, in send order.
func (gw *MockGateway) SentTo() []string {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	handles := make([]string, 0, len(gw.sent))
	for _, p := range gw.sent {
		handles = append(handles, p.Handle)
	}
	return handles
}
