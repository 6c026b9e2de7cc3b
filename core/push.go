package core

import "context"

// PushGateway sends one message to one device.
// Implementations must honour ctx cancellation; a timed-out send is a failed send.
type PushGateway interface {
	Send(ctx context.Context, handle, title, body string, data map[string]string) error
}
