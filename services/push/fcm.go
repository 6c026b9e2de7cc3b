// Package pushsvc implements core.PushGateway.
package pushsvc

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/trezcool/masomo-absences/core"
)

// FCMGateway delivers pushes through Firebase Cloud Messaging.
type FCMGateway struct {
	client *messaging.Client
}

var _ core.PushGateway = (*FCMGateway)(nil)

func NewFCMGateway(ctx context.Context, conf core.PushConfig) (*FCMGateway, error) {
	var opts []option.ClientOption
	if conf.FCMCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(conf.FCMCredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: conf.FCMProjectID}, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "initializing firebase app")
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "initializing messaging client")
	}
	return &FCMGateway{client: client}, nil
}

func (gw *FCMGateway) Send(ctx context.Context, handle, title, body string, data map[string]string) error {
	_, err := gw.client.Send(ctx, newMessage(handle, title, body, data))
	if err != nil {
		return core.NewUpstreamError("push gateway", err)
	}
	return nil
}

func newMessage(handle, title, body string, data map[string]string) *messaging.Message {
	return &messaging.Message{
		Token: handle,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}
}
