package relay

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/pkg/errors"

	"github.com/naamaleah/CookSmart/config"
)

// ServiceBusPublisher publishes event envelopes to an Azure Service
// Bus queue.
type ServiceBusPublisher struct {
	client *azservicebus.Client
	sender *azservicebus.Sender
}

// NewServiceBusPublisher connects to the configured queue.
func NewServiceBusPublisher(cfg config.AzureConfig) (*ServiceBusPublisher, error) {
	client, err := azservicebus.NewClientFromConnectionString(cfg.QueueConnStr, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus client")
	}

	sender, err := client.NewSender(cfg.QueueName, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus sender")
	}

	return &ServiceBusPublisher{client: client, sender: sender}, nil
}

// Publish sends one envelope.
func (p *ServiceBusPublisher) Publish(ctx context.Context, body []byte) error {
	contentType := "application/json"
	message := &azservicebus.Message{
		Body:        body,
		ContentType: &contentType,
	}
	if err := p.sender.SendMessage(ctx, message, nil); err != nil {
		return errors.Wrap(err, "failed to send message")
	}
	return nil
}

// Close releases the sender and the underlying connection.
func (p *ServiceBusPublisher) Close(ctx context.Context) error {
	if p.sender != nil {
		if err := p.sender.Close(ctx); err != nil {
			return err
		}
	}
	if p.client != nil {
		return p.client.Close(ctx)
	}
	return nil
}
