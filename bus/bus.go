package bus

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Topics carrying the synchronization triggers. Delivery is at-least-once
// and unordered; every consumer is idempotent under redelivery.
const (
	TopicSynchronizeAll          = "sync.all"
	TopicSynchronizeSubscription = "sync.subscription"
	TopicDeepSyncVideo           = "sync.video"
)

// SynchronizeAll asks for a full catalogue sync. UserID is nil when the
// scheduler triggered the run.
type SynchronizeAll struct {
	UserID *uuid.UUID `json:"user_id,omitempty"`
}

// SynchronizeSubscription asks for one subscription's sync. JobExecutionID
// is uuid.Nil when the trigger arrived on its own instead of as part of a
// full run.
type SynchronizeSubscription struct {
	JobExecutionID uuid.UUID `json:"job_execution_id"`
	SubscriptionID uuid.UUID `json:"subscription_id"`
}

// DeepSyncVideo asks for the second-pass detail fetch of one video.
type DeepSyncVideo struct {
	JobExecutionID uuid.UUID `json:"job_execution_id"`
	SubscriptionID uuid.UUID `json:"subscription_id"`
	VideoID        uuid.UUID `json:"video_id"`
}

// Bus is an in-process message bus: a gochannel Pub/Sub behind a watermill
// router with panic recovery and correlation ids.
type Bus struct {
	pubsub *gochannel.GoChannel
	router *message.Router
}

func New(logger *slog.Logger) (*Bus, error) {
	wmLogger := watermill.NewSlogLogger(logger)
	pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, wmLogger)

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		return nil, err
	}
	router.AddMiddleware(middleware.Recoverer, middleware.CorrelationID)

	return &Bus{
		pubsub: pubsub,
		router: router,
	}, nil
}

// Publish marshals payload and publishes it on topic.
func (b *Bus) Publish(topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return b.pubsub.Publish(topic, message.NewMessage(watermill.NewUUID(), body))
}

// Subscribe registers handler for topic under the given name. Handlers are
// added before Run is called.
func (b *Bus) Subscribe(name, topic string, handler message.NoPublishHandlerFunc) {
	b.router.AddNoPublisherHandler(name, topic, b.pubsub, handler)
}

// Run processes messages until ctx is cancelled.
func (b *Bus) Run(ctx context.Context) error {
	return b.router.Run(ctx)
}

// Running unblocks once the router accepts messages.
func (b *Bus) Running() <-chan struct{} {
	return b.router.Running()
}

func (b *Bus) Close() error {
	if err := b.router.Close(); err != nil {
		return err
	}

	return b.pubsub.Close()
}

// Unmarshal decodes a message payload into target.
func Unmarshal(msg *message.Message, target any) error {
	return json.Unmarshal(msg.Payload, target)
}
