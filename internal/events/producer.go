package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	UploadMessageKind string = "closet.sync.events.upload"
	SweepMessageKind  string = "closet.sync.events.sweep"
	defaultTopic      string = "closet.sync.events"
	defaultSource     string = "closet.sync.agent"
)

// Writer is the interface to be implemented by the underlying writer.
type Writer interface {
	Write(ctx context.Context, topic string, e cloudevents.Event) error
	Close(ctx context.Context) error
}

// EventProducer wraps a Writer with a buffer. Events queue in memory and
// ship from a dedicated goroutine, so emitting never blocks the upload
// path on a slow writer.
type EventProducer struct {
	buffer           *buffer
	startConsumingCh chan any
	doneCh           chan any
	stopOnce         sync.Once
	writer           Writer
	topic            string
	source           string
}

func NewEventProducer(w Writer, opts ...ProducerOptions) *EventProducer {
	ep := &EventProducer{
		buffer:           newBuffer(),
		startConsumingCh: make(chan any, 1),
		doneCh:           make(chan any),
		writer:           w,
		topic:            defaultTopic,
		source:           defaultSource,
	}

	for _, o := range opts {
		o(ep)
	}

	go ep.run()
	return ep
}

// Write queues one event. The payload must marshal to json.
func (ep *EventProducer) Write(kind string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	prevSize := ep.buffer.Size()
	ep.buffer.PushBack(&message{Kind: kind, Data: data})

	if prevSize == 0 {
		// Wake the consumer. The channel is buffered, concurrent wake-ups
		// coalesce.
		select {
		case ep.startConsumingCh <- struct{}{}:
		default:
		}
	}

	return nil
}

func (ep *EventProducer) Close() error {
	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ep.stopOnce.Do(func() {
		close(ep.doneCh)
	})

	g, ctx := errgroup.WithContext(closeCtx)
	g.Go(func() error {
		return ep.writer.Close(ctx)
	})
	if err := g.Wait(); err != nil {
		zap.S().Named("events").Errorf("event producer closed with error: %s", err)
		return err
	}

	zap.S().Named("events").Info("event producer closed")

	return nil
}

func (ep *EventProducer) run() {
	for {
		select {
		case <-ep.doneCh:
			return
		default:
		}

		if ep.buffer.Size() == 0 {
			select {
			case <-ep.startConsumingCh:
			case <-ep.doneCh:
				return
			}
		}

		msg := ep.buffer.Pop()
		if msg == nil {
			continue
		}

		e := cloudevents.NewEvent()
		e.SetID(uuid.NewString())
		e.SetSource(ep.source)
		e.SetType(msg.Kind)
		_ = e.SetData(*cloudevents.StringOfApplicationJSON(), msg.Data)

		if err := ep.writer.Write(context.TODO(), ep.topic, e); err != nil {
			zap.S().Named("events").Errorw("failed to send event", "error", err, "event", e)
		}
	}
}
