package kafka

import (
	"context"
	"errors"
	"log/slog"

	"github.com/niksmo/fakestore/internal/core/domain"
	"github.com/niksmo/fakestore/internal/core/port"
	"github.com/niksmo/fakestore/pkg/schema"
	"github.com/twmb/franz-go/pkg/kgo"
)

var _ port.CartObserver = (*CartEventsProducer)(nil)

// A CartEventsProducer publishes every cart update keyed by session id.
//
// Records are produced asynchronously and never block the caller.
// Delivery errors are only logged, a record that does not fit
// the client buffer is dropped.
type CartEventsProducer struct {
	opPrefix string
	cl       ProducerClient
	encoder  Encoder
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewCartEventsProducer(opts ...ProducerOpt) (*CartEventsProducer, error) {
	const op = "NewCartEventsProducer"

	if len(opts) != 2 {
		panic(opErr(ErrTooFewOpts, op)) // develop mistake
	}

	var options producerOpts
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return nil, opErr(err, op)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &CartEventsProducer{
		opPrefix: "CartEventsProducer",
		cl:       options.cl,
		encoder:  options.encoder,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

func (p *CartEventsProducer) OnCartUpdate(u domain.CartUpdate) {
	const op = "OnCartUpdate"
	log := slog.With("op", makeOp(p.opPrefix, op))

	r, err := p.createRecord(u)
	if err != nil {
		log.Error("failed to create record", "err", err)
		return
	}

	p.cl.TryProduce(p.ctx, r, func(r *kgo.Record, err error) {
		switch {
		case err == nil:
		case errors.Is(err, kgo.ErrMaxBuffered):
			log.Warn(
				"producer buffer is full, cart update dropped",
				"session", string(r.Key),
			)
		default:
			log.Error(
				"failed to produce cart update",
				"session", string(r.Key), "err", err,
			)
		}
	})
}

func (p *CartEventsProducer) createRecord(
	u domain.CartUpdate,
) (*kgo.Record, error) {
	const op = "createRecord"

	v, err := p.encoder.Encode(cartUpdateToSchemaV1(u))
	if err != nil {
		return nil, opErr(err, p.opPrefix, op)
	}
	return &kgo.Record{Key: []byte(u.SessionID), Value: v}, nil
}

// Close flushes buffered records until ctx is done and closes the client.
func (p *CartEventsProducer) Close(ctx context.Context) {
	const op = "Close"
	log := slog.With("op", makeOp(p.opPrefix, op))

	log.Info("closing producer...")
	if err := p.cl.Flush(ctx); err != nil {
		log.Warn("records left unflushed", "err", err)
	}
	p.cancel()
	p.cl.Close()
	log.Info("producer is closed")
}

func cartUpdateToSchemaV1(u domain.CartUpdate) (s schema.CartUpdatedV1) {
	s.SessionID = u.SessionID
	s.Count = int32(u.Count)
	s.Total = u.Total

	s.Lines = make([]schema.CartLineV1, len(u.Items))
	for i, l := range u.Items {
		s.Lines[i].ProductID = l.ID
		s.Lines[i].Title = l.Title
		s.Lines[i].Price = domain.FormatMoney(l.Price)
		s.Lines[i].Quantity = int32(l.Quantity)
	}
	return
}
