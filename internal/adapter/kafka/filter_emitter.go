package kafka

import (
	"crypto/tls"
	"log/slog"

	"github.com/lovoo/goka"
	"github.com/niksmo/fakestore/internal/core/domain"
	"github.com/niksmo/fakestore/internal/core/port"
	"github.com/niksmo/fakestore/pkg/schema"
)

var _ port.FilterObserver = (*FilterEventsEmitter)(nil)

// A filterEventCodec used for serde [schema.FilterChangedV1]
type filterEventCodec struct {
	serde Serde
}

func newFilterEventCodec(s Serde) filterEventCodec {
	return filterEventCodec{s}
}

func (c filterEventCodec) Encode(v any) ([]byte, error) {
	const op = "filterEventCodec.Encode"
	if _, ok := v.(schema.FilterChangedV1); !ok {
		return nil, opErr(ErrInvalidValueType, op)
	}
	return c.serde.Encode(v)
}

func (c filterEventCodec) Decode(data []byte) (any, error) {
	const op = "filterEventCodec.Decode"
	var s schema.FilterChangedV1
	if err := c.serde.Decode(data, &s); err != nil {
		return nil, opErr(err, op)
	}
	return s, nil
}

// EmitterTLSOpt makes the emitter reach the brokers over TLS.
func EmitterTLSOpt(tlsConfig *tls.Config) goka.EmitterOption {
	cfg := goka.DefaultConfig()
	cfg.Net.TLS.Enable = true
	cfg.Net.TLS.Config = tlsConfig
	return goka.WithEmitterProducerBuilder(goka.ProducerBuilderWithConfig(cfg))
}

// A FilterEventsEmitter emits every accepted filter edit keyed by session id.
type FilterEventsEmitter struct {
	ge *goka.Emitter
}

func NewFilterEventsEmitter(
	brokers []string, topic string, serde Serde, opts ...goka.EmitterOption,
) (*FilterEventsEmitter, error) {
	const op = "NewFilterEventsEmitter"

	ge, err := goka.NewEmitter(
		brokers, goka.Stream(topic), newFilterEventCodec(serde), opts...,
	)
	if err != nil {
		return nil, opErr(err, op)
	}
	return &FilterEventsEmitter{ge}, nil
}

func (e *FilterEventsEmitter) OnFilterChange(c domain.FilterChange) {
	const op = "FilterEventsEmitter.OnFilterChange"
	log := slog.With("op", op)

	promise, err := e.ge.Emit(c.SessionID, filterChangeToSchemaV1(c))
	if err != nil {
		log.Error("failed to emit filter change", "err", err)
		return
	}
	promise.Then(func(err error) {
		if err != nil {
			log.Error(
				"filter change not delivered",
				"session", c.SessionID, "err", err,
			)
		}
	})
}

func (e *FilterEventsEmitter) Close() {
	const op = "FilterEventsEmitter.Close"
	log := slog.With("op", op)

	log.Info("closing emitter...")
	if err := e.ge.Finish(); err != nil {
		log.Error("failed to finish gracefully", "err", err)
		return
	}
	log.Info("emitter is closed")
}

func filterChangeToSchemaV1(c domain.FilterChange) schema.FilterChangedV1 {
	return schema.FilterChangedV1{
		SessionID: c.SessionID,
		Category:  c.Criteria.Category,
		MinPrice:  domain.FormatPriceBound(c.Criteria.MinPrice),
		MaxPrice:  domain.FormatPriceBound(c.Criteria.MaxPrice),
	}
}
