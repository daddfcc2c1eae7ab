package schema

import (
	"context"
	"errors"
	"fmt"

	"github.com/hamba/avro/v2"
	"github.com/twmb/franz-go/pkg/sr"
)

var ErrTooFewOpts = errors.New("too few options")

// A Serde converts event values to and from the schema registry wire format:
// magic byte, schema id, Avro body.
type Serde interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}

type Opt func(*serdeOpts) error

type serdeOpts struct {
	subject string
	si      SchemaIdentifier
}

func SubjectOpt(subject string) Opt {
	return func(so *serdeOpts) error {
		if subject == "" {
			return errors.New("subject is empty string")
		}
		so.subject = subject
		return nil
	}
}

func SchemaIdentifierOpt(si SchemaIdentifier) Opt {
	return func(so *serdeOpts) error {
		if si == nil {
			return errors.New("schema identifier is nil")
		}
		so.si = si
		return nil
	}
}

// NewSerdeCartUpdatedV1 registers [CartUpdatedSchemaTextV1] under the subject
// and returns the serde of [CartUpdatedV1] values.
func NewSerdeCartUpdatedV1(ctx context.Context, opts ...Opt) (Serde, error) {
	const op = "NewSerdeCartUpdatedV1"

	s, err := newRegistrySerde[CartUpdatedV1](ctx, CartUpdatedSchemaTextV1, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

// NewSerdeFilterChangedV1 is [NewSerdeCartUpdatedV1] for [FilterChangedV1].
func NewSerdeFilterChangedV1(ctx context.Context, opts ...Opt) (Serde, error) {
	const op = "NewSerdeFilterChangedV1"

	s, err := newRegistrySerde[FilterChangedV1](ctx, FilterChangedSchemaTextV1, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

type registrySerde struct {
	subject string
	srSerde *sr.Serde
}

// newRegistrySerde binds values of type T to the registry id of schemaText.
// Both the subject and the schema identifier options are required.
func newRegistrySerde[T any](
	ctx context.Context, schemaText string, opts []Opt,
) (*registrySerde, error) {
	if len(opts) != 2 {
		return nil, ErrTooFewOpts
	}

	var so serdeOpts
	for _, opt := range opts {
		if err := opt(&so); err != nil {
			return nil, err
		}
	}
	if so.subject == "" || so.si == nil {
		return nil, ErrTooFewOpts
	}

	avroSchema, err := avro.Parse(schemaText)
	if err != nil {
		return nil, err
	}

	id, err := so.si.DetermineID(ctx, so.subject, schemaText)
	if err != nil {
		return nil, err
	}

	var example T
	srSerde := new(sr.Serde)
	srSerde.Register(
		id,
		example,
		sr.EncodeFn(AvroEncodeFn(avroSchema)),
		sr.DecodeFn(AvroDecodeFn(avroSchema)),
	)

	return &registrySerde{subject: so.subject, srSerde: srSerde}, nil
}

func (s *registrySerde) Encode(v any) ([]byte, error) {
	const op = "Serde.Encode"

	data, err := s.srSerde.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, s.subject, err)
	}
	return data, nil
}

// Decode fails with sr.ErrNotRegistered when data carries another schema id.
func (s *registrySerde) Decode(data []byte, v any) error {
	const op = "Serde.Decode"

	if err := s.srSerde.Decode(data, v); err != nil {
		return fmt.Errorf("%s: %s: %w", op, s.subject, err)
	}
	return nil
}
