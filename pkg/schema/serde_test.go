package schema_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hamba/avro/v2"
	"github.com/niksmo/fakestore/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/sr"
)

type MockSchemaIdentifier struct {
	mock.Mock
}

func (c *MockSchemaIdentifier) DetermineID(
	ctx context.Context, subject string, avroSchemaText string,
) (id int, err error) {
	args := c.Called(ctx, subject, avroSchemaText)
	return args.Int(0), args.Error(1)
}

func testCartUpdated() schema.CartUpdatedV1 {
	return schema.CartUpdatedV1{
		SessionID: "testSessionID",
		Count:     3,
		Total:     "39.97",
		Lines: []schema.CartLineV1{
			{ProductID: 1, Title: "Backpack", Price: "9.99", Quantity: 2},
			{ProductID: 2, Title: "T-Shirt", Price: "19.99", Quantity: 1},
		},
	}
}

func TestSchemas(t *testing.T) {
	t.Run("CartUpdatedV1", func(t *testing.T) {
		var s avro.Schema
		require.NotPanics(t, func() {
			s = schema.CartUpdatedV1Avro()
		})

		v := testCartUpdated()
		data, err := avro.Marshal(s, v)
		require.NoError(t, err)

		var got schema.CartUpdatedV1
		require.NoError(t, avro.Unmarshal(s, data, &got))
		assert.Equal(t, v, got)
	})

	t.Run("CartUpdatedV1EmptyLines", func(t *testing.T) {
		s := schema.CartUpdatedV1Avro()
		v := schema.CartUpdatedV1{SessionID: "s", Total: "0.00"}

		data, err := avro.Marshal(s, v)
		require.NoError(t, err)

		var got schema.CartUpdatedV1
		require.NoError(t, avro.Unmarshal(s, data, &got))
		assert.Equal(t, v.SessionID, got.SessionID)
		assert.Equal(t, v.Total, got.Total)
		assert.Empty(t, got.Lines)
	})

	t.Run("FilterChangedV1", func(t *testing.T) {
		var s avro.Schema
		require.NotPanics(t, func() {
			s = schema.FilterChangedV1Avro()
		})

		v := schema.FilterChangedV1{
			SessionID: "testSessionID",
			Category:  "electronics",
			MinPrice:  "0",
			MaxPrice:  "",
		}
		data, err := avro.Marshal(s, v)
		require.NoError(t, err)

		var got schema.FilterChangedV1
		require.NoError(t, avro.Unmarshal(s, data, &got))
		assert.Equal(t, v, got)
	})
}

func TestSerdeCartUpdatedV1(t *testing.T) {
	const subject = "testTopic-value"

	t.Run("NoOpts", func(t *testing.T) {
		_, err := schema.NewSerdeCartUpdatedV1(t.Context())
		require.Error(t, err)
		assert.ErrorIs(t, err, schema.ErrTooFewOpts)
	})

	t.Run("OneOpt", func(t *testing.T) {
		_, err := schema.NewSerdeCartUpdatedV1(
			t.Context(),
			schema.SchemaIdentifierOpt(new(MockSchemaIdentifier)),
		)
		require.Error(t, err)
		assert.ErrorIs(t, err, schema.ErrTooFewOpts)
	})

	t.Run("EmptySubject", func(t *testing.T) {
		_, err := schema.NewSerdeCartUpdatedV1(
			t.Context(),
			schema.SubjectOpt(""),
			schema.SchemaIdentifierOpt(new(MockSchemaIdentifier)),
		)
		require.Error(t, err)
	})

	t.Run("IdentifierFails", func(t *testing.T) {
		errRegistry := errors.New("registry unavailable")
		schemaIdentifier := new(MockSchemaIdentifier)
		schemaIdentifier.On(
			"DetermineID", mock.Anything, subject, schema.CartUpdatedSchemaTextV1,
		).Return(0, errRegistry)

		_, err := schema.NewSerdeCartUpdatedV1(
			t.Context(),
			schema.SubjectOpt(subject),
			schema.SchemaIdentifierOpt(schemaIdentifier),
		)
		require.ErrorIs(t, err, errRegistry)
	})

	t.Run("EncodeDecode", func(t *testing.T) {
		schemaIdentifier := new(MockSchemaIdentifier)
		schemaIdentifier.On(
			"DetermineID", mock.Anything, subject, schema.CartUpdatedSchemaTextV1,
		).Return(1, nil).Once()

		serde, err := schema.NewSerdeCartUpdatedV1(
			t.Context(),
			schema.SubjectOpt(subject),
			schema.SchemaIdentifierOpt(schemaIdentifier),
		)
		require.NoError(t, err)
		schemaIdentifier.AssertExpectations(t)

		v := testCartUpdated()
		data, err := serde.Encode(v)
		require.NoError(t, err)
		require.Greater(t, len(data), 5)
		assert.Equal(t, byte(0), data[0], "confluent wire format magic byte")

		var got schema.CartUpdatedV1
		require.NoError(t, serde.Decode(data, &got))
		assert.Equal(t, v, got)
	})
}

func TestSerdeFilterChangedV1(t *testing.T) {
	const subject = "filterTopic-value"

	schemaIdentifier := new(MockSchemaIdentifier)
	schemaIdentifier.On(
		"DetermineID", mock.Anything, subject, schema.FilterChangedSchemaTextV1,
	).Return(2, nil)

	serde, err := schema.NewSerdeFilterChangedV1(
		t.Context(),
		schema.SubjectOpt(subject),
		schema.SchemaIdentifierOpt(schemaIdentifier),
	)
	require.NoError(t, err)

	v := schema.FilterChangedV1{
		SessionID: "testSessionID",
		Category:  "jewelery",
		MinPrice:  "10",
		MaxPrice:  "250.5",
	}
	data, err := serde.Encode(v)
	require.NoError(t, err)

	var got schema.FilterChangedV1
	require.NoError(t, serde.Decode(data, &got))
	assert.Equal(t, v, got)
}

func TestSerdeForeignSchemaID(t *testing.T) {
	schemaIdentifier := new(MockSchemaIdentifier)
	schemaIdentifier.On(
		"DetermineID", mock.Anything, "cart-value", schema.CartUpdatedSchemaTextV1,
	).Return(1, nil)
	schemaIdentifier.On(
		"DetermineID", mock.Anything, "filter-value", schema.FilterChangedSchemaTextV1,
	).Return(2, nil)

	cartSerde, err := schema.NewSerdeCartUpdatedV1(
		t.Context(),
		schema.SubjectOpt("cart-value"),
		schema.SchemaIdentifierOpt(schemaIdentifier),
	)
	require.NoError(t, err)
	filterSerde, err := schema.NewSerdeFilterChangedV1(
		t.Context(),
		schema.SubjectOpt("filter-value"),
		schema.SchemaIdentifierOpt(schemaIdentifier),
	)
	require.NoError(t, err)

	data, err := filterSerde.Encode(schema.FilterChangedV1{SessionID: "s"})
	require.NoError(t, err)

	var got schema.CartUpdatedV1
	err = cartSerde.Decode(data, &got)
	require.ErrorIs(t, err, sr.ErrNotRegistered)
	assert.Contains(t, err.Error(), "cart-value")

	_, err = cartSerde.Encode(schema.FilterChangedV1{})
	require.Error(t, err)
}
