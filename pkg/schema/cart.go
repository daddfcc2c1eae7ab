package schema

import "github.com/hamba/avro/v2"

const CartUpdatedSchemaTextV1 = `{
	"type": "record",
	"namespace": "fakestore.cart",
	"name": "cart_updated",
	"fields": [
		{"name": "session_id", "type": "string"},
		{"name": "count", "type": "int"},
		{"name": "total", "type": "string"},
		{"name": "lines", "type": {
			"type": "array",
			"items": {
				"type": "record",
				"name": "cart_line",
				"fields": [
					{"name": "product_id", "type": "long"},
					{"name": "title", "type": "string"},
					{"name": "price", "type": "string"},
					{"name": "quantity", "type": "int"}
				]
			}
		}}
	]
}`

type (
	CartUpdatedV1 struct {
		SessionID string       `avro:"session_id"`
		Count     int32        `avro:"count"`
		Total     string       `avro:"total"`
		Lines     []CartLineV1 `avro:"lines"`
	}

	CartLineV1 struct {
		ProductID int64  `avro:"product_id"`
		Title     string `avro:"title"`
		Price     string `avro:"price"`
		Quantity  int32  `avro:"quantity"`
	}
)

func CartUpdatedV1Avro() avro.Schema {
	return avro.MustParse(CartUpdatedSchemaTextV1)
}
