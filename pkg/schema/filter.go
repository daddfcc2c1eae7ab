package schema

import "github.com/hamba/avro/v2"

const FilterChangedSchemaTextV1 = `{
	"type": "record",
	"namespace": "fakestore.filter",
	"name": "filter_changed",
	"fields": [
		{"name": "session_id", "type": "string"},
		{"name": "category", "type": "string"},
		{"name": "min_price", "type": "string"},
		{"name": "max_price", "type": "string"}
	]
}`

// FilterChangedV1 is a filter edit, empty price strings mean unbounded.
type FilterChangedV1 struct {
	SessionID string `avro:"session_id"`
	Category  string `avro:"category"`
	MinPrice  string `avro:"min_price"`
	MaxPrice  string `avro:"max_price"`
}

func FilterChangedV1Avro() avro.Schema {
	return avro.MustParse(FilterChangedSchemaTextV1)
}
