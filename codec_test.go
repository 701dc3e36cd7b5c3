package sqlitehelper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeValue_ParsesJSONText(t *testing.T) {
	assert.Equal(t, []any{"beef", "soup"}, decodeValue(`["beef","soup"]`))
	assert.Equal(t, map[string]any{"origin": "fr"}, decodeValue(`{"origin":"fr"}`))
	assert.Equal(t, float64(3), decodeValue("3"))
	assert.Equal(t, true, decodeValue("true"))
	assert.Nil(t, decodeValue("null"))
}

func TestDecodeValue_KeepsScalarOnParseFailure(t *testing.T) {
	// The expected path for genuinely scalar columns.
	assert.Equal(t, "apple", decodeValue("apple"))
	assert.Equal(t, "", decodeValue(""))
	assert.Equal(t, "{not json", decodeValue("{not json"))
}

func TestDecodeValue_NonTextualUnchanged(t *testing.T) {
	assert.Equal(t, int64(7), decodeValue(int64(7)))
	assert.Equal(t, 2.5, decodeValue(2.5))
	assert.Nil(t, decodeValue(nil))
}

func TestDecodeRow_Idempotent(t *testing.T) {
	row := Row{
		"name":  "stew",
		"tags":  `["beef","soup"]`,
		"price": int64(3),
	}

	once := decodeRow(row)
	twice := decodeRow(once)

	assert.Equal(t, once, twice)
	assert.Equal(t, []any{"beef", "soup"}, once["tags"])
}

func TestDecodeRow_DoesNotMutateInput(t *testing.T) {
	row := Row{"tags": `["a"]`}
	decodeRow(row)
	assert.Equal(t, `["a"]`, row["tags"])
}
