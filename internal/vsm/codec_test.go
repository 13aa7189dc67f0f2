package vsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeKeepsDocument(t *testing.T) {
	doc := NewExample()

	data, err := Encode(doc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"customerDemand"`)

	back, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, doc.Settings, back.Settings)
	assert.Equal(t, doc.Elements, back.Elements)
	assert.Equal(t, doc.Connections, back.Connections)
}

func TestDecodeEmptyYieldsShell(t *testing.T) {
	for _, in := range []string{"", "null", "{}"} {
		d, err := Decode([]byte(in))
		require.NoError(t, err)
		assert.NotNil(t, d.Elements)
		assert.NotNil(t, d.Connections)
		assert.Equal(t, NewEmpty().Settings, d.Settings)
	}
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode([]byte(`{"elements": [`))
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestDecodeFillsCollections(t *testing.T) {
	d, err := Decode([]byte(`{"settings":{"customerDemand":10}}`))
	require.NoError(t, err)
	assert.Equal(t, 10.0, d.Settings.CustomerDemand)
	assert.Empty(t, d.Elements)
	assert.NotNil(t, d.Connections)
}

func TestDangling(t *testing.T) {
	d := NewExample()
	assert.Empty(t, d.Dangling())

	d.Connections = append(d.Connections, Connection{ID: "x", From: Endpoint{ElementID: "client"}, To: Endpoint{ElementID: "nope"}})
	assert.Equal(t, []string{"x"}, d.Dangling())
}
