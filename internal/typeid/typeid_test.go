package typeid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCarriesPrefix(t *testing.T) {
	cases := map[string]func() string{
		PrefixDocument: NewDocumentID,
		PrefixLayer:    NewLayerID,
		PrefixElement:  NewElementID,
		PrefixSnapshot: NewSnapshotID,
		PrefixAsset:    NewAssetID,
	}
	for prefix, gen := range cases {
		id := gen()
		assert.True(t, strings.HasPrefix(id, prefix+"_"), id)
		require.NoError(t, Validate(id, prefix))
	}
}

func TestValidate(t *testing.T) {
	id := NewLayerID()
	assert.Error(t, Validate(id, PrefixDocument))
	assert.Error(t, Validate("not an id", PrefixLayer))
	assert.NotEqual(t, id, NewLayerID())
}
