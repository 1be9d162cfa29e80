package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProperties(t *testing.T) {
	t.Run("names follow bit order", func(t *testing.T) {
		p := PropNotify | PropRead | PropWrite
		assert.Equal(t, []string{"read", "write", "notify"}, p.Names())
		assert.Equal(t, "read,write,notify", p.String())
	})

	t.Run("has and any", func(t *testing.T) {
		p := PropRead | PropWriteWithoutResponse
		assert.True(t, p.Has(PropRead))
		assert.False(t, p.Has(PropRead|PropWrite), "Has MUST require every bit")
		assert.True(t, p.Any(PropWrite|PropWriteWithoutResponse))
		assert.False(t, p.Any(PropNotify|PropIndicate))
	})

	t.Run("parse round trip and aliases", func(t *testing.T) {
		assert.Equal(t, PropRead|PropWrite|PropNotify, ParseProperties("read, write ,NOTIFY"))
		assert.Equal(t, PropWriteWithoutResponse, ParseProperties("write-nr"))
		assert.Equal(t, PropReliableWrites|PropWritableAuxiliaries, ParseProperties("reliable,writable-auxiliaries"))
		assert.Equal(t, Properties(0), ParseProperties("bogus"))

		all := Properties(0x03ff)
		assert.Equal(t, all, ParseProperties(all.String()))
	})
}
