package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAddresses(t *testing.T) {
	got, err := NormalizeAddresses([]string{
		"0x5DD596C901987A2B28C38A9C1DFBF86FFFC15D77",
		" 5dd596c901987a2b28c38a9c1dfbf86fffc15d77 ",
		"",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"0x5dd596c901987a2b28c38a9c1dfbf86fffc15d77",
		"0x5dd596c901987a2b28c38a9c1dfbf86fffc15d77",
	}, got)

	for _, bad := range []string{"0xwallet", "0x1234", "0x5dd596c901987a2b28c38a9c1dfbf86fffc15d7z"} {
		_, err := NormalizeAddresses([]string{bad})
		assert.ErrorIs(t, err, ErrInvalidAddress, bad)
	}

	got, err = NormalizeAddresses(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
