package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_EmptyPathResolvesNothing(t *testing.T) {
	m, err := Open("")
	require.NoError(t, err)
	assert.True(t, m.Lookup("8.8.8.8").IsEmpty())
	assert.NoError(t, m.Close())
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open("/nonexistent/GeoLite2-City.mmdb")
	assert.Error(t, err)
}

func TestLookup_NilResolver(t *testing.T) {
	var m *MaxMind
	assert.True(t, m.Lookup("8.8.8.8").IsEmpty())
}

func TestPublic(t *testing.T) {
	assert.NotNil(t, Public("8.8.8.8"))
	assert.NotNil(t, Public("2001:4860:4860::8888"))
	for _, ip := range []string{"", "garbage", "127.0.0.1", "10.1.2.3", "192.168.0.10", "::1", "0.0.0.0", "169.254.1.1"} {
		assert.Nil(t, Public(ip), ip)
	}
}

func TestCountryName(t *testing.T) {
	assert.Equal(t, "Germany", CountryName("DE"))
	assert.Equal(t, "ZZ", CountryName("ZZ"))
}
