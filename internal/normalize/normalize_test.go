package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebsite_Canonicalizes(t *testing.T) {
	got, ok := Website("WWW.Foo.com/")
	require.True(t, ok)
	assert.Equal(t, "https://www.foo.com", got)
}

func TestWebsite_KeepsScheme(t *testing.T) {
	got, ok := Website("http://acme.io")
	require.True(t, ok)
	assert.Equal(t, "http://acme.io", got)
}

func TestWebsite_TrimsWhitespace(t *testing.T) {
	got, ok := Website("  https://acme.com  ")
	require.True(t, ok)
	assert.Equal(t, "https://acme.com", got)
}

func TestWebsite_Blank(t *testing.T) {
	_, ok := Website("")
	assert.False(t, ok)

	_, ok = Website("   \t ")
	assert.False(t, ok)
}

func TestWebsite_Malformed(t *testing.T) {
	_, ok := Website("not a url")
	assert.False(t, ok)

	_, ok = Website("https://")
	assert.False(t, ok)
}

func TestWebsite_StripsOneTrailingSlash(t *testing.T) {
	got, ok := Website("https://acme.com//")
	require.True(t, ok)
	assert.Equal(t, "https://acme.com/", got)
}

func TestWebsite_Idempotent(t *testing.T) {
	inputs := []string{
		"WWW.Foo.com/",
		"https://acme.com",
		"acme.com/about",
		"HTTP://Example.ORG/",
	}
	for _, in := range inputs {
		first, ok := Website(in)
		require.True(t, ok, in)
		second, ok := Website(first)
		require.True(t, ok, first)
		assert.Equal(t, first, second, in)
	}
}

func TestField(t *testing.T) {
	got, ok := Field("  Acme Corp ")
	require.True(t, ok)
	assert.Equal(t, "Acme Corp", got)

	_, ok = Field("   ")
	assert.False(t, ok)
}

func TestKey_CaseFolds(t *testing.T) {
	assert.Equal(t, Key("ACME Gmbh"), Key("acme gmbh"))
	assert.Equal(t, Key(" Straße "), Key("STRASSE"))
	assert.NotEqual(t, Key("acme"), Key("acme inc"))
}
