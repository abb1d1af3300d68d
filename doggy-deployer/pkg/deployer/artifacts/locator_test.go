package artifacts

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocatorUnmarshalText(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantDir string
		wantErr string
	}{
		{name: "absolute file url", in: "file:///srv/build/contracts", wantDir: "/srv/build/contracts"},
		{name: "relative file url", in: "file://build/contracts", wantDir: "build/contracts"},
		{name: "bare path", in: "/srv/build", wantDir: "/srv/build"},
		{name: "http unsupported", in: "https://example.com/artifacts.tgz", wantErr: "unsupported scheme"},
		{name: "empty", in: "  ", wantErr: "empty artifacts locator"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var loc Locator
			err := loc.UnmarshalText([]byte(tt.in))
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantDir, loc.Dir())
		})
	}
}

func TestLocatorRoundTrip(t *testing.T) {
	loc := MustNewFileLocator("/srv/build")
	text, err := loc.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "file:///srv/build", string(text))

	var decoded Locator
	require.NoError(t, decoded.UnmarshalTOML(string(text)))
	require.True(t, loc.Equal(&decoded))

	tomlText, err := loc.MarshalTOML()
	require.NoError(t, err)
	require.Equal(t, `"file:///srv/build"`, string(tomlText))
	require.Error(t, decoded.UnmarshalTOML(42))
}
