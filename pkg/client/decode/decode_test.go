package decode_test

import (
	"bytes"
	"compress/gzip"
	"io"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/declarest/go-client/pkg/client/decode"
)

func TestDecode_Identity(t *testing.T) {
	t.Parallel()
	body := io.NopCloser(strings.NewReader("plain"))

	for _, encoding := range []string{"", "identity", "unknown"} {
		out, err := decode.Decode(body, encoding)
		require.NoError(t, err)
		assert.Equal(t, body, out)
	}
}

func TestDecode_Gzip(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte("gzip content"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	out, err := decode.Decode(io.NopCloser(&buf), "GZIP")
	require.NoError(t, err)
	content, err := io.ReadAll(out)
	require.NoError(t, err)
	assert.Equal(t, "gzip content", string(content))
}

func TestDecode_Gzip_Malformed(t *testing.T) {
	t.Parallel()
	_, err := decode.Decode(io.NopCloser(strings.NewReader("not gzip")), "gzip")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot decode gzip")
}

func TestDecode_Brotli(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	_, err := w.Write([]byte("brotli content"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	out, err := decode.Decode(io.NopCloser(&buf), "br")
	require.NoError(t, err)
	content, err := io.ReadAll(out)
	require.NoError(t, err)
	assert.Equal(t, "brotli content", string(content))
}
