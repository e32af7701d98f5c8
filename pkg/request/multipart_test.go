package request_test

import (
	"io"
	"mime"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/declarest/go-client/pkg/request"
)

func TestMultipartBody_Immutability(t *testing.T) {
	t.Parallel()
	base := request.NewMultipartBody().AndField("name", "main")
	form1 := base.AndFile("file", "data.csv", "a,b,c")
	form2 := base.AndField("description", "...")

	assert.Len(t, base.Parts(), 1)
	assert.Len(t, form1.Parts(), 2)
	assert.Len(t, form2.Parts(), 2)

	// The boundary is stable across the clones
	assert.Equal(t, base.ContentType(), form1.ContentType())
	assert.Equal(t, base.ContentType(), form2.ContentType())
}

func TestMultipartBody_Encode(t *testing.T) {
	t.Parallel()
	form := request.NewMultipartBody().
		AndField("name", "main").
		AndFile("file", "data.csv", strings.NewReader("a,b,c")).
		AndPart(request.MultipartPart{Name: "meta", Filename: "meta.json", ContentType: "application/json", Content: []byte(`{"k":"v"}`)})

	_, params, err := mime.ParseMediaType(form.ContentType())
	require.NoError(t, err)

	// Encode can be called repeatedly, streamed contents are rewound
	for i := 0; i < 2; i++ {
		body, err := form.Encode()
		require.NoError(t, err)

		reader := multipart.NewReader(body, params["boundary"])

		part, err := reader.NextPart()
		require.NoError(t, err)
		assert.Equal(t, "name", part.FormName())
		content, err := io.ReadAll(part)
		require.NoError(t, err)
		assert.Equal(t, "main", string(content))

		part, err = reader.NextPart()
		require.NoError(t, err)
		assert.Equal(t, "file", part.FormName())
		assert.Equal(t, "data.csv", part.FileName())
		content, err = io.ReadAll(part)
		require.NoError(t, err)
		assert.Equal(t, "a,b,c", string(content))

		part, err = reader.NextPart()
		require.NoError(t, err)
		assert.Equal(t, "meta", part.FormName())
		assert.Equal(t, "application/json", part.Header.Get("Content-Type"))
		content, err = io.ReadAll(part)
		require.NoError(t, err)
		assert.Equal(t, `{"k":"v"}`, string(content))

		_, err = reader.NextPart()
		assert.Equal(t, io.EOF, err)

		require.NoError(t, body.Close())
	}
}

func TestMultipartBody_Encode_UnsupportedContent(t *testing.T) {
	t.Parallel()
	form := request.NewMultipartBody().AndField("name", 123)
	_, err := form.Encode()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `cannot write multipart part "name"`)
}
