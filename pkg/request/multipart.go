package request

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
)

// MultipartBody is a "multipart/form-data" request body definition.
//
// The boundary is generated once, so the Content-Type header is stable,
// and the body can be re-encoded on a retry or a redirect.
// File content must be a string, []byte or io.ReadSeeker,
// so it can be read repeatedly.
type MultipartBody struct {
	boundary string
	parts    []MultipartPart
}

// MultipartPart is one field or file of a multipart form.
type MultipartPart struct {
	// Name is the form field name.
	Name string
	// Filename marks the part as a file part, if not empty.
	Filename string
	// ContentType overrides the part content type, optional.
	ContentType string
	// Content of the part: string, []byte or io.ReadSeeker.
	Content any
}

// NewMultipartBody creates an empty multipart form body.
func NewMultipartBody() *MultipartBody {
	// The multipart.Writer generates a random boundary on creation,
	// it is kept for the whole life of the body definition.
	return &MultipartBody{boundary: multipart.NewWriter(io.Discard).Boundary()}
}

// AndField returns a clone of the body with a plain form field added.
func (b *MultipartBody) AndField(name string, content any) *MultipartBody {
	return b.andPart(MultipartPart{Name: name, Content: content})
}

// AndFile returns a clone of the body with a file part added.
func (b *MultipartBody) AndFile(name, filename string, content any) *MultipartBody {
	return b.andPart(MultipartPart{Name: name, Filename: filename, Content: content})
}

// AndPart returns a clone of the body with the part added.
func (b *MultipartBody) AndPart(part MultipartPart) *MultipartBody {
	return b.andPart(part)
}

// Parts method returns the ordered form parts.
func (b *MultipartBody) Parts() []MultipartPart {
	return b.parts
}

// ContentType method returns the form content type, including the boundary.
func (b *MultipartBody) ContentType() string {
	return "multipart/form-data; boundary=" + b.boundary
}

// Encode method writes all parts to a fresh reader.
// Streamed file contents are rewound first, so Encode can be called repeatedly.
func (b *MultipartBody) Encode() (io.ReadCloser, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.SetBoundary(b.boundary); err != nil {
		return nil, err
	}

	for _, part := range b.parts {
		wr, err := createPart(w, part)
		if err != nil {
			return nil, err
		}
		if err := writePartContent(wr, part); err != nil {
			return nil, fmt.Errorf(`cannot write multipart part "%s": %w`, part.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(buf.Bytes())), nil
}

func (b *MultipartBody) andPart(part MultipartPart) *MultipartBody {
	clone := *b
	clone.parts = append(b.parts[:len(b.parts):len(b.parts)], part)
	return &clone
}

func createPart(w *multipart.Writer, part MultipartPart) (io.Writer, error) {
	if part.ContentType == "" {
		if part.Filename == "" {
			return w.CreateFormField(part.Name)
		}
		return w.CreateFormFile(part.Name, part.Filename)
	}

	h := make(textproto.MIMEHeader)
	disposition := fmt.Sprintf(`form-data; name="%s"`, escapeQuotes(part.Name))
	if part.Filename != "" {
		disposition += fmt.Sprintf(`; filename="%s"`, escapeQuotes(part.Filename))
	}
	h.Set("Content-Disposition", disposition)
	h.Set("Content-Type", part.ContentType)
	return w.CreatePart(h)
}

func writePartContent(wr io.Writer, part MultipartPart) error {
	switch v := part.Content.(type) {
	case string:
		_, err := io.WriteString(wr, v)
		return err
	case []byte:
		_, err := wr.Write(v)
		return err
	case io.ReadSeeker:
		if _, err := v.Seek(0, io.SeekStart); err != nil {
			return err
		}
		_, err := io.Copy(wr, v)
		return err
	default:
		return fmt.Errorf(`unsupported content type "%T"`, part.Content)
	}
}

func escapeQuotes(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
