package services

import (
	"encoding/base64"
	"testing"

	"tryonapi/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDRfake")

func TestNormalizeIsIdempotent(t *testing.T) {
	refs := []models.ImageReference{
		models.NewInlineImage(pngBytes, "image/png"),
		models.NewURIImage("https://cdn.example.com/a.jpg"),
		models.NewURIImage("data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)),
	}
	for _, ref := range refs {
		for _, form := range []ImageForm{FormInline, FormURI} {
			once, err := Normalize(ref, form)
			if err != nil {
				continue
			}
			twice, err := Normalize(once, form)
			require.NoError(t, err)
			assert.True(t, once.Equal(twice), "form %s of %s", form, ref.Kind)
		}
	}
}

func TestNormalizeInlineToURIAndBack(t *testing.T) {
	inline := models.NewInlineImage(pngBytes, "image/png")

	uri, err := Normalize(inline, FormURI)
	require.NoError(t, err)
	assert.True(t, uri.IsDataURI())

	back, err := Normalize(uri, FormInline)
	require.NoError(t, err)
	assert.True(t, inline.Equal(back))
}

func TestNormalizeRemoteToInlineFails(t *testing.T) {
	_, err := Normalize(models.NewURIImage("https://cdn.example.com/a.jpg"), FormInline)
	require.Error(t, err)
	assert.Equal(t, models.KindUnsupportedImageForm, models.KindOf(err))

	_, err = Normalize(models.ImageReference{}, FormURI)
	assert.Equal(t, models.KindUnsupportedImageForm, models.KindOf(err))
}

func TestParseImageReference(t *testing.T) {
	raw := base64.StdEncoding.EncodeToString(pngBytes)

	ref, err := ParseImageReference(raw)
	require.NoError(t, err)
	assert.Equal(t, models.ImageInline, ref.Kind)
	assert.Equal(t, "image/png", ref.MIMEType)
	assert.Equal(t, pngBytes, ref.Data)

	ref, err = ParseImageReference("data:image/webp;base64," + raw)
	require.NoError(t, err)
	assert.Equal(t, "image/webp", ref.MIMEType)

	ref, err = ParseImageReference(" https://cdn.example.com/a.jpg ")
	require.NoError(t, err)
	assert.True(t, ref.IsRemote())

	_, err = ParseImageReference("definitely not an image!")
	assert.Equal(t, models.KindUnsupportedImageForm, models.KindOf(err))

	_, err = ParseImageReference("data:text/plain;base64,aGk=")
	assert.Error(t, err)
}
