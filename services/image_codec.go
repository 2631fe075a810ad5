package services

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"tryonapi/models"
)

type ImageForm string

const (
	FormInline ImageForm = "inline"
	FormURI    ImageForm = "uri"
)

var dataURIRule = regexp.MustCompile(`^data:(image/[\w.+-]+);base64,`)

// Normalize converts ref into the form a provider expects. It never fetches
// anything, so a remote URL cannot become inline bytes.
func Normalize(ref models.ImageReference, form ImageForm) (models.ImageReference, error) {
	if ref.IsEmpty() {
		return models.ImageReference{}, fmt.Errorf("empty image: %w", models.ErrUnsupportedImageForm)
	}
	switch form {
	case FormInline:
		if ref.Kind == models.ImageInline {
			return ref, nil
		}
		if ref.IsDataURI() {
			return decodeDataURI(ref.URL)
		}
		return models.ImageReference{}, fmt.Errorf("cannot inline remote image %s: %w", ref.URL, models.ErrUnsupportedImageForm)
	case FormURI:
		if ref.Kind == models.ImageURI {
			return ref, nil
		}
		return models.NewURIImage(ref.DataURI()), nil
	}
	return models.ImageReference{}, fmt.Errorf("unknown target form %q: %w", form, models.ErrUnsupportedImageForm)
}

// ParseImageReference reads what clients send: raw base64, a data URI or an http(s) URL.
func ParseImageReference(value string) (models.ImageReference, error) {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return models.ImageReference{}, fmt.Errorf("empty image: %w", models.ErrUnsupportedImageForm)
	case strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://"):
		return models.NewURIImage(value), nil
	case strings.HasPrefix(value, "data:"):
		return decodeDataURI(value)
	}
	data, err := decodeBase64(value)
	if err != nil {
		return models.ImageReference{}, fmt.Errorf("image is neither a URL nor base64: %w", models.ErrUnsupportedImageForm)
	}
	return models.NewInlineImage(data, DetectImageMIME(data)), nil
}

// DetectImageMIME sniffs the content type, defaulting to image/jpeg.
func DetectImageMIME(data []byte) string {
	mimeType := http.DetectContentType(data)
	if strings.HasPrefix(mimeType, "image/") {
		return mimeType
	}
	return "image/jpeg"
}

func decodeDataURI(value string) (models.ImageReference, error) {
	match := dataURIRule.FindStringSubmatch(value)
	if match == nil {
		return models.ImageReference{}, fmt.Errorf("malformed data URI: %w", models.ErrUnsupportedImageForm)
	}
	data, err := decodeBase64(value[len(match[0]):])
	if err != nil || len(data) == 0 {
		return models.ImageReference{}, fmt.Errorf("malformed data URI payload: %w", models.ErrUnsupportedImageForm)
	}
	return models.NewInlineImage(data, match[1]), nil
}

func decodeBase64(value string) ([]byte, error) {
	if data, err := base64.StdEncoding.DecodeString(value); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(value)
}

// ImageExtension maps a MIME type to a file extension for stored results.
func ImageExtension(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/heic":
		return ".heic"
	}
	return ".jpg"
}
