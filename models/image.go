package models

import (
	"encoding/base64"
	"fmt"
	"strings"
)

type ImageKind string

const (
	ImageInline ImageKind = "inline"
	ImageURI    ImageKind = "uri"
)

// ImageReference holds either decoded image bytes with a MIME type or a URL
// (http(s) or data: URI). Only one of Data / URL is set.
type ImageReference struct {
	Kind     ImageKind `json:"kind"`
	MIMEType string    `json:"mime_type,omitempty"`
	Data     []byte    `json:"data,omitempty"`
	URL      string    `json:"url,omitempty"`
}

func NewInlineImage(data []byte, mimeType string) ImageReference {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return ImageReference{Kind: ImageInline, MIMEType: mimeType, Data: data}
}

func NewURIImage(url string) ImageReference {
	return ImageReference{Kind: ImageURI, URL: url}
}

func (r ImageReference) IsEmpty() bool {
	switch r.Kind {
	case ImageInline:
		return len(r.Data) == 0
	case ImageURI:
		return r.URL == ""
	}
	return true
}

func (r ImageReference) IsDataURI() bool {
	return r.Kind == ImageURI && strings.HasPrefix(r.URL, "data:")
}

func (r ImageReference) IsRemote() bool {
	return r.Kind == ImageURI && (strings.HasPrefix(r.URL, "http://") || strings.HasPrefix(r.URL, "https://"))
}

// DataURI renders inline bytes as a data: URI. URI references are returned as is.
func (r ImageReference) DataURI() string {
	if r.Kind == ImageURI {
		return r.URL
	}
	return fmt.Sprintf("data:%s;base64,%s", r.MIMEType, base64.StdEncoding.EncodeToString(r.Data))
}

// String is the display form handed back to clients.
func (r ImageReference) String() string {
	return r.DataURI()
}

// Equal compares kind and payload.
func (r ImageReference) Equal(other ImageReference) bool {
	if r.Kind != other.Kind {
		return false
	}
	if r.Kind == ImageURI {
		return r.URL == other.URL
	}
	return r.MIMEType == other.MIMEType && string(r.Data) == string(other.Data)
}
