// Package storage keeps recipe images outside the relational store. Callers
// hand over the base64 payload received from clients and persist only the
// returned reference.
package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// imagePrefix is the key prefix of every recipe image
const imagePrefix = "recipes/images/"

var (
	// ErrInvalidImage is returned when a payload is not a decodable image
	ErrInvalidImage = errors.New("invalid image payload")
	// ErrImageNotFound is returned when a reference points at nothing
	ErrImageNotFound = errors.New("image not found")
)

// ImageStore persists image blobs and resolves their public location
type ImageStore interface {
	// Save decodes a base64 payload (bare or data URI) and returns its reference
	Save(ctx context.Context, payload string) (string, error)
	// Delete removes the blob behind a reference
	Delete(ctx context.Context, ref string) error
	// URL returns the public location of a reference
	URL(ref string) string
}

// Image is a decoded image payload
type Image struct {
	Data        []byte
	ContentType string
	Extension   string
}

// DecodeImage accepts either "data:image/png;base64,<data>" or bare base64.
// The content type is sniffed from the bytes; the data URI header is not trusted.
func DecodeImage(payload string) (Image, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return Image{}, fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}

	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 {
			return Image{}, fmt.Errorf("%w: malformed data URI", ErrInvalidImage)
		}
		if !strings.HasSuffix(payload[:comma], ";base64") {
			return Image{}, fmt.Errorf("%w: data URI is not base64 encoded", ErrInvalidImage)
		}
		payload = payload[comma+1:]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return Image{}, fmt.Errorf("%w: unsupported content type %s", ErrInvalidImage, mime.String())
	}
	return Image{Data: data, ContentType: mime.String(), Extension: mime.Extension()}, nil
}

// newImageKey returns a fresh, collision free reference for an image
func newImageKey(ext string) string {
	return imagePrefix + uuid.New().String() + ext
}

// validRef rejects references that were not produced by newImageKey
func validRef(ref string) bool {
	return strings.HasPrefix(ref, imagePrefix) && !strings.Contains(ref, "..")
}
