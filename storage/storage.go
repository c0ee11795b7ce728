// Package storage defines the object storage contract used for uploads
package storage

import "context"

// Asset is a file to store. DataURI is a base64 data URI.
type Asset struct {
	DataURI      string
	Folder       string
	ResourceType string
}

// StoredAsset describes an uploaded file
type StoredAsset struct {
	URL      string
	PublicID string
	Format   string
	Size     int
}

// Uploader stores and removes assets in a remote object store
type Uploader interface {
	Upload(ctx context.Context, asset Asset) (*StoredAsset, error)
	Destroy(ctx context.Context, publicID string) error
}
