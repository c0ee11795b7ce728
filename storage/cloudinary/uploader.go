// Package cloudinary stores uploads in Cloudinary
package cloudinary

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gmaiocc/itic-website-sub000/pkg/monitoring"
	"github.com/gmaiocc/itic-website-sub000/storage"
)

const metricsTarget = "cloudinary"

// Uploader implements storage.Uploader with the Cloudinary upload API
type Uploader struct {
	cld *cloudinary.Cloudinary
}

// NewUploader creates an uploader for the given account credentials
func NewUploader(cloudName, apiKey, apiSecret string) (*Uploader, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}
	return &Uploader{cld: cld}, nil
}

// Upload sends a data URI to Cloudinary. The resource type defaults to auto
// so documents and images share one path.
func (u *Uploader) Upload(ctx context.Context, asset storage.Asset) (result *storage.StoredAsset, err error) {
	start := time.Now()
	defer func() {
		monitoring.RecordExternalCall(ctx, metricsTarget, "upload", time.Since(start), err)
	}()

	resourceType := asset.ResourceType
	if resourceType == "" {
		resourceType = "auto"
	}

	resp, err := u.cld.Upload.Upload(ctx, asset.DataURI, uploader.UploadParams{
		Folder:       asset.Folder,
		ResourceType: resourceType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload asset: %w", err)
	}
	if resp.Error.Message != "" {
		return nil, errors.New(resp.Error.Message)
	}

	return &storage.StoredAsset{
		URL:      resp.SecureURL,
		PublicID: resp.PublicID,
		Format:   resp.Format,
		Size:     resp.Bytes,
	}, nil
}

// Destroy removes an asset by public id
func (u *Uploader) Destroy(ctx context.Context, publicID string) (err error) {
	start := time.Now()
	defer func() {
		monitoring.RecordExternalCall(ctx, metricsTarget, "destroy", time.Since(start), err)
	}()

	resp, err := u.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("failed to delete asset %s: %w", publicID, err)
	}
	if resp.Error.Message != "" {
		return errors.New(resp.Error.Message)
	}
	if resp.Result != "ok" && resp.Result != "not found" {
		return fmt.Errorf("failed to delete asset %s: %s", publicID, resp.Result)
	}
	return nil
}
