// Package storage selects the object store gateway named by
// configuration.
package storage

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/artifact-go/domain/artifact"
	"github.com/felixgeelhaar/artifact-go/domain/config"
	"github.com/felixgeelhaar/artifact-go/infrastructure/storage/azure"
	"github.com/felixgeelhaar/artifact-go/infrastructure/storage/filesystem"
	"github.com/felixgeelhaar/artifact-go/infrastructure/storage/gcs"
	"github.com/felixgeelhaar/artifact-go/infrastructure/storage/memory"
	"github.com/felixgeelhaar/artifact-go/infrastructure/storage/s3"
)

// NewGateway creates the gateway for cfg.Provider. It does not contact
// the store.
func NewGateway(ctx context.Context, cfg *config.Config) (artifact.Gateway, error) {
	switch cfg.Provider {
	case config.ProviderS3:
		gw, err := s3.New(ctx, s3.Config{
			Region:          cfg.S3.Region,
			AccessKeyID:     cfg.S3.AccessKey,
			SecretAccessKey: cfg.S3.SecretKey,
			Endpoint:        cfg.S3.Endpoint,
			Insecure:        cfg.S3.Insecure,
			UsePathStyle:    cfg.S3.UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return gw, nil
	case config.ProviderGCS:
		gw, err := gcs.New(ctx, gcs.Config{
			ProjectID:       cfg.GCS.ProjectID,
			CredentialsFile: cfg.GCS.CredentialsFile,
			Endpoint:        cfg.GCS.Endpoint,
		})
		if err != nil {
			return nil, err
		}
		return gw, nil
	case config.ProviderAzure:
		gw, err := azure.New(azure.Config{
			AccountName:      cfg.Azure.AccountName,
			AccountKey:       cfg.Azure.AccountKey,
			ConnectionString: cfg.Azure.ConnectionString,
			ServiceURL:       cfg.Azure.ServiceURL,
		})
		if err != nil {
			return nil, err
		}
		return gw, nil
	case config.ProviderFilesystem:
		gw, err := filesystem.New(cfg.Filesystem.Dir)
		if err != nil {
			return nil, err
		}
		return gw, nil
	case config.ProviderMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported storage provider %q", cfg.Provider)
	}
}
