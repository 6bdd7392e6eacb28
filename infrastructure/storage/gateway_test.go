package storage

import (
	"context"
	"testing"

	"github.com/felixgeelhaar/artifact-go/domain/artifact"
	"github.com/felixgeelhaar/artifact-go/domain/config"
	"github.com/felixgeelhaar/artifact-go/infrastructure/storage/azure"
	"github.com/felixgeelhaar/artifact-go/infrastructure/storage/filesystem"
	"github.com/felixgeelhaar/artifact-go/infrastructure/storage/memory"
	"github.com/felixgeelhaar/artifact-go/infrastructure/storage/s3"
)

func TestNewGateway(t *testing.T) {
	t.Parallel()

	storeDir := t.TempDir()
	tests := []struct {
		name   string
		mutate func(*config.Config)
		check  func(*testing.T, artifact.Gateway)
	}{
		{
			name: "s3",
			mutate: func(c *config.Config) {
				c.Provider = config.ProviderS3
				c.S3 = config.S3Config{Endpoint: "localhost:9000", AccessKey: "ak", SecretKey: "sk", Insecure: true}
			},
			check: func(t *testing.T, gw artifact.Gateway) {
				if _, ok := gw.(*s3.Gateway); !ok {
					t.Errorf("gateway = %T, want *s3.Gateway", gw)
				}
			},
		},
		{
			name: "azure",
			mutate: func(c *config.Config) {
				c.Provider = config.ProviderAzure
				c.Azure = config.AzureConfig{AccountName: "acct", AccountKey: "a2V5"}
			},
			check: func(t *testing.T, gw artifact.Gateway) {
				if _, ok := gw.(*azure.Gateway); !ok {
					t.Errorf("gateway = %T, want *azure.Gateway", gw)
				}
			},
		},
		{
			name: "memory",
			mutate: func(c *config.Config) {
				c.Provider = config.ProviderMemory
			},
			check: func(t *testing.T, gw artifact.Gateway) {
				if _, ok := gw.(*memory.Gateway); !ok {
					t.Errorf("gateway = %T, want *memory.Gateway", gw)
				}
			},
		},
		{
			name: "filesystem",
			mutate: func(c *config.Config) {
				c.Provider = config.ProviderFilesystem
				c.Filesystem.Dir = storeDir
			},
			check: func(t *testing.T, gw artifact.Gateway) {
				if _, ok := gw.(*filesystem.Gateway); !ok {
					t.Errorf("gateway = %T, want *filesystem.Gateway", gw)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.Default()
			tt.mutate(cfg)
			gw, err := NewGateway(context.Background(), cfg)
			if err != nil {
				t.Fatalf("NewGateway() error = %v", err)
			}
			tt.check(t, gw)
		})
	}
}

func TestNewGateway_UnknownProvider(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Provider = "ftp"
	if _, err := NewGateway(context.Background(), cfg); err == nil {
		t.Error("NewGateway() should reject an unknown provider")
	}
}
