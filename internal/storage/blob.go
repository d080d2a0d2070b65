package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// maxWatermarkBlobBytes bounds how much of a watermark blob is read.
const maxWatermarkBlobBytes = 1 << 10

// BlobAPI defines the Azure Blob Storage operations used by the watermark store.
type BlobAPI interface {
	// DownloadStream reads a blob.
	DownloadStream(
		ctx context.Context,
		containerName string,
		blobName string,
		o *azblob.DownloadStreamOptions,
	) (azblob.DownloadStreamResponse, error)

	// UploadBuffer writes a blob, replacing any existing content.
	UploadBuffer(
		ctx context.Context,
		containerName string,
		blobName string,
		buffer []byte,
		o *azblob.UploadBufferOptions,
	) (azblob.UploadBufferResponse, error)
}

// BlobConfig selects how to connect to an Azure storage account.
type BlobConfig struct {
	// AccountName is the storage account name or its blob service URL.
	AccountName string

	// ConnectionString takes precedence over AccountName when set.
	ConnectionString string
}

// serviceURL returns the blob service URL for the configured account.
func (c BlobConfig) serviceURL() string {
	if strings.Contains(c.AccountName, ".blob.core.windows.net") {
		return c.AccountName
	}
	return fmt.Sprintf("https://%s.blob.core.windows.net/", c.AccountName)
}

// NewBlobClient connects to Azure Blob Storage using a connection string or,
// failing that, the account name and the default Azure credential chain.
func NewBlobClient(cfg BlobConfig) (*azblob.Client, error) {
	if cfg.ConnectionString != "" {
		return azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	}

	if cfg.AccountName == "" {
		return nil, errors.New("one of blob connection string or account name is required")
	}

	credentials, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("creating azure credentials: %w", err)
	}

	return azblob.NewClient(cfg.serviceURL(), credentials, nil)
}

// BlobStore keeps one watermark blob per sync key in an Azure storage container.
type BlobStore struct {
	// client is the Azure Blob Storage client.
	client BlobAPI

	// container is the container holding the watermark blobs.
	container string
}

// LastSyncTime returns the watermark for key, or the zero time if none is stored.
func (s *BlobStore) LastSyncTime(ctx context.Context, key string) (time.Time, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("downloading watermark blob: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxWatermarkBlobBytes))
	if err != nil {
		return time.Time{}, fmt.Errorf("reading watermark blob: %w", err)
	}

	return parseWatermark(string(data))
}

// SetLastSyncTime stores the watermark for key.
func (s *BlobStore) SetLastSyncTime(ctx context.Context, key string, t time.Time) error {
	_, err := s.client.UploadBuffer(ctx, s.container, key, []byte(formatWatermark(t)), nil)
	if err != nil {
		return fmt.Errorf("uploading watermark blob: %w", err)
	}

	return nil
}

// NewBlobStore creates a new Azure Blob-backed watermark store.
func NewBlobStore(client BlobAPI, container string) (*BlobStore, error) {
	if client == nil {
		return nil, errors.New("blob client is required")
	}
	if container == "" {
		return nil, errors.New("container name is required")
	}

	return &BlobStore{
		client:    client,
		container: container,
	}, nil
}
