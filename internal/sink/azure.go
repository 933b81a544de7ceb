package sink

import (
	"context"
	"fmt"
	"path"

	"docscan/internal/logger"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/sirupsen/logrus"
)

// AzureConfig locates the container confirmed captures are uploaded to.
type AzureConfig struct {
	AccountName string `yaml:"account_name"`
	AccountKey  string `yaml:"account_key"`
	Container   string `yaml:"container"`
	// Prefix is prepended to blob names, e.g. "captures/".
	Prefix string `yaml:"prefix"`
	// ServiceURL overrides the default https://<account>.blob.core.windows.net
	ServiceURL string `yaml:"service_url"`
}

// Enabled reports whether enough settings are present to upload.
func (c AzureConfig) Enabled() bool {
	return c.AccountName != "" && c.AccountKey != "" && c.Container != ""
}

// blobUploader is the part of azblob.Client the sink needs.
type blobUploader interface {
	UploadBuffer(ctx context.Context, containerName string, blobName string, buffer []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error)
}

// AzureBlobSink uploads the image and its JSON report to Blob Storage.
type AzureBlobSink struct {
	client    blobUploader
	container string
	prefix    string
	baseURL   string
	log       *logrus.Entry
}

// NewAzureBlobSink authenticates with a shared key.
func NewAzureBlobSink(cfg AzureConfig) (*AzureBlobSink, error) {
	credential, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}

	serviceURL := cfg.ServiceURL
	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net", cfg.AccountName)
	}
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("azure client: %w", err)
	}

	return newAzureBlobSink(client, serviceURL, cfg), nil
}

func newAzureBlobSink(client blobUploader, serviceURL string, cfg AzureConfig) *AzureBlobSink {
	return &AzureBlobSink{
		client:    client,
		container: cfg.Container,
		prefix:    cfg.Prefix,
		baseURL:   serviceURL,
		log:       logger.For("sink").WithField("container", cfg.Container),
	}
}

// Store uploads <prefix><name> and its JSON sidecar. It returns the image
// blob URL.
func (s *AzureBlobSink) Store(ctx context.Context, a Artifact) (string, error) {
	if a.Name == "" || len(a.Image) == 0 {
		return "", fmt.Errorf("store artifact: missing name or image data")
	}

	imageBlob := s.prefix + a.Name
	contentType := a.ContentType
	_, err := s.client.UploadBuffer(ctx, s.container, imageBlob, a.Image, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
		Metadata: map[string]*string{
			"session": &a.SessionID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}

	meta, err := a.ReportJSON()
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	jsonType := "application/json"
	_, err = s.client.UploadBuffer(ctx, s.container, s.prefix+a.ReportName(), meta, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &jsonType},
	})
	if err != nil {
		return "", fmt.Errorf("upload report: %w", err)
	}

	blobURL := s.baseURL + "/" + path.Join(s.container, imageBlob)
	s.log.WithFields(logrus.Fields{"blob": imageBlob, "bytes": len(a.Image)}).Info("artifact uploaded")
	return blobURL, nil
}
