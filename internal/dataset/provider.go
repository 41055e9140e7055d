package dataset

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // local directory driver
	_ "gocloud.dev/blob/gcsblob"  // GCS driver
	_ "gocloud.dev/blob/s3blob"   // S3 driver

	"github.com/tourneyd/tourneyd/internal/round"
	"github.com/tourneyd/tourneyd/internal/util"
)

// Provider downloads and unpacks the dataset for a round into the data
// directory, returning the unpacked dataset directory. Failures are
// transient from the caller's perspective; the round cycle retries.
type Provider interface {
	Download(ctx context.Context, n round.Number, dataDir string) (string, error)
}

const downloadTimeout = 15 * time.Minute

// HTTPProvider downloads dataset archives from the tournament API.
type HTTPProvider struct {
	client       *resty.Client
	tournamentID int
	log          *slog.Logger
}

// HTTPConfig configures the HTTP dataset provider.
type HTTPConfig struct {
	BaseURL      string
	TournamentID int
}

// NewHTTPProvider creates a dataset provider backed by the tournament API.
func NewHTTPProvider(cfg HTTPConfig) *HTTPProvider {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(downloadTimeout).
		SetHeader("User-Agent", "tourneyd")

	return &HTTPProvider{
		client:       client,
		tournamentID: cfg.TournamentID,
		log:          slog.With("component", "dataset-http"),
	}
}

// Download fetches the current dataset archive over HTTP and unpacks it.
func (p *HTTPProvider) Download(ctx context.Context, n round.Number, dataDir string) (string, error) {
	if err := util.EnsureDir(dataDir); err != nil {
		return "", fmt.Errorf("create data directory %s: %w", dataDir, err)
	}

	archivePath := ArchivePath(dataDir, n)
	p.log.Info("downloading dataset", "round", int64(n), "dest", archivePath)

	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("tournament", fmt.Sprintf("%d", p.tournamentID)).
		SetQueryParam("round", fmt.Sprintf("%d", n)).
		SetOutput(archivePath).
		Get("/v1/datasets/current")
	if err != nil {
		return "", fmt.Errorf("download dataset for round %d: %w", n, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("download dataset for round %d: unexpected status %s", n, resp.Status())
	}

	destDir := Dir(dataDir, n)
	if err := Extract(ctx, archivePath, destDir); err != nil {
		return "", fmt.Errorf("unpack dataset for round %d: %w", n, err)
	}

	return destDir, nil
}

// BlobProvider downloads dataset archives from a blob bucket mirror.
// Works with local directories (file://), GCS (gs://), and S3-compatible
// stores (s3://) via gocloud.dev.
type BlobProvider struct {
	bucketURL string
	prefix    string
	log       *slog.Logger
}

// BlobConfig configures the blob mirror dataset provider.
type BlobConfig struct {
	BucketURL string // e.g. "s3://datasets?region=us-east-1", "file:///srv/mirror"
	Prefix    string // key prefix inside the bucket
}

// NewBlobProvider creates a dataset provider reading from a bucket mirror.
func NewBlobProvider(cfg BlobConfig) *BlobProvider {
	return &BlobProvider{
		bucketURL: cfg.BucketURL,
		prefix:    cfg.Prefix,
		log:       slog.With("component", "dataset-blob"),
	}
}

// Download copies the round's archive out of the bucket and unpacks it.
func (p *BlobProvider) Download(ctx context.Context, n round.Number, dataDir string) (string, error) {
	if err := util.EnsureDir(dataDir); err != nil {
		return "", fmt.Errorf("create data directory %s: %w", dataDir, err)
	}

	bucket, err := blob.OpenBucket(ctx, p.bucketURL)
	if err != nil {
		return "", fmt.Errorf("open bucket %s: %w", p.bucketURL, err)
	}
	defer bucket.Close()

	key := fmt.Sprintf("%sdataset_%d.zip", p.prefix, n)
	p.log.Info("downloading dataset from mirror", "round", int64(n), "key", key)

	reader, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	defer reader.Close()

	archivePath := ArchivePath(dataDir, n)
	tempPath := archivePath + ".tmp"

	out, err := os.Create(tempPath)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", tempPath, err)
	}

	if _, err := io.Copy(out, reader); err != nil {
		out.Close()
		os.Remove(tempPath)
		return "", fmt.Errorf("copy %s: %w", key, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("close %s: %w", tempPath, err)
	}
	if err := os.Rename(tempPath, archivePath); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("rename %s: %w", tempPath, err)
	}

	destDir := Dir(dataDir, n)
	if err := Extract(ctx, archivePath, destDir); err != nil {
		return "", fmt.Errorf("unpack dataset for round %d: %w", n, err)
	}

	return destDir, nil
}
