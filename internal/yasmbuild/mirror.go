package yasmbuild

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// MirrorClient wraps the S3 client for the release mirror. Any S3-compatible
// store works; the endpoint comes from the environment.
type MirrorClient struct {
	Client     *s3.Client
	BucketName string
}

// NewMirrorClient initializes a mirror client from the environment:
// YASM_MIRROR_BUCKET, YASM_MIRROR_ENDPOINT, YASM_MIRROR_ACCESS_KEY_ID and
// YASM_MIRROR_SECRET_ACCESS_KEY. Missing settings fail here, before any
// network traffic.
func NewMirrorClient(ctx context.Context) (*MirrorClient, error) {
	bucket := os.Getenv("YASM_MIRROR_BUCKET")
	endpoint := os.Getenv("YASM_MIRROR_ENDPOINT")
	accessKey := os.Getenv("YASM_MIRROR_ACCESS_KEY_ID")
	secretKey := os.Getenv("YASM_MIRROR_SECRET_ACCESS_KEY")

	if bucket == "" || endpoint == "" || accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("mirror settings missing in environment (YASM_MIRROR_BUCKET, YASM_MIRROR_ENDPOINT, YASM_MIRROR_ACCESS_KEY_ID, YASM_MIRROR_SECRET_ACCESS_KEY)")
	}

	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{URL: endpoint}, nil
	})

	options := []func(*config.LoadOptions) error{
		config.WithEndpointResolverWithOptions(resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		config.WithRegion("auto"),
	}

	if Debug {
		options = append(options, config.WithClientLogMode(aws.LogSigning|aws.LogRetries|aws.LogRequest|aws.LogResponse))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load mirror config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	return &MirrorClient{Client: client, BucketName: bucket}, nil
}

// UploadLocalFile uploads a file from disk to the mirror.
func (m *MirrorClient) UploadLocalFile(ctx context.Context, key, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return err
	}

	contentType := "application/octet-stream"
	switch {
	case strings.HasSuffix(key, ".zip"):
		contentType = "application/zip"
	case strings.HasSuffix(key, ".gz"):
		contentType = "application/gzip"
	case strings.HasSuffix(key, ".xz"):
		contentType = "application/x-xz"
	case strings.HasSuffix(key, ".zst"):
		contentType = "application/zstd"
	case strings.HasSuffix(key, ".b3sum"):
		contentType = "text/plain"
	}

	_, err = m.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.BucketName),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(stat.Size()),
		ContentType:   aws.String(contentType),
	})
	return err
}

// uploadArtifacts pushes the archive and its checksum sidecar to the mirror
// under <package>/<version>/.
func uploadArtifacts(ctx context.Context, archive string) error {
	stage("Uploading artifacts to the release mirror")

	mirror, err := NewMirrorClient(ctx)
	if err != nil {
		return err
	}

	for _, file := range []string{archive, archive + ".b3sum"} {
		key := fmt.Sprintf("%s/%s/%s", packageName, yasmVersion, filepath.Base(file))
		colInfo.Printf("Uploading %s\n", key)
		if err := mirror.UploadLocalFile(ctx, key, file); err != nil {
			return fmt.Errorf("failed to upload %s: %w", key, err)
		}
	}
	return nil
}
