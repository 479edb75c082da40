package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"github.com/magictales/server/internal/domain"
)

// S3Options configures the object-storage backed blob store.
type S3Options struct {
	Bucket string
	Region string
	// Endpoint overrides the AWS endpoint for S3-compatible services.
	Endpoint string
	// PublicBaseURL is the prefix generated object URLs are built from. When
	// empty the standard virtual-hosted AWS URL is used.
	PublicBaseURL string
}

// S3Store persists blobs in an S3 (or S3-compatible) bucket with public-read
// objects.
type S3Store struct {
	client  *s3.Client
	bucket  string
	baseURL string
	region  string
	logger  zerolog.Logger
}

// NewS3Store resolves AWS configuration from the environment and verifies
// nothing; the first Put/Get surfaces credential problems.
func NewS3Store(ctx context.Context, opts S3Options, logger zerolog.Logger) (*S3Store, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, errors.New("storage: s3 bucket is required")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Store{
		client:  client,
		bucket:  opts.Bucket,
		baseURL: strings.TrimRight(opts.PublicBaseURL, "/"),
		region:  opts.Region,
		logger:  logger,
	}, nil
}

// Put uploads the blob with public-read access and returns its URL.
func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(cleanKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("key", cleanKey).Msg("s3 put failed")
		return "", fmt.Errorf("storage: s3 put %s: %w", cleanKey, err)
	}
	return s.urlFor(cleanKey), nil
}

// Get downloads the blob bytes at key.
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(cleanKey),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("storage: s3 get %s: %w", cleanKey, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("storage: s3 read %s: %w", cleanKey, err)
	}
	return data, nil
}

// List enumerates bucket objects under the prefix.
func (s *S3Store) List(ctx context.Context, prefix string) ([]Entry, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	var entries []Entry
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("storage: s3 list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			entry := Entry{
				Key: aws.ToString(obj.Key),
				URL: s.urlFor(aws.ToString(obj.Key)),
			}
			if obj.Size != nil {
				entry.Size = *obj.Size
			}
			if obj.LastModified != nil {
				entry.UploadedAt = *obj.LastModified
			}
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (s *S3Store) urlFor(key string) string {
	if s.baseURL != "" {
		return s.baseURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

var _ BlobStore = (*S3Store)(nil)
