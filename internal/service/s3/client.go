package s3

import (
	"bytes"
	"context"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	defaultTimeout = 30 * time.Second
	uploadTimeout  = 10 * time.Minute

	// больше этого размера грузим по частям
	multipartThreshold   = 32 * 1024 * 1024
	partSize             = 10 * 1024 * 1024
	maxConcurrentUploads = 5
)

// Client предоставляет методы для работы с S3-совместимым хранилищем
type Client struct {
	client *s3.Client
	bucket string
}

var _ Storage = &Client{}

// NewClient создает новый экземпляр клиента S3
func NewClient(ctx context.Context, conf *Config) (*Client, error) {
	if conf == nil {
		return nil, errors.New("configuration is required")
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid s3 configuration")
	}
	c := conf.withDefaults()

	creds := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
		c.AccessKeyID,
		c.SecretAccessKey,
		"",
	))

	client := s3.New(s3.Options{
		BaseEndpoint:     aws.String(c.Endpoint),
		Region:           c.Region,
		Credentials:      creds,
		UsePathStyle:     c.UsePathStyle,
		RetryMode:        aws.RetryModeAdaptive,
		RetryMaxAttempts: 3,
		// S3-совместимые хранилища не все понимают новые контрольные суммы
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
		ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
	})

	s3Client := &Client{
		client: client,
		bucket: c.Bucket,
	}

	if c.CheckBucket {
		ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
		defer cancel()

		_, err := s3Client.client.HeadBucket(ctx, &s3.HeadBucketInput{
			Bucket: aws.String(c.Bucket),
		})
		if err != nil {
			return nil, errors.Wrapf(err, "unable to access bucket %s", c.Bucket)
		}
	}

	return s3Client, nil
}

// UploadBytes загружает байты в S3, крупные объекты по частям
func (h *Client) UploadBytes(ctx context.Context, key, contentType string, data []byte) error {
	if key == "" {
		return errors.New("key is required")
	}

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	if len(data) > multipartThreshold {
		return h.uploadMultipart(ctx, key, contentType, data)
	}

	_, err := h.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(h.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   contentTypeOrNil(contentType),
	})
	if err != nil {
		return errors.Wrap(err, "failed to upload data to S3")
	}
	return nil
}

// GetObject получает объект из S3
func (h *Client) GetObject(ctx context.Context, key string) (S3Object, error) {
	result, err := h.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, errors.Wrap(ErrObjectNotFound, key)
		}
		return nil, errors.Wrap(err, "failed to get object from S3")
	}

	return &s3Object{
		ReadCloser:    result.Body,
		contentLength: aws.ToInt64(result.ContentLength),
	}, nil
}

// DeleteObject удаляет объект. Отсутствующий объект не считается ошибкой.
func (h *Client) DeleteObject(ctx context.Context, key string) error {
	if key == "" {
		return errors.New("key is required")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := h.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return errors.Wrap(err, "failed to check object existence")
	}

	_, err = h.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return errors.Wrap(err, "failed to delete object from S3")
	}
	return nil
}

func (h *Client) uploadMultipart(ctx context.Context, key, contentType string, data []byte) error {
	created, err := h.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(h.bucket),
		Key:         aws.String(key),
		ContentType: contentTypeOrNil(contentType),
	})
	if err != nil {
		return errors.Wrap(err, "failed to create multipart upload")
	}
	uploadID := aws.ToString(created.UploadId)

	log.Debug().
		Str("component", "s3").
		Str("key", key).
		Str("size", humanize.IBytes(uint64(len(data)))).
		Msg("starting multipart upload")

	parts, err := h.uploadParts(ctx, key, uploadID, data)
	if err != nil {
		h.abortMultipartUpload(key, uploadID)
		return err
	}

	completed := make([]types.CompletedPart, 0, len(parts))
	for _, part := range parts {
		completed = append(completed, types.CompletedPart{
			ETag:       aws.String(part.ETag),
			PartNumber: aws.Int32(int32(part.PartNumber)),
		})
	}

	_, err = h.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(h.bucket),
		Key:             aws.String(key),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: completed},
	})
	if err != nil {
		h.abortMultipartUpload(key, uploadID)
		return errors.Wrap(err, "failed to complete multipart upload")
	}
	return nil
}

func (h *Client) uploadParts(ctx context.Context, key, uploadID string, data []byte) ([]CompletedPart, error) {
	count := (len(data) + partSize - 1) / partSize
	parts := make([]CompletedPart, count)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentUploads)

	for i := 0; i < count; i++ {
		start := i * partSize
		end := min(start+partSize, len(data))
		partNumber := i + 1
		idx := i

		g.Go(func() error {
			result, err := h.client.UploadPart(gctx, &s3.UploadPartInput{
				Bucket:     aws.String(h.bucket),
				Key:        aws.String(key),
				PartNumber: aws.Int32(int32(partNumber)),
				UploadId:   aws.String(uploadID),
				Body:       bytes.NewReader(data[start:end]),
			})
			if err != nil {
				return errors.Wrapf(err, "failed to upload part %d", partNumber)
			}
			parts[idx] = CompletedPart{PartNumber: partNumber, ETag: aws.ToString(result.ETag)}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(parts, func(i, j int) bool { return parts[i].PartNumber < parts[j].PartNumber })
	return parts, nil
}

func (h *Client) abortMultipartUpload(key, uploadID string) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	_, err := h.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(h.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		log.Warn().Err(err).
			Str("component", "s3").
			Str("key", key).
			Msg("failed to abort multipart upload")
	}
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}

func contentTypeOrNil(contentType string) *string {
	if contentType == "" {
		return nil
	}
	return aws.String(contentType)
}
