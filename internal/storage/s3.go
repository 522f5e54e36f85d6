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
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/spigell/talenthub/internal/document"
	"github.com/spigell/talenthub/internal/utils"
)

const nameMetadataKey = "original-name"

type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3 stores documents in an S3 compatible bucket, Cloudflare R2 included.
type S3 struct {
	client objectAPI
	bucket string
	prefix string
}

func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	region := utils.FirstNonEmpty(cfg.Region, "auto")
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3(client objectAPI, bucket, prefix string) *S3 {
	return &S3{client: client, bucket: bucket, prefix: strings.Trim(strings.TrimSpace(prefix), "/")}
}

func (s *S3) Put(ctx context.Context, doc document.Document) (Ref, error) {
	if doc.IsZero() {
		return "", errors.New("refusing to store an empty document")
	}

	ref := newRef(doc)
	key := s.key(ref)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(doc.Data),
		ContentLength: aws.Int64(doc.Size()),
		ContentType:   aws.String(doc.MediaType),
		Metadata:      map[string]string{nameMetadataKey: sanitizeName(doc.Name)},
	})
	if err != nil {
		return "", fmt.Errorf("s3 put object bucket=%s key=%s: %w", s.bucket, key, err)
	}
	return ref, nil
}

func (s *S3) Get(ctx context.Context, ref Ref) (document.Document, error) {
	if err := ref.validate(); err != nil {
		return document.Document{}, err
	}

	key := s.key(ref)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	var noKey *s3types.NoSuchKey
	if errors.As(err, &noKey) {
		return document.Document{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	if err != nil {
		return document.Document{}, fmt.Errorf("s3 get object bucket=%s key=%s: %w", s.bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return document.Document{}, fmt.Errorf("failed to read object body: %w", err)
	}

	name := out.Metadata[nameMetadataKey]
	if name == "" {
		name = originalName(ref)
	}
	return document.Document{
		Name:      name,
		MediaType: document.Normalize(aws.ToString(out.ContentType), name, data),
		Data:      data,
	}, nil
}

func (s *S3) key(ref Ref) string {
	if s.prefix == "" {
		return string(ref)
	}
	return s.prefix + "/" + string(ref)
}
