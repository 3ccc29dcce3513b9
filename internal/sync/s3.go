package sync

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options locates the export object. A non-empty Endpoint switches to
// path-style addressing for MinIO and other S3-compatible stores.
type S3Options struct {
	Bucket   string
	Key      string
	Region   string
	Endpoint string
}

// putObjectAPI is the part of *s3.Client that S3Destination uses.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Destination overwrites one object with each export.
type S3Destination struct {
	client putObjectAPI
	bucket string
	key    string
}

// NewS3Destination builds a client from the default AWS credential chain.
func NewS3Destination(ctx context.Context, opts S3Options) (*S3Destination, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Destination{client: client, bucket: opts.Bucket, key: opts.Key}, nil
}

func (d *S3Destination) Name() string {
	return fmt.Sprintf("s3://%s/%s", d.bucket, d.key)
}

// Write uploads data with a SHA-256 checksum, so S3 rejects a body that was
// corrupted in transit.
func (d *S3Destination) Write(ctx context.Context, data []byte) error {
	sum := sha256.Sum256(data)
	in := &s3.PutObjectInput{
		Bucket:         aws.String(d.bucket),
		Key:            aws.String(d.key),
		Body:           bytes.NewReader(data),
		ContentLength:  aws.Int64(int64(len(data))),
		ContentType:    aws.String("application/x-ndjson"),
		ChecksumSHA256: aws.String(base64.StdEncoding.EncodeToString(sum[:])),
		Metadata:       map[string]string{"format-version": FormatVersion},
	}
	if _, err := d.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("upload %s: %w", d.Name(), err)
	}
	return nil
}
