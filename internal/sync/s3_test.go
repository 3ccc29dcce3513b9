package sync

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, f.err
}

func TestS3Destination_Write(t *testing.T) {
	fake := &fakeS3{}
	dest := &S3Destination{client: fake, bucket: "backups", key: "constructum/schedule.jsonl"}
	data := []byte("{\"type\":\"header\"}\n")

	if err := dest.Write(context.Background(), data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	in := fake.input
	sum := sha256.Sum256(data)
	for _, c := range []struct{ field, got, want string }{
		{"bucket", aws.ToString(in.Bucket), "backups"},
		{"key", aws.ToString(in.Key), "constructum/schedule.jsonl"},
		{"content type", aws.ToString(in.ContentType), "application/x-ndjson"},
		{"checksum", aws.ToString(in.ChecksumSHA256), base64.StdEncoding.EncodeToString(sum[:])},
		{"format", in.Metadata["format-version"], FormatVersion},
		{"body", string(fake.body), string(data)},
	} {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.field, c.got, c.want)
		}
	}
	if aws.ToInt64(in.ContentLength) != int64(len(data)) {
		t.Errorf("content length = %d", aws.ToInt64(in.ContentLength))
	}
}

func TestS3Destination_WrapsError(t *testing.T) {
	dest := &S3Destination{client: &fakeS3{err: errBoom}, bucket: "b", key: "k"}
	err := dest.Write(context.Background(), nil)
	if !errors.Is(err, errBoom) || err.Error() != "upload s3://b/k: boom" {
		t.Fatalf("err = %v", err)
	}
}
