// Package s3 adapts an S3-compatible object store to blobstore.Sink and
// blobstore.Source. S3 has no partial-object rewrite, so a Sink here
// never implements io.Seeker: Writer always falls back to stream mode
// against it. Reads use byte-range GETs so a Source doesn't have to
// download the whole object just to satisfy one ReadAt call.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/kenneth/apack/apackerr"
)

// Options configures the S3 client used by Sink and Source.
type Options struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Provider  string // "aws" leaves the default endpoint untouched
}

// NewClient builds an *s3.Client from Options, pointing at a
// non-AWS-compatible endpoint when one is configured.
func NewClient(ctx context.Context, opts Options) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")),
	)
	if err != nil {
		return nil, apackerr.New(apackerr.KindConfiguration, "s3-new-client", err)
	}
	var s3Options []func(*s3.Options)
	if opts.Endpoint != "" && opts.Provider != "aws" {
		s3Options = append(s3Options, func(o *s3.Options) { o.BaseEndpoint = aws.String(opts.Endpoint) })
	}
	return s3.NewFromConfig(awsCfg, s3Options...), nil
}

// Sink buffers written bytes locally and uploads them as a single
// object on Close, mirroring how the rest of this stack already treats
// S3 PutObject as a whole-body operation.
type Sink struct {
	client *s3.Client
	bucket string
	key    string
	buf    bytes.Buffer
}

// NewSink returns a Sink that uploads to bucket/key on Close.
func NewSink(client *s3.Client, bucket, key string) *Sink {
	return &Sink{client: client, bucket: bucket, key: key}
}

func (s *Sink) Write(p []byte) (int, error) { return s.buf.Write(p) }

// Close uploads the buffered bytes as one object.
func (s *Sink) Close() error {
	ctx := context.Background()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		Body:   bytes.NewReader(s.buf.Bytes()),
	})
	if err != nil {
		return apackerr.New(apackerr.KindIO, "s3-sink-close", fmt.Errorf("put %s/%s: %w", s.bucket, s.key, err))
	}
	return nil
}

// Source satisfies blobstore.Source against one S3 object, fetching
// only the requested byte range per ReadAt call.
type Source struct {
	client *s3.Client
	bucket string
	key    string
	size   int64
}

// OpenSource heads bucket/key to learn its size and returns a ready
// Source.
func OpenSource(ctx context.Context, client *s3.Client, bucket, key string) (*Source, error) {
	head, err := client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return nil, apackerr.New(apackerr.KindIO, "s3-open-source", fmt.Errorf("head %s/%s: %w", bucket, key, err))
	}
	return &Source{client: client, bucket: bucket, key: key, size: aws.ToInt64(head.ContentLength)}, nil
}

func (s *Source) Size() int64 { return s.size }
func (s *Source) Close() error { return nil }

func (s *Source) ReadAt(p []byte, off int64) (int, error) {
	if off >= s.size {
		return 0, io.EOF
	}
	end := off + int64(len(p)) - 1
	if end >= s.size {
		end = s.size - 1
	}
	rng := fmt.Sprintf("bytes=%d-%d", off, end)
	ctx := context.Background()
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		Range:  aws.String(rng),
	})
	if err != nil {
		return 0, apackerr.New(apackerr.KindIO, "s3-source-read-at", fmt.Errorf("get %s/%s range %s: %w", s.bucket, s.key, rng, err))
	}
	defer out.Body.Close()
	n, err := io.ReadFull(out.Body, p[:end-off+1])
	if err != nil && err != io.ErrUnexpectedEOF {
		return n, apackerr.New(apackerr.KindIO, "s3-source-read-at", err)
	}
	if int64(n) < int64(len(p)) && off+int64(n) >= s.size {
		return n, io.EOF
	}
	return n, nil
}
