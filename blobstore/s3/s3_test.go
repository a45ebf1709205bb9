//go:build integration

package s3

import (
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/minio"
)

// These tests exercise Sink/Source against a real S3-compatible server
// started in a container, since the range-GET and whole-body-PUT
// behavior they implement isn't worth faking with a mock client. They
// only run under `go test -tags=integration`, which requires Docker.
func startMinio(t *testing.T) (*s3.Client, string) {
	t.Helper()
	ctx := context.Background()

	ctr, err := minio.Run(ctx, "minio/minio:RELEASE.2024-01-16T16-07-38Z")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctr.Terminate(ctx) })

	endpoint, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := NewClient(ctx, Options{
		Region:    "us-east-1",
		Endpoint:  "http://" + endpoint,
		AccessKey: ctr.Username,
		SecretKey: ctr.Password,
		Provider:  "minio",
	})
	require.NoError(t, err)
	return client, "apack-test"
}

func TestSinkSourceRoundTrip(t *testing.T) {
	client, bucket := startMinio(t)
	ctx := context.Background()

	_, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
	require.NoError(t, err)

	sink := NewSink(client, bucket, "archive.apack")
	payload := []byte("some archive bytes, more than a few for a range GET to matter")
	_, err = sink.Write(payload)
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	source, err := OpenSource(ctx, client, bucket, "archive.apack")
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), source.Size())

	got := make([]byte, len(payload))
	n, err := source.ReadAt(got, 0)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)
	assert.Equal(t, payload, got)
}

func TestSourceReadAtRange(t *testing.T) {
	client, bucket := startMinio(t)
	ctx := context.Background()

	_, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
	require.NoError(t, err)

	sink := NewSink(client, bucket, "ranged.apack")
	payload := []byte("0123456789abcdefghijklmnopqrstuvwxyz")
	_, err = sink.Write(payload)
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	source, err := OpenSource(ctx, client, bucket, "ranged.apack")
	require.NoError(t, err)

	got := make([]byte, 10)
	n, err := source.ReadAt(got, 5)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, payload[5:15], got)
}

func TestSourceReadAtPastEndReturnsEOF(t *testing.T) {
	client, bucket := startMinio(t)
	ctx := context.Background()

	_, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
	require.NoError(t, err)

	sink := NewSink(client, bucket, "short.apack")
	_, err = sink.Write([]byte("hi"))
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	source, err := OpenSource(ctx, client, bucket, "short.apack")
	require.NoError(t, err)

	buf := make([]byte, 4)
	_, err = source.ReadAt(buf, 10)
	assert.ErrorIs(t, err, io.EOF)
}
