package storage

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Storage distributes artifacts through an S3 bucket, e.g. for a prover
// fleet that pulls keys at boot. S3 object creation is atomic server-side:
// an object is visible in full or not at all, which satisfies the publish
// invariant without extra staging.
type S3Storage struct {
	client *s3.Client
	bucket string
}

func NewS3Storage(ctx context.Context, bucket, region string) (*S3Storage, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return &S3Storage{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
	}, nil
}

func (s *S3Storage) Reader(key string) (io.ReadCloser, error) {
	attributes, err := s.client.GetObjectAttributes(context.TODO(), &s3.GetObjectAttributesInput{
		Bucket:           &s.bucket,
		Key:              &key,
		ObjectAttributes: []types.ObjectAttributes{types.ObjectAttributesObjectSize},
	})
	if err != nil {
		return nil, fmt.Errorf("unable to get object attributes: %w", err)
	}

	object, err := s.client.GetObject(context.TODO(), &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to get object: %w", err)
	}
	return newProgressReader(object.Body, "Downloading artifact", key, *attributes.ObjectSize), nil
}

func (s *S3Storage) Writer(key string) (PublishingWriter, error) {
	uploader := manager.NewUploader(s.client)

	reader, writer := io.Pipe()
	w := &s3Writer{pipe: writer}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		_, err := uploader.Upload(context.TODO(), &s3.PutObjectInput{
			Bucket: &s.bucket,
			Key:    &key,
			Body:   reader,
		})
		w.uploadErr = err
		if err != nil {
			_ = reader.CloseWithError(err)
		}
	}()

	return w, nil
}

func (s *S3Storage) Remove(key string) error {
	_, err := s.client.DeleteObject(context.TODO(), &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	return err
}

// s3Writer publishes on Close by letting the upload finish; Abort fails the
// pipe so the uploader drops the multipart upload and no object appears.
type s3Writer struct {
	pipe      *io.PipeWriter
	wg        sync.WaitGroup
	uploadErr error
}

func (w *s3Writer) Write(b []byte) (int, error) {
	return w.pipe.Write(b)
}

func (w *s3Writer) Close() error {
	if err := w.pipe.Close(); err != nil {
		return err
	}
	w.wg.Wait()
	return w.uploadErr
}

func (w *s3Writer) Abort() error {
	err := w.pipe.CloseWithError(fmt.Errorf("upload aborted"))
	w.wg.Wait()
	return err
}
