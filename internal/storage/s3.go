package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// FileStore handles proof-of-payment and report file uploads to S3.
type FileStore struct {
	client *s3.Client
	bucket string
	region string
}

func NewFileStore(client *s3.Client, bucket, region string) *FileStore {
	return &FileStore{
		client: client,
		bucket: bucket,
		region: region,
	}
}

// UploadFile stores the file under key and returns the public URL.
func (s *FileStore) UploadFile(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file %s: %w", key, err)
	}

	return s.PublicURL(key), nil
}

// DeleteFile removes a stored file.
func (s *FileStore) DeleteFile(ctx context.Context, key string) error {

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file %s: %w", key, err)
	}

	return nil
}

// PublicURL returns the public URL for a stored key.
func (s *FileStore) PublicURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
