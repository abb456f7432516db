// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/registration-backend/internal/config"
)

// ObjectStore keeps uploaded document contents.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (*UploadResult, error)
	Delete(ctx context.Context, key string) error
	// PresignURL returns a time-limited download URL for key.
	PresignURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type UploadResult struct {
	URL      string `json:"url"`
	Key      string `json:"key"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

// NewAWSSession builds the shared session for S3, SES and SNS clients.
// Static credentials are used when configured, otherwise the default chain.
func NewAWSSession(cfg config.AWSConfig) (*session.Session, error) {
	awsConfig := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.AccessKeyID != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return sess, nil
}

// NewObjectStore returns S3 storage when AWS credentials are configured and
// the local file system otherwise.
func NewObjectStore(cfg *config.Config, sess *session.Session) ObjectStore {
	if sess != nil && cfg.AWS.AccessKeyID != "" {
		return NewS3Store(s3.New(sess), cfg.AWS)
	}
	return NewLocalStore(cfg.Storage.LocalPath, "http://"+cfg.Server.Host+":"+cfg.Server.Port+"/uploads")
}

type S3Store struct {
	client s3iface.S3API
	cfg    config.AWSConfig
}

func NewS3Store(client s3iface.S3API, cfg config.AWSConfig) *S3Store {
	return &S3Store{client: client, cfg: cfg}
}

func (s *S3Store) Put(ctx context.Context, key, contentType string, data []byte) (*UploadResult, error) {
	params := &s3.PutObjectInput{
		Bucket:               aws.String(s.cfg.S3Bucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(data),
		ContentType:          aws.String(contentType),
		ContentLength:        aws.Int64(int64(len(data))),
		ServerSideEncryption: aws.String(s3.ServerSideEncryptionAes256),
	}

	if _, err := s.client.PutObjectWithContext(ctx, params); err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &UploadResult{
		URL:      s.objectURL(key),
		Key:      key,
		Size:     int64(len(data)),
		MimeType: contentType,
	}, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.S3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from S3: %w", err)
	}
	return nil
}

func (s *S3Store) PresignURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.cfg.S3Bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(ttl)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return url, nil
}

func (s *S3Store) objectURL(key string) string {
	if s.cfg.CloudFrontURL != "" {
		return fmt.Sprintf("%s/%s", s.cfg.CloudFrontURL, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.S3Bucket, s.cfg.Region, key)
}

// LocalStore writes objects below a root directory, for development.
type LocalStore struct {
	root    string
	baseURL string
}

func NewLocalStore(root, baseURL string) *LocalStore {
	return &LocalStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *LocalStore) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}

func (s *LocalStore) Put(_ context.Context, key, contentType string, data []byte) (*UploadResult, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	return &UploadResult{
		URL:      s.baseURL + "/" + key,
		Key:      key,
		Size:     int64(len(data)),
		MimeType: contentType,
	}, nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// PresignURL has no signing on local storage; it returns the plain URL.
func (s *LocalStore) PresignURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return s.baseURL + "/" + key, nil
}

// documentKey builds the storage key of a document.
func documentKey(applicationID, documentID fmt.Stringer, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	return fmt.Sprintf("applications/%s/%s%s", applicationID, documentID, ext)
}

// deleteObjects removes uploaded objects after a failed operation.
func deleteObjects(ctx context.Context, store ObjectStore, keys []string) {
	for _, key := range keys {
		if err := store.Delete(ctx, key); err != nil {
			logrus.WithError(err).WithField("key", key).Warn("Failed to clean up stored object")
		}
	}
}
