// Package objectstore archives uploaded workbooks and hands back a URL the
// user can retrieve them from.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"sheet-qa/internal/integrations/paramstore"
)

const (
	// XLSXContentType is the MIME type stored with archived workbooks.
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	defaultURLExpiry = 7 * 24 * time.Hour
)

// s3API is the minimal S3 interface required by S3Archiver.
// *s3.Client from aws-sdk-go-v2 satisfies this interface.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// presignAPI is satisfied by *s3.PresignClient.
type presignAPI interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Archiver uploads workbooks to an S3 bucket and returns presigned GET URLs.
// The bucket and key prefix are either fixed at construction or read from the
// parameter store on first use; a failed read is retried on the next upload.
type S3Archiver struct {
	api     s3API
	presign presignAPI
	expiry  time.Duration

	params      paramstore.Getter
	paramPrefix string

	mu        sync.RWMutex
	loaded    bool
	bucket    string
	keyPrefix string
}

type S3Option func(*S3Archiver)

// WithBucket fixes the target bucket and key prefix, skipping the parameter store.
func WithBucket(bucket, keyPrefix string) S3Option {
	return func(a *S3Archiver) {
		a.bucket = strings.TrimSpace(bucket)
		a.keyPrefix = strings.Trim(strings.TrimSpace(keyPrefix), "/")
		a.loaded = a.bucket != ""
	}
}

// WithParams reads <paramPrefix>/bucket_name and the optional
// <paramPrefix>/key_prefix. A missing key_prefix means no prefix.
func WithParams(params paramstore.Getter, paramPrefix string) S3Option {
	return func(a *S3Archiver) {
		a.params = params
		a.paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	}
}

// WithURLExpiry sets how long returned URLs stay valid.
func WithURLExpiry(d time.Duration) S3Option {
	return func(a *S3Archiver) {
		if d > 0 {
			a.expiry = d
		}
	}
}

func NewS3Archiver(api s3API, presign presignAPI, opts ...S3Option) (*S3Archiver, error) {
	if api == nil {
		return nil, errors.New("objectstore: s3 api must not be nil")
	}
	if presign == nil {
		return nil, errors.New("objectstore: presign api must not be nil")
	}
	a := &S3Archiver{api: api, presign: presign, expiry: defaultURLExpiry}
	for _, opt := range opts {
		opt(a)
	}
	if !a.loaded && (a.params == nil || a.paramPrefix == "") {
		return nil, errors.New("objectstore: either a bucket or a parameter source is required")
	}
	return a, nil
}

// Upload stores body under <keyPrefix>/<uuid>/<filename> and returns a
// presigned URL for it.
func (a *S3Archiver) Upload(ctx context.Context, filename string, body io.Reader) (string, error) {
	if body == nil {
		return "", errors.New("objectstore: body must not be nil")
	}
	name := path.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == "/" {
		return "", errors.New("objectstore: filename is required")
	}
	bucket, keyPrefix, err := a.settings(ctx)
	if err != nil {
		return "", err
	}
	key := path.Join(keyPrefix, newUUID(), name)

	_, err = a.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        body,
		ContentType: strPtr(XLSXContentType),
	})
	if err != nil {
		return "", fmt.Errorf("objectstore: put object %q: %w", key, err)
	}

	req, err := a.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(a.expiry))
	if err != nil {
		return "", fmt.Errorf("objectstore: presign %q: %w", key, err)
	}
	return req.URL, nil
}

func (a *S3Archiver) settings(ctx context.Context) (string, string, error) {
	a.mu.RLock()
	if a.loaded {
		defer a.mu.RUnlock()
		return a.bucket, a.keyPrefix, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.loaded {
		return a.bucket, a.keyPrefix, nil
	}

	bucket, err := a.params.GetParameter(ctx, a.paramPrefix+"/bucket_name")
	if err != nil {
		return "", "", fmt.Errorf("objectstore: load bucket name: %w", err)
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return "", "", errors.New("objectstore: bucket name is empty")
	}
	keyPrefix, err := a.params.GetParameter(ctx, a.paramPrefix+"/key_prefix")
	if err != nil && !errors.Is(err, paramstore.ErrNotFound) {
		return "", "", fmt.Errorf("objectstore: load key prefix: %w", err)
	}
	a.bucket = bucket
	a.keyPrefix = strings.Trim(strings.TrimSpace(keyPrefix), "/")
	a.loaded = true
	return a.bucket, a.keyPrefix, nil
}

func strPtr(s string) *string { return &s }

var newUUID = func() string {
	return uuid.NewString()
}
