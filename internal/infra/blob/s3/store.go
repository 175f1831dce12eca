// Package s3 implements the blob Store against an S3-compatible backend
// (AWS S3 or MinIO). Object identifiers are path-shaped: a child's id is its
// parent's id plus a random hex segment, so direct children of a folder are
// exactly one ListObjectsV2 delimiter page away.
package s3

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"pollcore/internal/blob/core"
)

const (
	keyPrefix    = "t/"
	folderMarker = ".folder"
	metaName     = "name"
	metaParent   = "parent"
)

// Store implements core.Store over a single bucket.
type Store struct {
	client s3API
	bucket string
}

// s3API is the subset of the S3 client the store uses; narrowed for tests.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Config holds explicit construction parameters (mostly for tests). For prod
// we rely primarily on environment variables.
type Config struct {
	Region          string
	Bucket          string
	Endpoint        string // optional; if set enables custom endpoint (e.g. MinIO)
	AccessKeyID     string // optional (falls back to default credentials chain)
	SecretAccessKey string // optional
	SessionToken    string // optional
	PathStyle       bool
}

// Environment variables:
//   POLLCORE_BLOB_DRIVER=s3
//   POLLCORE_BLOB_S3_BUCKET=<bucket> (required)
//   POLLCORE_BLOB_S3_REGION=<region> (default us-east-1)
//   POLLCORE_BLOB_S3_ENDPOINT=<url> (optional, for MinIO)
//   POLLCORE_BLOB_S3_PATH_STYLE=true|false (default false)
//   AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY / AWS_SESSION_TOKEN (optional)

// New creates an S3 blob store from Config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		provider := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)
		loadOpts = append(loadOpts, config.WithCredentialsProvider(provider))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// OpenFromEnv constructs an S3 store from process environment.
func OpenFromEnv(ctx context.Context) (*Store, error) {
	bucket := os.Getenv("POLLCORE_BLOB_S3_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("POLLCORE_BLOB_S3_BUCKET required for s3 driver")
	}
	cfg := Config{
		Bucket:    bucket,
		Region:    os.Getenv("POLLCORE_BLOB_S3_REGION"),
		Endpoint:  os.Getenv("POLLCORE_BLOB_S3_ENDPOINT"),
		PathStyle: strings.EqualFold(os.Getenv("POLLCORE_BLOB_S3_PATH_STYLE"), "true"),
	}
	return New(ctx, cfg)
}

// Driver returns the blob driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverS3 }

func childID(parentID string) string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	seg := hex.EncodeToString(b)
	if parentID == "" {
		return seg
	}
	return parentID + "/" + seg
}

func fileKey(id string) string   { return keyPrefix + id }
func markerKey(id string) string { return keyPrefix + id + "/" + folderMarker }

// CreateFolder writes a zero-byte marker object carrying the folder name.
func (s *Store) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	id := childID(parentID)
	key := markerKey(id)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:   &s.bucket,
		Key:      &key,
		Body:     strings.NewReader(""),
		Metadata: map[string]string{metaName: name, metaParent: parentID},
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// CreateFile stores a new object under parentID.
func (s *Store) CreateFile(ctx context.Context, name, parentID string, r io.Reader, contentType string) (string, error) {
	id := childID(parentID)
	key := fileKey(id)
	input := &s3.PutObjectInput{
		Bucket:   &s.bucket,
		Key:      &key,
		Body:     r,
		Metadata: map[string]string{metaName: name, metaParent: parentID},
	}
	if contentType != "" {
		input.ContentType = &contentType
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", err
	}
	return id, nil
}

// UpdateFile replaces the bytes of an existing object, preserving its name
// metadata and content type.
func (s *Store) UpdateFile(ctx context.Context, id string, r io.Reader) error {
	key := fileKey(id)
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return fmt.Errorf("update %s: %w", id, core.ErrNotExist)
	}
	input := &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        r,
		Metadata:    head.Metadata,
		ContentType: head.ContentType,
	}
	_, err = s.client.PutObject(ctx, input)
	return err
}

// GetFile streams an object's bytes. The SDK transfers the body in chunks;
// callers see a single reader.
func (s *Store) GetFile(ctx context.Context, id string) (io.ReadCloser, error) {
	key := fileKey(id)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, core.ErrNotExist)
	}
	return out.Body, nil
}

// Stat heads the object, falling back to the folder marker.
func (s *Store) Stat(ctx context.Context, id string) (core.Entry, error) {
	key := fileKey(id)
	if head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key}); err == nil {
		return s.entryFromHead(id, false, head), nil
	}
	mkey := markerKey(id)
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &mkey})
	if err != nil {
		return core.Entry{}, fmt.Errorf("stat %s: %w", id, core.ErrNotExist)
	}
	return s.entryFromHead(id, true, head), nil
}

// DeleteFile removes an object; folder identifiers are removed with their
// subtree.
func (s *Store) DeleteFile(ctx context.Context, id string) error {
	entry, err := s.Stat(ctx, id)
	if err != nil {
		return err
	}
	if entry.Folder {
		children, err := s.ListChildren(ctx, id)
		if err != nil {
			return err
		}
		for _, child := range children {
			if err := s.DeleteFile(ctx, child.ID); err != nil {
				return err
			}
		}
		mkey := markerKey(id)
		_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &mkey})
		return err
	}
	key := fileKey(id)
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &key})
	return err
}

// ListChildren pages one delimiter level below the folder and heads each
// child for its display name.
func (s *Store) ListChildren(ctx context.Context, folderID string) ([]core.Entry, error) {
	prefix := keyPrefix
	if folderID != "" {
		prefix = keyPrefix + folderID + "/"
	}
	delim := "/"
	var out []core.Entry
	var token *string
	for {
		page, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &s.bucket,
			Prefix:            &prefix,
			Delimiter:         &delim,
			ContinuationToken: token,
		})
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			base := strings.TrimPrefix(key, prefix)
			if base == folderMarker || base == "" {
				continue
			}
			id := strings.TrimPrefix(key, keyPrefix)
			entry, err := s.Stat(ctx, id)
			if err != nil {
				return nil, err
			}
			out = append(out, entry)
		}
		for _, cp := range page.CommonPrefixes {
			sub := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), keyPrefix), "/")
			entry, err := s.Stat(ctx, sub)
			if err != nil {
				return nil, err
			}
			out = append(out, entry)
		}
		if page.IsTruncated != nil && *page.IsTruncated && page.NextContinuationToken != nil {
			token = page.NextContinuationToken
			continue
		}
		break
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) entryFromHead(id string, folder bool, head *s3.HeadObjectOutput) core.Entry {
	entry := core.Entry{ID: id, Folder: folder}
	if head.Metadata != nil {
		entry.Name = head.Metadata[metaName]
		entry.Parent = head.Metadata[metaParent]
	}
	if head.ContentLength != nil {
		entry.Size = *head.ContentLength
	}
	if head.ContentType != nil {
		entry.ContentType = *head.ContentType
	}
	if head.LastModified != nil {
		entry.Modified = *head.LastModified
	}
	return entry
}
