package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// mockClient is a tiny in-memory stand-in for the S3 API, enough to exercise
// the store's key layout and paging logic without a network.
type mockClient struct {
	mu   sync.Mutex
	objs map[string]mockObject
}

type mockObject struct {
	data        []byte
	metadata    map[string]string
	contentType string
	modified    time.Time
}

// NewMockForTests returns a Store backed by an in-memory S3 stub for
// cross-package tests.
func NewMockForTests() *Store {
	return &Store{client: &mockClient{objs: make(map[string]mockObject)}, bucket: "mock"}
}

func (m *mockClient) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	var ct string
	if in.ContentType != nil {
		ct = *in.ContentType
	}
	m.mu.Lock()
	m.objs[aws.ToString(in.Key)] = mockObject{data: b, metadata: cloneMeta(in.Metadata), contentType: ct, modified: time.Now().UTC()}
	m.mu.Unlock()
	return &s3.PutObjectOutput{}, nil
}

func (m *mockClient) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	obj, ok := m.objs[aws.ToString(in.Key)]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("NoSuchKey: %s", aws.ToString(in.Key))
	}
	size := int64(len(obj.data))
	out := &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(append([]byte(nil), obj.data...))),
		ContentLength: &size,
		Metadata:      cloneMeta(obj.metadata),
	}
	if obj.contentType != "" {
		ct := obj.contentType
		out.ContentType = &ct
	}
	return out, nil
}

func (m *mockClient) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	m.mu.Lock()
	obj, ok := m.objs[aws.ToString(in.Key)]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("NotFound: %s", aws.ToString(in.Key))
	}
	size := int64(len(obj.data))
	mod := obj.modified
	out := &s3.HeadObjectOutput{ContentLength: &size, Metadata: cloneMeta(obj.metadata), LastModified: &mod}
	if obj.contentType != "" {
		ct := obj.contentType
		out.ContentType = &ct
	}
	return out, nil
}

func (m *mockClient) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	delete(m.objs, aws.ToString(in.Key))
	m.mu.Unlock()
	return &s3.DeleteObjectOutput{}, nil
}

func (m *mockClient) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	prefix := aws.ToString(in.Prefix)
	delim := aws.ToString(in.Delimiter)
	m.mu.Lock()
	keys := make([]string, 0, len(m.objs))
	for k := range m.objs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	m.mu.Unlock()
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{}
	seenPrefixes := map[string]bool{}
	for _, k := range keys {
		rest := strings.TrimPrefix(k, prefix)
		if delim != "" {
			if idx := strings.Index(rest, delim); idx >= 0 {
				cp := prefix + rest[:idx+1]
				if !seenPrefixes[cp] {
					seenPrefixes[cp] = true
					out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(cp)})
				}
				continue
			}
		}
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	f := false
	out.IsTruncated = &f
	return out, nil
}

func cloneMeta(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
