package fetch

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/koustreak/datri-datasets/internal/errs"
	"github.com/koustreak/datri-datasets/internal/filestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memObject struct {
	io.Reader
	info *filestore.ObjectInfo
}

func (o *memObject) Close() error                { return nil }
func (o *memObject) Info() *filestore.ObjectInfo { return o.info }

// memStore is an in-memory filestore.Store keyed by "bucket/key".
type memStore struct {
	objects map[string]string
	types   map[string]string
}

func (s *memStore) Ping(context.Context) error { return nil }
func (s *memStore) Close() error               { return nil }

func (s *memStore) GetObject(_ context.Context, bucket, key string) (filestore.Object, error) {
	body, ok := s.objects[bucket+"/"+key]
	if !ok {
		return nil, errs.HTTPStatus(404, "s3://"+bucket+"/"+key)
	}
	return &memObject{
		Reader: strings.NewReader(body),
		info:   &filestore.ObjectInfo{Key: key, Size: int64(len(body)), ContentType: s.types[bucket+"/"+key]},
	}, nil
}

func TestObjectFetcher(t *testing.T) {
	store := &memStore{
		objects: map[string]string{
			"datasets/diabetes/diabetes.json": `[{"id":1}]`,
			"datasets/diabetes/latest":        "id\n1\n",
		},
		types: map[string]string{"datasets/diabetes/latest": "text/csv; charset=utf-8"},
	}
	f := NewObjectFetcher(store, nil)

	p, err := f.Fetch(context.Background(), "s3://datasets/diabetes/diabetes.json")
	require.NoError(t, err)
	assert.Equal(t, EncodingJSON, p.Encoding)
	assert.Equal(t, `[{"id":1}]`, string(p.Data))

	p, err = f.Fetch(context.Background(), "s3://datasets/diabetes/latest")
	require.NoError(t, err)
	assert.Equal(t, EncodingCSV, p.Encoding)

	_, err = f.Fetch(context.Background(), "s3://datasets/nope.json")
	code, ok := errs.StatusCode(err)
	require.True(t, ok)
	assert.Equal(t, 404, code)

	_, err = f.Fetch(context.Background(), "s3://datasets")
	assert.True(t, errs.IsInvalidInput(err))
}
