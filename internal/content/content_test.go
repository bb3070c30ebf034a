package content

import (
	"context"
	"os"
	"testing"

	"github.com/raglite-go/raglite/internal/ragerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, caps Caps) *FSStore {
	t.Helper()
	s, err := Open(t.TempDir(), caps)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestFSStore_PutGetRoundTrip(t *testing.T) {
	s := newTestStore(t, DefaultCaps())
	ctx := context.Background()

	id, err := s.Put(ctx, []byte("hello world"), "text/plain")
	require.NoError(t, err)

	res, err := s.Get(ctx, id, FormatBase64)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Base64)

	meta, err := s.Metadata(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(len("hello world")), meta.ByteLength)
	assert.Equal(t, 1, meta.RefCount)
}

func TestFSStore_PutDedupesIdenticalContent(t *testing.T) {
	s := newTestStore(t, DefaultCaps())
	ctx := context.Background()

	id1, err := s.Put(ctx, []byte("same bytes"), "text/plain")
	require.NoError(t, err)
	id2, err := s.Put(ctx, []byte("same bytes"), "text/plain")
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	meta, err := s.Metadata(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, 2, meta.RefCount)
}

func TestFSStore_MaxFileSizeCapExceeded(t *testing.T) {
	s := newTestStore(t, Caps{MaxFileSize: 4, MaxContentDirSize: 1 << 20})
	_, err := s.Put(context.Background(), []byte("too big"), "text/plain")
	require.Error(t, err)
	assert.Equal(t, ragerr.KindStorageCapExceeded, ragerr.GetKind(err))
}

func TestFSStore_GCReclaimsOnlyZeroRefcount(t *testing.T) {
	s := newTestStore(t, DefaultCaps())
	ctx := context.Background()

	kept, err := s.Put(ctx, []byte("kept"), "text/plain")
	require.NoError(t, err)
	gone, err := s.Put(ctx, []byte("gone"), "text/plain")
	require.NoError(t, err)

	require.NoError(t, s.RefDec(ctx, gone))
	reclaimed, err := s.GC(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, reclaimed)

	exists, err := s.Exists(ctx, gone)
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = s.Exists(ctx, kept)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestFSStore_VerifyDetectsTampering(t *testing.T) {
	s := newTestStore(t, DefaultCaps())
	ctx := context.Background()
	id, err := s.Put(ctx, []byte("original"), "text/plain")
	require.NoError(t, err)

	require.NoError(t, s.Verify(ctx, id))

	res, err := s.Get(ctx, id, FormatFilePath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(res.Path, []byte("tampered!"), 0o644))

	err = s.Verify(ctx, id)
	require.Error(t, err)
	assert.Equal(t, ragerr.KindIntegrityFailure, ragerr.GetKind(err))
}
