package contentstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelforge/internal/models"
	"reelforge/internal/pkg/logger"
	"reelforge/internal/ports"
)

type memRepo struct {
	mu      sync.Mutex
	entries map[string]*models.AssetEntry
	seqs    map[string]int64
	// failCreateWith forces the next Create to return this error.
	failCreateWith error
}

func newMemRepo() *memRepo {
	return &memRepo{
		entries: map[string]*models.AssetEntry{},
		seqs:    map[string]int64{},
	}
}

func (m *memRepo) FindActiveByHash(_ context.Context, projectID, hash string) (*models.AssetEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ProjectID == projectID && e.ContentHash == hash && e.Status == models.AssetActive {
			cp := *e
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memRepo) NextSeq(_ context.Context, projectID string, kind models.AssetKind) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := projectID + "/" + string(kind)
	m.seqs[key]++
	return m.seqs[key], nil
}

func (m *memRepo) Create(_ context.Context, entry *models.AssetEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreateWith != nil {
		err := m.failCreateWith
		m.failCreateWith = nil
		return err
	}
	entry.UploadedAt = time.Now().UTC()
	cp := *entry
	m.entries[entry.ID] = &cp
	return nil
}

func (m *memRepo) Get(_ context.Context, id string) (*models.AssetEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memRepo) MarkDeleted(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return ErrNotFound
	}
	e.Status = models.AssetDeleted
	return nil
}

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (m *memStorage) Provider() string { return "mem" }

func (m *memStorage) PutObject(_ context.Context, in ports.PutObjectInput) (ports.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Reader)
	if err != nil {
		return ports.PutObjectOutput{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[in.ObjectKey] = data
	return ports.PutObjectOutput{ObjectKey: in.ObjectKey, Size: int64(len(data))}, nil
}

func (m *memStorage) GetObject(_ context.Context, key string) (io.ReadCloser, string, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, "", 0, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), "", int64(len(data)), nil
}

func (m *memStorage) DeleteObject(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *memStorage) GetSignedURL(_ context.Context, key string, expiresIn time.Duration) (ports.SignedURLOutput, error) {
	return ports.SignedURLOutput{URL: "https://signed.example/" + key, ExpiresAt: time.Now().Add(expiresIn)}, nil
}

func newTestStore() (*Store, *memRepo, *memStorage) {
	repo := newMemRepo()
	sp := newMemStorage()
	return New(repo, sp, logger.New(logger.Config{Output: io.Discard})), repo, sp
}

func ingest(t *testing.T, s *Store, project, name, contentType string, body []byte) IngestResult {
	t.Helper()
	res, err := s.Ingest(context.Background(), IngestInput{
		ProjectID:        project,
		OriginalFilename: name,
		ContentType:      contentType,
		Reader:           bytes.NewReader(body),
	})
	require.NoError(t, err)
	return res
}

func TestIngestStoresNewAsset(t *testing.T) {
	s, _, sp := newTestStore()
	body := []byte("fake mp4 bytes")

	res := ingest(t, s, "p1", "My Clip.MP4", "video/mp4", body)
	require.False(t, res.Deduplicated)

	e := res.Entry
	assert.Equal(t, models.AssetVideo, e.Kind)
	assert.Equal(t, int64(1), e.Seq)
	assert.Equal(t, "VID_0001.mp4", e.SystemFilename)
	assert.Equal(t, "assets/p1/VID_0001.mp4", e.StorageKey)
	assert.Equal(t, int64(len(body)), e.SizeBytes)

	sum := sha256.Sum256(body)
	assert.Equal(t, hex.EncodeToString(sum[:]), e.ContentHash)

	stored, ok := sp.objects[e.StorageKey]
	require.True(t, ok)
	assert.Equal(t, body, stored)
}

func TestIngestDeduplicatesSameBytes(t *testing.T) {
	s, _, sp := newTestStore()
	body := []byte("identical content")

	first := ingest(t, s, "p1", "a.mp4", "video/mp4", body)
	second := ingest(t, s, "p1", "differently-named.mp4", "video/mp4", body)

	assert.True(t, second.Deduplicated)
	assert.Equal(t, first.Entry.ID, second.Entry.ID)
	assert.Len(t, sp.objects, 1)
}

func TestIngestScopedPerProject(t *testing.T) {
	s, _, _ := newTestStore()
	body := []byte("shared bytes")

	a := ingest(t, s, "p1", "a.mp4", "video/mp4", body)
	b := ingest(t, s, "p2", "a.mp4", "video/mp4", body)

	assert.False(t, b.Deduplicated)
	assert.NotEqual(t, a.Entry.ID, b.Entry.ID)
}

func TestIngestCountersPerKind(t *testing.T) {
	s, _, _ := newTestStore()

	v1 := ingest(t, s, "p1", "a.mp4", "video/mp4", []byte("v-one"))
	a1 := ingest(t, s, "p1", "a.mp3", "audio/mpeg", []byte("a-one"))
	v2 := ingest(t, s, "p1", "b.mp4", "video/mp4", []byte("v-two"))

	assert.Equal(t, "VID_0001.mp4", v1.Entry.SystemFilename)
	assert.Equal(t, "AUD_0001.mp3", a1.Entry.SystemFilename)
	assert.Equal(t, "VID_0002.mp4", v2.Entry.SystemFilename)
}

func TestIngestLosesInsertRace(t *testing.T) {
	s, repo, sp := newTestStore()
	body := []byte("raced bytes")

	// Simulate the winner landing between our hash lookup and Create.
	sum := sha256.Sum256(body)
	winner := &models.AssetEntry{
		ID:          "ast_winner",
		ProjectID:   "p1",
		ContentHash: hex.EncodeToString(sum[:]),
		StorageKey:  "assets/p1/VID_0001.mp4",
		Kind:        models.AssetVideo,
		Status:      models.AssetActive,
	}
	repo.failCreateWith = ErrHashExists

	res, err := s.Ingest(context.Background(), IngestInput{
		ProjectID:        "p1",
		OriginalFilename: "b.mp4",
		ContentType:      "video/mp4",
		Reader:           bytes.NewReader(body),
	})
	// The lookup after losing the race must find the winner, so plant it.
	require.Error(t, err) // winner was not planted yet; refetch fails

	require.NoError(t, repo.Create(context.Background(), winner))
	repo.failCreateWith = ErrHashExists
	res, err = s.Ingest(context.Background(), IngestInput{
		ProjectID:        "p1",
		OriginalFilename: "b.mp4",
		ContentType:      "video/mp4",
		Reader:           bytes.NewReader(body),
	})
	require.NoError(t, err)
	assert.True(t, res.Deduplicated)
	assert.Equal(t, "ast_winner", res.Entry.ID)
	assert.NotEmpty(t, sp.deleted, "losing copy should be removed")
}

func TestIngestRejectsUnsupportedType(t *testing.T) {
	s, _, _ := newTestStore()
	_, err := s.Ingest(context.Background(), IngestInput{
		ProjectID:        "p1",
		OriginalFilename: "notes.txt",
		ContentType:      "text/plain",
		Reader:           bytes.NewReader([]byte("hi")),
	})
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestSoftDeleteFreesHashButKeepsCounter(t *testing.T) {
	s, _, _ := newTestStore()
	body := []byte("delete me")

	first := ingest(t, s, "p1", "a.mp4", "video/mp4", body)
	require.NoError(t, s.SoftDelete(context.Background(), first.Entry.ID))

	// Same bytes after deletion ingest fresh, with a new counter value.
	again := ingest(t, s, "p1", "a.mp4", "video/mp4", body)
	assert.False(t, again.Deduplicated)
	assert.Equal(t, int64(2), again.Entry.Seq)
}

func TestSystemFilename(t *testing.T) {
	assert.Equal(t, "VID_0007.mp4", SystemFilename(models.AssetVideo, 7, "Holiday Video.MP4"))
	assert.Equal(t, "AUD_0123.wav", SystemFilename(models.AssetAudio, 123, "take.wav"))
	assert.Equal(t, "VID_10000.mp4", SystemFilename(models.AssetVideo, 10000, "big.mp4"))
}
