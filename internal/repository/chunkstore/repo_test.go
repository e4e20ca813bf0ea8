package chunkstore

import (
	"context"
	"errors"
	"testing"

	"github.com/campusmind-ai/campusmind/internal/db"
	"github.com/campusmind-ai/campusmind/internal/domain"
	"github.com/campusmind-ai/campusmind/internal/domain/chunk"
)

// memStore is an in-memory stand-in for the key-value store.
type memStore struct {
	kv   map[string][]byte
	sets map[string]map[string]struct{}
}

func newMemStore() *memStore {
	return &memStore{
		kv:   make(map[string][]byte),
		sets: make(map[string]map[string]struct{}),
	}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.kv[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte) error {
	m.kv[key] = value
	return nil
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.kv, k)
		delete(m.sets, k)
	}
	return nil
}

func (m *memStore) SAdd(_ context.Context, key string, members ...string) error {
	if m.sets[key] == nil {
		m.sets[key] = make(map[string]struct{})
	}
	for _, member := range members {
		m.sets[key][member] = struct{}{}
	}
	return nil
}

func (m *memStore) SRem(_ context.Context, key string, members ...string) error {
	for _, member := range members {
		delete(m.sets[key], member)
	}
	return nil
}

func (m *memStore) SMembers(_ context.Context, key string) ([]string, error) {
	out := make([]string, 0, len(m.sets[key]))
	for member := range m.sets[key] {
		out = append(out, member)
	}
	return out, nil
}

func (m *memStore) SCard(_ context.Context, key string) (int64, error) {
	return int64(len(m.sets[key])), nil
}

func testChunk(content, source string) chunk.Chunk {
	return chunk.New(content, source, nil, chunk.TypeHeading,
		&chunk.HeadingMeta{Text: "Tuition", Level: 2, Number: "7.3", Parent: "7"})
}

func TestPutGet_Roundtrip(t *testing.T) {
	repo := New(newMemStore())
	ctx := context.Background()

	original := testChunk("học phí theo học kỳ", "doc.pdf")
	if err := repo.Put(ctx, "c1", original); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := repo.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if got.Content() != original.Content() {
		t.Errorf("Content = %q, want %q", got.Content(), original.Content())
	}
	if got.HeadingNumber() != "7.3" || got.ParentHeading() != "7" {
		t.Errorf("heading meta = (%q, %q), want (7.3, 7)", got.HeadingNumber(), got.ParentHeading())
	}
	if got.CharCount() != original.CharCount() || got.WordCount() != original.WordCount() {
		t.Errorf("counts changed across storage: (%d, %d) vs (%d, %d)",
			got.CharCount(), got.WordCount(), original.CharCount(), original.WordCount())
	}
}

func TestGet_NotFound(t *testing.T) {
	repo := New(newMemStore())

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrChunkNotFound) {
		t.Errorf("expected ErrChunkNotFound, got %v", err)
	}
}

func TestListByDocument(t *testing.T) {
	repo := New(newMemStore())
	ctx := context.Background()

	_ = repo.Put(ctx, "b", testChunk("two", "x.pdf"))
	_ = repo.Put(ctx, "a", testChunk("one", "x.pdf"))
	_ = repo.Put(ctx, "c", testChunk("other", "y.pdf"))

	stored, err := repo.ListByDocument(ctx, "x.pdf")
	if err != nil {
		t.Fatalf("ListByDocument failed: %v", err)
	}

	if len(stored) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(stored))
	}
	// id-sorted order
	if stored[0].ID != "a" || stored[1].ID != "b" {
		t.Errorf("order = (%s, %s), want (a, b)", stored[0].ID, stored[1].ID)
	}
}

func TestListByDocument_Unknown(t *testing.T) {
	repo := New(newMemStore())

	_, err := repo.ListByDocument(context.Background(), "ghost.pdf")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestListAll(t *testing.T) {
	repo := New(newMemStore())
	ctx := context.Background()

	_ = repo.Put(ctx, "1", testChunk("one", "x.pdf"))
	_ = repo.Put(ctx, "2", testChunk("two", "y.pdf"))

	stored, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(stored) != 2 {
		t.Errorf("expected 2 chunks, got %d", len(stored))
	}
}

func TestDeleteDocument(t *testing.T) {
	repo := New(newMemStore())
	ctx := context.Background()

	_ = repo.Put(ctx, "a", testChunk("one", "x.pdf"))
	_ = repo.Put(ctx, "b", testChunk("two", "x.pdf"))
	_ = repo.Put(ctx, "c", testChunk("keep", "y.pdf"))

	removed, err := repo.DeleteDocument(ctx, "x.pdf")
	if err != nil {
		t.Fatalf("DeleteDocument failed: %v", err)
	}
	if len(removed) != 2 || removed[0] != "a" || removed[1] != "b" {
		t.Errorf("removed = %v, want [a b]", removed)
	}

	if _, err := repo.Get(ctx, "a"); !errors.Is(err, domain.ErrChunkNotFound) {
		t.Errorf("deleted chunk still readable: %v", err)
	}
	if _, err := repo.Get(ctx, "c"); err != nil {
		t.Errorf("unrelated chunk lost: %v", err)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d, want 1", count)
	}
}

func TestDeleteDocument_Unknown(t *testing.T) {
	repo := New(newMemStore())

	_, err := repo.DeleteDocument(context.Background(), "ghost.pdf")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}
