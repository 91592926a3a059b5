package archive

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/predictbot/internal/domain"
)

type fakeStore struct {
	domain.GuessStore

	settled   []domain.GuessRecord
	listErr   error
	deleteErr error
	deleted   int
}

func (s *fakeStore) ListSettledBefore(context.Context, time.Time) ([]domain.GuessRecord, error) {
	return s.settled, s.listErr
}

func (s *fakeStore) DeleteSettledBefore(context.Context, time.Time) (int64, error) {
	if s.deleteErr != nil {
		return 0, s.deleteErr
	}
	s.deleted = len(s.settled)
	return int64(len(s.settled)), nil
}

type fakeBlob struct {
	path        string
	contentType string
	body        []byte
	err         error
	puts        int
}

func (b *fakeBlob) Put(_ context.Context, path string, r io.Reader, contentType string) error {
	b.puts++
	if b.err != nil {
		return b.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.path, b.contentType, b.body = path, contentType, data
	return nil
}

func settledRecord(id string) domain.GuessRecord {
	settledAt := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	return domain.GuessRecord{
		ID:           id,
		Player:       "0x2222222222222222222222222222222222222222",
		Crypto:       "BTC",
		GuessedPrice: big.NewInt(6_500_000_000_000),
		Phase:        domain.PhaseResolved,
		SubmittedAt:  settledAt.Add(-2 * time.Minute),
		SettledAt:    &settledAt,
	}
}

func TestArchiveBeforeExportsAndPrunes(t *testing.T) {
	store := &fakeStore{settled: []domain.GuessRecord{settledRecord("a"), settledRecord("b")}}
	blob := &fakeBlob{}
	a := New(store, blob, slog.Default())

	n, err := a.ArchiveBefore(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, store.deleted)
	assert.Equal(t, "application/x-ndjson", blob.contentType)
	assert.Contains(t, blob.path, "guesses/")
	assert.Contains(t, blob.path, ".ndjson")

	// One JSON object per line, decodable back into records.
	sc := bufio.NewScanner(bytes.NewReader(blob.body))
	var ids []string
	for sc.Scan() {
		var rec domain.GuessRecord
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		ids = append(ids, rec.ID)
	}
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestArchiveBeforeNothingSettled(t *testing.T) {
	store := &fakeStore{}
	blob := &fakeBlob{}
	a := New(store, blob, slog.Default())

	n, err := a.ArchiveBefore(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, blob.puts)
}

func TestArchiveBeforeKeepsRowsOnUploadFailure(t *testing.T) {
	store := &fakeStore{settled: []domain.GuessRecord{settledRecord("a")}}
	blob := &fakeBlob{err: assert.AnError}
	a := New(store, blob, slog.Default())

	_, err := a.ArchiveBefore(context.Background(), time.Now())
	require.Error(t, err)
	assert.Zero(t, store.deleted, "rows must survive a failed upload")
}
