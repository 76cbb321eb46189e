package vectorindex

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/sn3fru/silvanews-sub000/pkg/similarity"
)

const vectorKeyPrefix = "vec:"

// BadgerIndex persists embeddings in a BadgerDB keyspace so the index
// survives restarts. Searches iterate the full prefix; the corpus per
// window is small enough that a linear scan beats maintaining an ANN
// structure.
type BadgerIndex struct {
	db     *badger.DB
	logger *slog.Logger
}

type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any)   { bl.logger.Error(fmt.Sprintf(msg, items...)) }
func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) { bl.logger.Warn(fmt.Sprintf(msg, items...)) }
func (bl *badgerLoggerAdapter) Infof(msg string, items ...any)    { bl.logger.Info(fmt.Sprintf(msg, items...)) }
func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any)   { bl.logger.Debug(fmt.Sprintf(msg, items...)) }

// OpenBadgerIndex opens a persistent index at path; an empty path opens
// an in-memory database, used by tests.
func OpenBadgerIndex(path string, logger *slog.Logger) (*BadgerIndex, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("creating index directory: %w", err)
		}
		opts = badger.DefaultOptions(path)
	}
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening vector index: %w", err)
	}
	return &BadgerIndex{db: db, logger: logger}, nil
}

func (b *BadgerIndex) Add(ctx context.Context, id string, embedding []float32, publishedAt time.Time) error {
	if id == "" || len(embedding) == 0 {
		return nil
	}
	if b.db.IsClosed() {
		return ErrClosed
	}
	value := encodeEntry(embedding, publishedAt)
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(vectorKey(id), value)
	})
	if err != nil {
		return fmt.Errorf("storing embedding for %s: %w", id, err)
	}
	return nil
}

func (b *BadgerIndex) Search(ctx context.Context, query []float32, since time.Time, k int, exclude []string) ([]similarity.Neighbor, error) {
	if k <= 0 || len(query) == 0 {
		return nil, nil
	}
	if b.db.IsClosed() {
		return nil, ErrClosed
	}
	excluded := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	var candidates []similarity.Candidate
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vectorKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			id := string(item.Key()[len(vectorKeyPrefix):])
			if excluded[id] {
				continue
			}
			if err := item.Value(func(value []byte) error {
				embedding, publishedAt, err := decodeEntry(value)
				if err != nil {
					b.logger.Warn("dropping undecodable index entry", "id", id, "error", err)
					return nil
				}
				if publishedAt.Before(since) {
					return nil
				}
				candidates = append(candidates, similarity.Candidate{ID: id, Embedding: embedding})
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning vector index: %w", err)
	}
	return similarity.NearestNeighbors(query, candidates, k), nil
}

func (b *BadgerIndex) Close() error {
	return b.db.Close()
}

func vectorKey(id string) []byte {
	return []byte(vectorKeyPrefix + id)
}

// encodeEntry lays out the published-at micros followed by the raw
// float32 vector, all big-endian.
func encodeEntry(embedding []float32, publishedAt time.Time) []byte {
	buf := make([]byte, 8+4*len(embedding))
	binary.BigEndian.PutUint64(buf, uint64(publishedAt.UTC().UnixMicro()))
	offset := 8
	for _, v := range embedding {
		binary.BigEndian.PutUint32(buf[offset:], math.Float32bits(v))
		offset += 4
	}
	return buf
}

func decodeEntry(value []byte) ([]float32, time.Time, error) {
	if len(value) < 8 || (len(value)-8)%4 != 0 {
		return nil, time.Time{}, fmt.Errorf("malformed entry of %d bytes", len(value))
	}
	publishedAt := time.UnixMicro(int64(binary.BigEndian.Uint64(value))).UTC()
	embedding := make([]float32, (len(value)-8)/4)
	for i := range embedding {
		embedding[i] = math.Float32frombits(binary.BigEndian.Uint32(value[8+4*i:]))
	}
	return embedding, publishedAt, nil
}
