package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/neogan74/tribbler/internal/logger"
)

const (
	kvPrefix    = "kv:"
	listPrefix  = "ls:"
	clockKey    = "__clock__"
	listElemSep = "\x00"
)

// Badger is a durable Engine implementation backed by BadgerDB, grounded on
// the teacher's BadgerEngine. Unlike the teacher's engine it has no TTL
// concept: every key in Tribbler lives for the life of the bin.
type Badger struct {
	db  *badger.DB
	log logger.Logger
}

// NewBadger opens (creating if necessary) a BadgerDB store rooted at
// dataDir.
func NewBadger(dataDir string, syncWrites bool, log logger.Logger) (*Badger, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	opts := badger.DefaultOptions(dataDir)
	opts.SyncWrites = syncWrites
	opts.Logger = nil
	opts.ValueLogFileSize = 64 << 20
	opts.MemTableSize = 64 << 20
	opts.NumMemtables = 5
	opts.NumLevelZeroTables = 5
	opts.NumLevelZeroTablesStall = 10

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	b := &Badger{db: db, log: log}
	go b.runGC()

	log.Info("badger storage engine opened",
		logger.String("data_dir", dataDir),
		logger.String("sync_writes", fmt.Sprintf("%t", syncWrites)))

	return b, nil
}

func (b *Badger) runGC() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		if err := b.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
			b.log.Warn("badger value log gc failed", logger.Error(err))
		}
	}
}

func (b *Badger) Get(ctx context.Context, key string) (string, bool, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(kvPrefix + key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(value), true, nil
}

func (b *Badger) Set(ctx context.Context, key, value string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(kvPrefix+key), []byte(value))
	})
}

func (b *Badger) Keys(ctx context.Context, prefix, suffix string) ([]string, error) {
	var keys []string
	searchPrefix := kvPrefix + prefix
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefixBytes := []byte(searchPrefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			key := strings.TrimPrefix(string(it.Item().Key()), kvPrefix)
			if strings.HasSuffix(key, suffix) {
				keys = append(keys, key)
			}
		}
		return nil
	})
	return keys, err
}

func (b *Badger) ListGet(ctx context.Context, key string) ([]string, error) {
	var out []string
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(listPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			out = []string{}
			return nil
		}
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		out = decodeList(raw)
		return nil
	})
	return out, err
}

func (b *Badger) ListAppend(ctx context.Context, key, value string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		var cur []string
		item, err := txn.Get([]byte(listPrefix + key))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			cur = decodeList(raw)
		}
		cur = append(cur, value)
		return txn.Set([]byte(listPrefix+key), encodeList(cur))
	})
}

func (b *Badger) ListRemove(ctx context.Context, key, value string) (int, error) {
	removed := 0
	err := b.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(listPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		cur := decodeList(raw)
		kept := cur[:0:0]
		for _, v := range cur {
			if v == value {
				removed++
				continue
			}
			kept = append(kept, v)
		}
		return txn.Set([]byte(listPrefix+key), encodeList(kept))
	})
	return removed, err
}

func (b *Badger) ListKeys(ctx context.Context, prefix, suffix string) ([]string, error) {
	var keys []string
	searchPrefix := listPrefix + prefix
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefixBytes := []byte(searchPrefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			key := strings.TrimPrefix(string(it.Item().Key()), listPrefix)
			if strings.HasSuffix(key, suffix) {
				keys = append(keys, key)
			}
		}
		return nil
	})
	return keys, err
}

// Clock advances the engine's monotonic clock to max(prev+1, atLeast),
// saturating at math.MaxUint64 rather than wrapping (spec.md §3).
func (b *Badger) Clock(ctx context.Context, atLeast uint64) (uint64, error) {
	var next uint64
	err := b.db.Update(func(txn *badger.Txn) error {
		var cur uint64
		item, err := txn.Get([]byte(clockKey))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			cur = binary.BigEndian.Uint64(raw)
		}
		if cur < math.MaxUint64 {
			cur++
		}
		if atLeast > cur {
			cur = atLeast
		}
		next = cur
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, cur)
		return txn.Set([]byte(clockKey), buf)
	})
	return next, err
}

func (b *Badger) Close() error {
	return b.db.Close()
}

func encodeList(elems []string) []byte {
	return []byte(strings.Join(elems, listElemSep))
}

func decodeList(raw []byte) []string {
	if len(raw) == 0 {
		return []string{}
	}
	return strings.Split(string(raw), listElemSep)
}
