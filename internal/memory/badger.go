package memory

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger"
	"go.uber.org/zap"
)

const (
	prefetchSize = 100
	gcDiscard    = 0.5
)

func translateError(e error) error {
	switch {
	case e == nil:
		return nil
	case errors.Is(e, badger.ErrKeyNotFound):
		return ErrKeyNotFound
	default:
		return BackendError{Original: e}
	}
}

// Badger stores all partitions in one badger database; every key is
// prefixed with its partition id.
type Badger struct {
	db    *badger.DB
	sugar *zap.SugaredLogger
}

// OpenBadger opens (or creates) a badger database in dir with synchronous writes.
func OpenBadger(dir string, logger *zap.Logger) (*Badger, error) {
	opts := badger.DefaultOptions(dir).
		WithSyncWrites(true).
		WithLogger(badgerLogger{sugar: logger.Named("badger").Sugar()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger %s: %w", dir, err)
	}
	return &Badger{db: db, sugar: logger.Sugar()}, nil
}

func (b *Badger) Partition(id PartitionID) Partition {
	return &badgerPartition{db: b.db, prefix: []byte{byte(id)}}
}

// Compact runs value log GC until there is nothing left to rewrite.
func (b *Badger) Compact() error {
	for {
		err := b.db.RunValueLogGC(gcDiscard)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
			return nil
		}
		if err != nil {
			return translateError(err)
		}
		b.sugar.Debugw("value log rewritten")
	}
}

func (b *Badger) Close() error {
	return b.db.Close()
}

type badgerPartition struct {
	db     *badger.DB
	prefix []byte
}

func (p *badgerPartition) key(key []byte) []byte {
	k := make([]byte, 0, len(p.prefix)+len(key))
	k = append(k, p.prefix...)
	return append(k, key...)
}

func (p *badgerPartition) Get(key []byte) ([]byte, error) {
	var value []byte
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(p.key(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	return value, translateError(err)
}

func (p *badgerPartition) Set(key, value []byte) error {
	return translateError(p.db.Update(func(txn *badger.Txn) error {
		return txn.Set(p.key(key), value)
	}))
}

func (p *badgerPartition) Delete(key []byte) error {
	return translateError(p.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(p.key(key))
	}))
}

func (p *badgerPartition) Ascend(fn func(key, value []byte) bool) error {
	return translateError(p.db.View(func(txn *badger.Txn) error {
		opt := badger.DefaultIteratorOptions
		opt.PrefetchSize = prefetchSize
		it := txn.NewIterator(opt)
		defer it.Close()

		for it.Seek(p.prefix); it.ValidForPrefix(p.prefix); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)[len(p.prefix):]
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if !fn(key, value) {
				return nil
			}
		}
		return nil
	}))
}

// badgerLogger routes badger's own logging into zap.
type badgerLogger struct {
	sugar *zap.SugaredLogger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}
