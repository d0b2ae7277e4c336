package memory

import "sync"

// Volatile keeps partitions in process memory. Nothing survives a restart;
// it backs tests and throwaway runs.
type Volatile struct {
	mu    sync.Mutex
	trees map[PartitionID]*redBlackTree
}

func NewVolatile() *Volatile {
	return &Volatile{trees: make(map[PartitionID]*redBlackTree)}
}

func (v *Volatile) Partition(id PartitionID) Partition {
	v.mu.Lock()
	defer v.mu.Unlock()

	tree, ok := v.trees[id]
	if !ok {
		tree = newRedBlackTree()
		v.trees[id] = tree
	}
	return &volatilePartition{tree: tree}
}

func (v *Volatile) Compact() error {
	return nil
}

func (v *Volatile) Close() error {
	return nil
}

type volatilePartition struct {
	tree *redBlackTree
}

func (p *volatilePartition) Get(key []byte) ([]byte, error) {
	value, ok := p.tree.get(key)
	if !ok {
		return nil, ErrKeyNotFound
	}
	return copyBytes(value), nil
}

func (p *volatilePartition) Set(key, value []byte) error {
	p.tree.put(copyBytes(key), copyBytes(value))
	return nil
}

func (p *volatilePartition) Delete(key []byte) error {
	p.tree.remove(key)
	return nil
}

func (p *volatilePartition) Ascend(fn func(key, value []byte) bool) error {
	p.tree.ascend(func(key, value []byte) bool {
		return fn(copyBytes(key), copyBytes(value))
	})
	return nil
}
