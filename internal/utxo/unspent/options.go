package unspent

import (
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

var (
	// The scratch store sees one huge sequential write stream followed by point
	// deletes. Level 0 and level 1 are kept the same size and tables are large.
	defaultDiskOptions = opt.Options{
		Compression:                   opt.NoCompression,
		WriteBuffer:                   1 * opt.GiB,
		BlockCacheCapacity:            256 * opt.MiB,
		CompactionL0Trigger:           4,
		CompactionTableSize:           256 * opt.MiB,
		CompactionTotalSize:           1 * opt.GiB, // matches WriteBuffer so L0 and L1 are the same size
		CompactionTotalSizeMultiplier: 4,
		DisableSeeksCompaction:        true,
		Filter:                        filter.NewBloomFilter(10),
	}

	// The store is deleted at teardown, so writes are never synced.
	scratchWriteOptions = &opt.WriteOptions{Sync: false}

	// DiskOptions returns the leveldb options used to open the scratch store.
	// It's defined as a variable for the sake of testing.
	DiskOptions = func() *opt.Options {
		o := defaultDiskOptions
		return &o
	}
)
