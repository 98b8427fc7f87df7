// Package database handles the block model for the blockchain, including the
// hashing and proof of work rules, and the behavior a storage implementation
// must provide to hold the chain.
package database

import "errors"

// ErrBlockNotExist is returned by a Storage when the requested block index
// has not been written.
var ErrBlockNotExist = errors.New("block does not exist")

// ErrOutOfOrder is returned by a Storage when a block is written that is not
// the next block in the chain.
var ErrOutOfOrder = errors.New("block is out of order")

// =============================================================================

// Storage interface represents the behavior required to be implemented by any
// package providing support for storing and reading the blockchain. Storage
// is append only, there is no way to update or remove a written block.
type Storage interface {
	Write(block Block) error
	GetBlock(index uint64) (Block, error)
	ForEach() Iterator
	Count() int
	Close() error
}

// Iterator interface represents the behavior required to be implemented by any
// package providing support to iterate over the blocks.
type Iterator interface {
	Next() (Block, error)
	Done() bool
}
