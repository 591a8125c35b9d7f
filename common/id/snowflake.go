package id

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

// Node IDs per process. Each process that writes rows must use its own node.
const (
	NodeServer int64 = 1
	NodeWorker int64 = 2
	NodeCLI    int64 = 3
)

var (
	node *snowflake.Node
	once sync.Once
	err  error
)

// Init initializes the Snowflake node with the given node ID.
// Only the first call takes effect.
func Init(nodeID int64) error {
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New generates a new time-ordered int64 ID.
// If Init was never called (tests, one-off tools) node 0 is used.
func New() int64 {
	_ = Init(0)
	return node.Generate().Int64()
}
