package idgen

import (
	"log"

	"github.com/bwmarrin/snowflake"
)

var node *snowflake.Node

// Init creates the process-wide snowflake node. Must run once at startup,
// before any model is created.
func Init() {
	var err error
	node, err = snowflake.NewNode(1)
	if err != nil {
		log.Fatalf("Failed to init Snowflake: %v", err)
	}
}

// GenerateID returns the next snowflake identifier.
func GenerateID() int64 {
	return node.Generate().Int64()
}
