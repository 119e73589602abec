package domain

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

var (
	idNode     *snowflake.Node
	idNodeOnce sync.Once
)

// NewID returns a unique, roughly time ordered product id
func NewID() string {
	idNodeOnce.Do(func() {
		node, err := snowflake.NewNode(1)
		if err != nil {
			zap.L().Panic("snowflake node init failed", zap.String("namespace", "domain"), zap.Error(err))
		}
		idNode = node
	})
	return idNode.Generate().Base36()
}
