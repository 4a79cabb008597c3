package gc

import (
	"go.uber.org/zap"

	"github.com/rooch-network/rooch-sub004/common"
)

// Network selects the retention window for the protected-roots
// collector.
type Network int

const (
	NetworkLocal Network = iota
	NetworkDev
	NetworkTest
	NetworkMain
	NetworkCustom
)

// ProtectedRootCount is the network-tuned retention window N.
func ProtectedRootCount(n Network) int {
	switch n {
	case NetworkLocal:
		return 1
	case NetworkDev, NetworkTest:
		return 1000
	case NetworkMain:
		return 30000
	default:
		return 1000
	}
}

// TxHistory is the read-only transaction-history surface the collector
// reads through: the sequencer's last tx-order, and the execution info
// (which carries a state_root) for a given tx order.
type TxHistory interface {
	LastTxOrder() (uint64, error)
	ExecutionInfo(txOrder uint64) (*ExecutionInfo, error)
}

// ExecutionInfo is the subset of a transaction's execution result the
// collector needs.
type ExecutionInfo struct {
	StateRoot common.Hash
}

// CollectProtectedRoots returns the most recent N state roots, newest
// first, tolerating gaps (missing execution infos are skipped with a
// warning), where N is ProtectedRootCount(n).
func CollectProtectedRoots(history TxHistory, n Network, logger *zap.Logger) ([]common.Hash, error) {
	return CollectProtectedRootsCustom(history, ProtectedRootCount(n), logger)
}

// CollectProtectedRootsCustom is the `custom` network variant, which
// takes an explicit N instead of deriving it from Network.
func CollectProtectedRootsCustom(history TxHistory, n int, logger *zap.Logger) ([]common.Hash, error) {
	last, err := history.LastTxOrder()
	if err != nil {
		return nil, err
	}
	roots := make([]common.Hash, 0, n)
	for order := last; len(roots) < n; order-- {
		info, err := history.ExecutionInfo(order)
		if err != nil {
			if logger != nil {
				logger.Warn("skipping tx order with missing execution info", zap.Uint64("tx_order", order), zap.Error(err))
			}
		} else if info != nil {
			roots = append(roots, info.StateRoot)
		}
		if order == 0 {
			break
		}
	}
	return roots, nil
}
