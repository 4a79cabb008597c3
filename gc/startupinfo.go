package gc

import (
	"github.com/rooch-network/rooch-sub004/applier"
	"github.com/rooch-network/rooch-sub004/common"
	"github.com/rooch-network/rooch-sub004/store"
)

// PebbleStartupInfo adapts the startup_info column family of a
// PebbleStore to the StartupInfo interface Import drives.
type PebbleStartupInfo struct {
	cf *store.CFHandle
}

func NewPebbleStartupInfo(db *store.PebbleStore) *PebbleStartupInfo {
	return &PebbleStartupInfo{cf: db.ColumnFamily(store.CFStartupInfo)}
}

func (s *PebbleStartupInfo) Load() (common.Hash, uint64, error) {
	raw, err := s.cf.Get(applier.StartupInfoKey())
	if err != nil {
		return common.Hash{}, 0, err
	}
	if raw == nil {
		return common.Hash{}, 0, nil
	}
	return applier.DecodeStartupInfo(raw)
}

func (s *PebbleStartupInfo) Store(root common.Hash, size uint64) error {
	return s.cf.Set(applier.StartupInfoKey(), applier.EncodeStartupInfo(root, size))
}
