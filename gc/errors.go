package gc

import (
	"errors"
	"fmt"

	"github.com/rooch-network/rooch-sub004/common"
	"github.com/rooch-network/rooch-sub004/internal/errtag"
)

var errBadRefcountRecord = errors.New("refcount record is not 4 bytes")
var errRefcountUnderflow = errors.New("refcount decrement below zero")
var errStaleIndexKeyTooShort = errors.New("stale-index key shorter than two hashes")
var errBadMarkerSnapshot = errors.New("marker snapshot missing its count prefix")

func smtCorruption(hash common.Hash) error {
	return errtag.New(errtag.Corruption, "gc.traversal", fmt.Errorf("node %s referenced but absent from store", hash))
}

func isRefcountAlreadyZero(err error) bool {
	return errors.Is(err, errRefcountUnderflow)
}
