package smt

import (
	"fmt"

	"github.com/rooch-network/rooch-sub004/common"
	"github.com/rooch-network/rooch-sub004/internal/errtag"
)

func corruptionMissingNode(hash common.Hash) error {
	return errtag.New(errtag.Corruption, "smt.apply", fmt.Errorf("node %s referenced but absent from store", hash))
}
