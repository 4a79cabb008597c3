package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rooch-network/rooch-sub004/common"
	"github.com/rooch-network/rooch-sub004/gc"
	"github.com/rooch-network/rooch-sub004/store"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "db", Short: "inspect and repair the node store"}
	cmd.AddCommand(newListStaleCmd())
	cmd.AddCommand(newRecycleCmd())
	cmd.AddCommand(newImportStateCmd())
	return cmd
}

type staleEntry struct {
	CutoffRoot string `json:"cutoff_root"`
	NodeHash   string `json:"node_hash"`
	Reachable  *bool  `json:"reachable,omitempty"`
}

func newListStaleCmd() *cobra.Command {
	var limit int
	var checkReach bool
	var liveRoots []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list-stale",
		Short: "list stale-index entries, optionally cross-checked against a fresh reachability marker",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openNetworkStore()
			if err != nil {
				return err
			}
			defer db.Close()

			staleIndex := gc.NewStaleIndex(db.ColumnFamily(store.CFStaleIndex))

			var marker gc.Marker
			if checkReach {
				roots := make([]common.Hash, 0, len(liveRoots))
				for _, r := range liveRoots {
					roots = append(roots, common.HexToHash(r))
				}
				marker = gc.NewAtomicBloom(uint64(cfg.MarkBatchSize) * 64)
				if err := gc.MarkReachableParallel(db, marker, roots, cfg.MarkWorkers); err != nil {
					return fmt.Errorf("building reachability marker: %w", err)
				}
			}

			var entries []staleEntry
			err = staleIndex.ForAll(func(cutoffRoot, nodeHash common.Hash) bool {
				e := staleEntry{CutoffRoot: cutoffRoot.Hex(), NodeHash: nodeHash.Hex()}
				if marker != nil {
					reachable, merr := marker.IsMarked(nodeHash)
					if merr == nil {
						e.Reachable = &reachable
					}
				}
				entries = append(entries, e)
				return limit <= 0 || len(entries) < limit
			})
			if err != nil {
				return err
			}

			if asJSON {
				return json.NewEncoder(os.Stdout).Encode(entries)
			}
			for _, e := range entries {
				fmt.Printf("%s  cutoff=%s  reachable=%v\n", e.NodeHash, e.CutoffRoot, e.Reachable)
			}
			return nil
		},
	}
	cmd.Flags().Int("min-order", 0, "lowest tx order to consider (requires an external transaction-history source; unused standalone)")
	cmd.Flags().Int("max-order", 0, "highest tx order to consider (requires an external transaction-history source; unused standalone)")
	cmd.Flags().IntVar(&limit, "limit", 0, "stop after this many entries (0 = unlimited)")
	cmd.Flags().BoolVar(&checkReach, "check-reach", false, "cross-reference each entry against a freshly built marker seeded from --live-root")
	cmd.Flags().StringArrayVar(&liveRoots, "live-root", nil, "a currently-protected root, repeatable; required with --check-reach")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON instead of text")
	return cmd
}

func newRecycleCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "recycle", Short: "inspect and restore deleted nodes"}
	cmd.AddCommand(newRecycleDumpCmd())
	cmd.AddCommand(newRecycleRestoreCmd())
	cmd.AddCommand(newRecycleStatCmd())
	return cmd
}

func newRecycleDumpCmd() *cobra.Command {
	var hashHex string
	var decode bool
	var outPath string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "print a recycle-bin record",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openNetworkStore()
			if err != nil {
				return err
			}
			defer db.Close()

			bin := gc.NewRecycleBin(db.ColumnFamily(store.CFNodeRecycle))
			rec, err := bin.Get(common.HexToHash(hashHex))
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("no recycle-bin record for %s", hashHex)
			}

			out := os.Stdout
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			if asJSON {
				payload := map[string]interface{}{
					"hash":            hashHex,
					"phase":           rec.Phase,
					"original_cutoff": rec.OriginalCutoff.Hex(),
					"tx_order":        rec.TxOrder,
					"created_at":      rec.CreatedAt,
					"deleted_at":      rec.DeletedAt,
					"original_size":   rec.OriginalSize,
					"node_type":       rec.NodeType,
					"note":            rec.Note,
				}
				if decode {
					payload["bytes_hex"] = hex.EncodeToString(rec.Bytes)
				}
				return json.NewEncoder(out).Encode(payload)
			}

			fmt.Fprintf(out, "hash=%s phase=%d cutoff=%s tx_order=%d created_at=%d deleted_at=%d size=%d\n",
				hashHex, rec.Phase, rec.OriginalCutoff.Hex(), rec.TxOrder, rec.CreatedAt, rec.DeletedAt, rec.OriginalSize)
			if decode {
				fmt.Fprintf(out, "bytes=0x%s\n", hex.EncodeToString(rec.Bytes))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&hashHex, "hash", "", "node hash to dump (required)")
	cmd.Flags().BoolVar(&decode, "decode", false, "include the raw node bytes")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write to this file instead of stdout")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON instead of text")
	_ = cmd.MarkFlagRequired("hash")
	return cmd
}

func newRecycleRestoreCmd() *cobra.Command {
	var hashHex string
	var force bool

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "copy a recycle-bin record's bytes back into the node store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("refusing to restore without --force")
			}
			db, err := openNetworkStore()
			if err != nil {
				return err
			}
			defer db.Close()

			bin := gc.NewRecycleBin(db.ColumnFamily(store.CFNodeRecycle))
			h := common.HexToHash(hashHex)
			if err := bin.Restore(h, db, false); err != nil {
				return err
			}
			logger.Info("restored node from recycle bin", zap.String("hash", hashHex))
			return nil
		},
	}
	cmd.Flags().StringVar(&hashHex, "hash", "", "node hash to restore (required)")
	cmd.Flags().BoolVar(&force, "force", false, "required acknowledgment for a destructive-adjacent operation")
	_ = cmd.MarkFlagRequired("hash")
	return cmd
}

func newRecycleStatCmd() *cobra.Command {
	var detailed bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stat",
		Short: "summarize recycle-bin contents",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openNetworkStore()
			if err != nil {
				return err
			}
			defer db.Close()

			cf := db.ColumnFamily(store.CFNodeRecycle)
			totalCount, totalBytes, byPhase, bytesByPhase, err := scanRecycleStats(cf)
			if err != nil {
				return err
			}

			if asJSON {
				payload := map[string]interface{}{"count": totalCount, "bytes": totalBytes}
				if detailed {
					detail := map[string]interface{}{}
					for phase, n := range byPhase {
						detail[fmt.Sprintf("phase_%d", phase)] = map[string]interface{}{"count": n, "bytes": bytesByPhase[phase]}
					}
					payload["by_phase"] = detail
				}
				return json.NewEncoder(os.Stdout).Encode(payload)
			}

			fmt.Printf("total: %d records, %d bytes\n", totalCount, totalBytes)
			if detailed {
				for phase, n := range byPhase {
					fmt.Printf("  phase=%d: %d records, %d bytes\n", phase, n, bytesByPhase[phase])
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&detailed, "detailed", false, "break totals down by phase")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON instead of text")
	return cmd
}

func scanRecycleStats(cf *store.CFHandle) (count int, totalBytes uint64, byPhase map[gc.RecyclePhase]int, bytesByPhase map[gc.RecyclePhase]uint64, err error) {
	byPhase = map[gc.RecyclePhase]int{}
	bytesByPhase = map[gc.RecyclePhase]uint64{}
	bin := gc.NewRecycleBin(cf)
	scanErr := cf.Iterate(func(key, value []byte) bool {
		var h common.Hash
		copy(h[:], key)
		rec, derr := bin.Get(h)
		if derr != nil || rec == nil {
			return true
		}
		count++
		totalBytes += rec.OriginalSize
		byPhase[rec.Phase]++
		bytesByPhase[rec.Phase] += rec.OriginalSize
		return true
	})
	return count, totalBytes, byPhase, bytesByPhase, scanErr
}

func newImportStateCmd() *cobra.Command {
	var inputPath string
	var expectedRootHex string

	cmd := &cobra.Command{
		Use:   "import-state",
		Short: "replay a snapshot dump into the node store",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(inputPath)
			if err != nil {
				return err
			}
			defer f.Close()

			db, err := openNetworkStore()
			if err != nil {
				return err
			}
			defer db.Close()

			var expectedRoot *common.Hash
			if expectedRootHex != "" {
				h := common.HexToHash(expectedRootHex)
				expectedRoot = &h
			}

			info := gc.NewPebbleStartupInfo(db)
			root, n, err := gc.Import(f, db, info, expectedRoot)
			if err != nil {
				return err
			}
			logger.Info("imported state snapshot", zap.String("root", root.Hex()), zap.Int("nodes", n))
			return nil
		},
	}
	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "snapshot dump path (required)")
	cmd.Flags().StringVar(&expectedRootHex, "expected-state-root", "", "fail before writing if the dump's root doesn't match this hex hash")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
