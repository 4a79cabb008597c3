package gc

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rooch-network/rooch-sub004/common"
	"github.com/rooch-network/rooch-sub004/internal/errtag"
	"github.com/rooch-network/rooch-sub004/smt"
)

// StartupInfo is the narrow surface Import needs onto the startup_info
// column family: read the currently persisted (root, size) and overwrite
// it. Size is never touched by an import — only the root moves.
type StartupInfo interface {
	Load() (root common.Hash, size uint64, err error)
	Store(root common.Hash, size uint64) error
}

type snapshotHeader struct {
	mode      string
	root      common.Hash
	nodes     int
	createdAt int64
}

// Import parses a Snapshot dump, writes every node it contains into ns in
// one batch, and repoints startup_info at the dump's root while keeping
// the existing object count untouched. If expectedRoot is non-nil the
// parsed root must match it, checked before any write happens. A missing
// root after the write is reported but cannot be rolled back through this
// narrow interface — callers that need transactional import should wrap
// ns in something that supports it.
func Import(r io.Reader, ns smt.NodeStore, info StartupInfo, expectedRoot *common.Hash) (common.Hash, int, error) {
	header, nodes, err := parseSnapshot(r)
	if err != nil {
		return common.Hash{}, 0, err
	}
	if header.mode != "nodes" {
		return common.Hash{}, 0, errtag.New(errtag.Precondition, "gc.Import", fmt.Errorf("unsupported snapshot mode %q", header.mode))
	}
	if len(nodes) != header.nodes {
		return common.Hash{}, 0, errtag.New(errtag.Corruption, "gc.Import", fmt.Errorf("header declared %d nodes, found %d", header.nodes, len(nodes)))
	}
	if expectedRoot != nil && *expectedRoot != header.root {
		return common.Hash{}, 0, errtag.New(errtag.Precondition, "gc.Import", fmt.Errorf("snapshot root %s does not match expected root %s", header.root, *expectedRoot))
	}
	if _, ok := nodes[header.root]; !header.root.IsPlaceholder() && !ok {
		return common.Hash{}, 0, errtag.New(errtag.Corruption, "gc.Import", fmt.Errorf("snapshot does not include its own declared root %s", header.root))
	}

	if err := ns.WriteBatch(nodes); err != nil {
		return common.Hash{}, 0, err
	}

	if !header.root.IsPlaceholder() {
		blob, err := ns.Get(header.root)
		if err != nil {
			return common.Hash{}, 0, err
		}
		if blob == nil {
			return common.Hash{}, 0, errtag.New(errtag.Corruption, "gc.Import", fmt.Errorf("root %s absent from store after write_batch", header.root))
		}
	}

	_, curSize, err := info.Load()
	if err != nil {
		return common.Hash{}, 0, err
	}
	if err := info.Store(header.root, curSize); err != nil {
		return common.Hash{}, 0, err
	}

	return header.root, len(nodes), nil
}

// ValidateSnapshot parses a dump without writing anything, returning its
// declared root and node count. Used by callers that hand the dump off to
// an external system (an indexer rebuild, say) and only need to confirm
// the file is well-formed first.
func ValidateSnapshot(r io.Reader) (common.Hash, int, error) {
	header, nodes, err := parseSnapshot(r)
	if err != nil {
		return common.Hash{}, 0, err
	}
	if len(nodes) != header.nodes {
		return common.Hash{}, 0, errtag.New(errtag.Corruption, "gc.ValidateSnapshot", fmt.Errorf("header declared %d nodes, found %d", header.nodes, len(nodes)))
	}
	return header.root, len(nodes), nil
}

func parseSnapshot(r io.Reader) (snapshotHeader, map[common.Hash][]byte, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	var header snapshotHeader
	haveMode, haveRoot, haveNodes, haveCreatedAt := false, false, false, false
	nodes := make(map[common.Hash][]byte)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			kv := strings.TrimSpace(strings.TrimPrefix(line, "#"))
			parts := strings.SplitN(kv, "=", 2)
			if len(parts) != 2 {
				continue
			}
			key, value := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
			switch key {
			case "mode":
				header.mode = value
				haveMode = true
			case "root":
				h, err := parseHashHex(value)
				if err != nil {
					return header, nil, errtag.New(errtag.Corruption, "gc.parseSnapshot", fmt.Errorf("bad root: %w", err))
				}
				header.root = h
				haveRoot = true
			case "nodes":
				n, err := strconv.Atoi(value)
				if err != nil {
					return header, nil, errtag.New(errtag.Corruption, "gc.parseSnapshot", fmt.Errorf("bad nodes count: %w", err))
				}
				header.nodes = n
				haveNodes = true
			case "created_at":
				ts, err := strconv.ParseInt(value, 10, 64)
				if err != nil {
					return header, nil, errtag.New(errtag.Corruption, "gc.parseSnapshot", fmt.Errorf("bad created_at: %w", err))
				}
				header.createdAt = ts
				haveCreatedAt = true
			}
			continue
		}

		hashHex, bytesField, ok := strings.Cut(line, ":")
		if !ok {
			return header, nil, errtag.New(errtag.Corruption, "gc.parseSnapshot", fmt.Errorf("malformed node line %q", line))
		}
		h, err := parseHashHex(hashHex)
		if err != nil {
			return header, nil, errtag.New(errtag.Corruption, "gc.parseSnapshot", fmt.Errorf("bad node hash: %w", err))
		}
		bytesField = strings.TrimPrefix(bytesField, "0x")
		blob, err := hex.DecodeString(bytesField)
		if err != nil {
			return header, nil, errtag.New(errtag.Corruption, "gc.parseSnapshot", fmt.Errorf("bad node bytes for %s: %w", h, err))
		}
		nodes[h] = blob
	}
	if err := scanner.Err(); err != nil {
		return header, nil, err
	}
	if !haveMode || !haveRoot || !haveNodes || !haveCreatedAt {
		return header, nil, errtag.New(errtag.Corruption, "gc.parseSnapshot", fmt.Errorf("incomplete snapshot header"))
	}
	return header, nodes, nil
}

func parseHashHex(s string) (common.Hash, error) {
	s = strings.TrimPrefix(s, "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return common.Hash{}, err
	}
	if len(raw) != common.HashLength {
		return common.Hash{}, fmt.Errorf("hash must be %d bytes, got %d", common.HashLength, len(raw))
	}
	var h common.Hash
	copy(h[:], raw)
	return h, nil
}
