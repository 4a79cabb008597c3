package applier

import "github.com/rooch-network/rooch-sub004/common"

// Op is the kind of change applied to one field_key.
type Op int

const (
	OpNew Op = iota
	OpModify
	OpDelete
)

func (op Op) String() string {
	switch op {
	case OpNew:
		return "new"
	case OpModify:
		return "modify"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// ObjectChange is one entry of an ObjectChangeSet: a change to the object
// stored at Key, plus its own nested field changes (the object's fields
// tree, rooted at the object's own state_root).
type ObjectChange struct {
	Op Op

	// Owner, Flag, ObjectType override the corresponding Metadata field
	// when non-nil. Left nil on Modify, they carry the pre-state value
	// forward unchanged.
	Owner      *common.Hash
	Flag       *uint8
	ObjectType *string

	// Value is the new raw payload. nil on Modify means "carry the
	// pre-state value forward"; New/Delete never
	// read the pre-state value, so a nil Value there simply means "no
	// payload of its own" (a pure container object).
	Value []byte

	// Fields are nested field changes, applied against the object's own
	// prior_state_root before the object's new state_root is computed.
	Fields map[common.Hash]*ObjectChange
}

// ObjectChangeSet is a nested map field_key -> ObjectChange, rooted at one
// SMT.
type ObjectChangeSet struct {
	Changes map[common.Hash]*ObjectChange
}

// NewObjectChangeSet returns an empty change set.
func NewObjectChangeSet() *ObjectChangeSet {
	return &ObjectChangeSet{Changes: make(map[common.Hash]*ObjectChange)}
}

// Put registers a New or Modify change for key.
func (cs *ObjectChangeSet) Put(key common.Hash, change *ObjectChange) {
	cs.Changes[key] = change
}

// Delete registers a Delete change for key.
func (cs *ObjectChangeSet) Delete(key common.Hash) {
	cs.Changes[key] = &ObjectChange{Op: OpDelete}
}
