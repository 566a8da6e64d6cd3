package statetracker

import (
	"reflect"
	"sort"
)

// ChangeKind classifies one probe key's movement between two snapshots.
type ChangeKind string

const (
	ChangeCreated  ChangeKind = "created"
	ChangeModified ChangeKind = "modified"
	ChangeDeleted  ChangeKind = "deleted"
)

// SnapshotChange is one probe key that moved between two snapshots,
// attributed to the step that ran between them.
type SnapshotChange struct {
	ProbeTool string
	Kind      ChangeKind
	StepIndex int
}

// DiffSnapshots reports every probe key whose value changed between before
// and after, attributing the change to stepIndex (the step executed
// between the two snapshots being taken).
func DiffSnapshots(before, after Snapshot, stepIndex int) []SnapshotChange {
	keys := make(map[string]bool)
	for k := range before.Data {
		keys[k] = true
	}
	for k := range after.Data {
		keys[k] = true
	}

	var changes []SnapshotChange
	for k := range keys {
		bv, bok := before.Data[k]
		av, aok := after.Data[k]
		switch {
		case !bok && aok:
			changes = append(changes, SnapshotChange{ProbeTool: k, Kind: ChangeCreated, StepIndex: stepIndex})
		case bok && !aok:
			changes = append(changes, SnapshotChange{ProbeTool: k, Kind: ChangeDeleted, StepIndex: stepIndex})
		case bok && aok && !reflect.DeepEqual(bv, av):
			changes = append(changes, SnapshotChange{ProbeTool: k, Kind: ChangeModified, StepIndex: stepIndex})
		}
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].ProbeTool < changes[j].ProbeTool })
	return changes
}
