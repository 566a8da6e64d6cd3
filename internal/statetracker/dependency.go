package statetracker

// StepExecution is the minimal view of one executed workflow step the
// dependency inferer needs: which tool ran, and what it was classified
// as. Kept local rather than importing the workflow package so
// statetracker has no dependency on the orchestration layer above it.
type StepExecution struct {
	StepIndex      int
	ToolName       string
	Classification Classification
}

// DependencyEdge records that consumerStep read state of a given type
// that producerStep most recently wrote, and whether a snapshot actually
// observed that write take effect.
type DependencyEdge struct {
	ProducerStep int
	ConsumerStep int
	StateType    StateType
	Verified     bool
}

// InferDependencies walks steps in order, tracking the most recent writer
// of each state type, and emits an edge whenever a later reader overlaps
// a state type with an earlier writer. probeStateTypes maps each probe
// tool name to the state types its classification inferred, and changes
// is every snapshot diff observed across the run (already attributed to
// the step index that produced it) — together they decide whether an
// edge is verified: the producer step must have caused at least one
// snapshot change in that state type.
func InferDependencies(steps []StepExecution, changes []SnapshotChange, probeStateTypes map[string][]StateType) []DependencyEdge {
	changedByStep := changedStateTypesByStep(changes, probeStateTypes)

	recentWriter := make(map[StateType]int)
	var edges []DependencyEdge

	for _, step := range steps {
		if step.Classification.Role == RoleReader || step.Classification.Role == RoleBoth {
			for _, st := range step.Classification.StateTypes {
				producer, ok := recentWriter[st]
				if !ok || producer >= step.StepIndex {
					continue
				}
				edges = append(edges, DependencyEdge{
					ProducerStep: producer,
					ConsumerStep: step.StepIndex,
					StateType:    st,
					Verified:     stateTypeChanged(changedByStep, producer, st),
				})
			}
		}
		if step.Classification.Role == RoleWriter || step.Classification.Role == RoleBoth {
			for _, st := range step.Classification.StateTypes {
				recentWriter[st] = step.StepIndex
			}
		}
	}

	return edges
}

func changedStateTypesByStep(changes []SnapshotChange, probeStateTypes map[string][]StateType) map[int]map[StateType]bool {
	out := make(map[int]map[StateType]bool)
	for _, c := range changes {
		for _, st := range probeStateTypes[c.ProbeTool] {
			if out[c.StepIndex] == nil {
				out[c.StepIndex] = make(map[StateType]bool)
			}
			out[c.StepIndex][st] = true
		}
	}
	return out
}

func stateTypeChanged(changedByStep map[int]map[StateType]bool, stepIndex int, st StateType) bool {
	return changedByStep[stepIndex][st]
}
