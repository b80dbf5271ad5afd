package domain

// TrainingState tracks the remote engine as seen by the gateway.
type TrainingState int32

const (
	StateUntrained TrainingState = iota
	StateTraining
	StateTrained
)

var trainingStateLabels = map[TrainingState]string{
	StateUntrained: "untrained",
	StateTraining:  "training",
	StateTrained:   "trained",
}

func (s TrainingState) String() string {
	if label, ok := trainingStateLabels[s]; ok {
		return label
	}
	return "unknown"
}

// StateUnavailable is reported when no engine instance exists.
const StateUnavailable = "unavailable"
