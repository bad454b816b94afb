package domain

// Stage is the position of a run in the pipeline.
// A run at a stage is waiting for that stage's work to complete.
type Stage string

// Pipeline stages in execution order.
const (
	// StageIdle means no run has been started. Document text may be loaded.
	StageIdle Stage = "idle"

	// StageParsing extracts the requirement set from the document text.
	StageParsing Stage = "parsing"

	// StageRetrieving gathers knowledge matching the requirements.
	StageRetrieving Stage = "retrieving"

	// StageDrafting writes the response draft.
	StageDrafting Stage = "drafting"

	// StageReviewing reviews the draft against the requirements.
	StageReviewing Stage = "reviewing"

	// StageDone means every entity has been produced.
	StageDone Stage = "done"
)

// AgentStages lists the stages that call the language model, in order.
var AgentStages = []Stage{StageParsing, StageRetrieving, StageDrafting, StageReviewing}

// IsValid returns true if the stage is recognised.
func (s Stage) IsValid() bool {
	switch s {
	case StageIdle, StageParsing, StageRetrieving, StageDrafting, StageReviewing, StageDone:
		return true
	default:
		return false
	}
}

// Next returns the stage that follows s. Done is terminal.
func (s Stage) Next() Stage {
	switch s {
	case StageIdle:
		return StageParsing
	case StageParsing:
		return StageRetrieving
	case StageRetrieving:
		return StageDrafting
	case StageDrafting:
		return StageReviewing
	case StageReviewing, StageDone:
		return StageDone
	default:
		return StageIdle
	}
}

// Index returns the zero-based position of an agent stage, or -1.
func (s Stage) Index() int {
	for i, st := range AgentStages {
		if st == s {
			return i
		}
	}
	return -1
}

// IsAgent returns true if the stage calls the language model.
func (s Stage) IsAgent() bool {
	return s.Index() >= 0
}

// String returns the string representation.
func (s Stage) String() string {
	return string(s)
}

// Label returns the display name of the agent that runs the stage.
func (s Stage) Label() string {
	switch s {
	case StageParsing:
		return "Document Parser Agent"
	case StageRetrieving:
		return "Knowledge Retrieval Agent"
	case StageDrafting:
		return "Response Generator Agent"
	case StageReviewing:
		return "Quality Control Agent"
	case StageIdle:
		return "Idle"
	case StageDone:
		return "Complete"
	default:
		return unknownDescription
	}
}

// Activity describes the work done while the stage runs.
func (s Stage) Activity() string {
	switch s {
	case StageParsing:
		return "Analyzing RFP document and extracting key requirements..."
	case StageRetrieving:
		return "Searching company knowledge base for relevant information..."
	case StageDrafting:
		return "Creating draft response sections based on requirements and knowledge..."
	case StageReviewing:
		return "Reviewing generated response for completeness and compliance..."
	default:
		return ""
	}
}

// StageStatus is the display state of one agent stage within a run.
type StageStatus string

// Agent stage display states.
const (
	StatusPending  StageStatus = "pending"
	StatusWorking  StageStatus = "working"
	StatusComplete StageStatus = "complete"
	StatusFailed   StageStatus = "failed"
)
