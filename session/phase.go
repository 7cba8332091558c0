package session

// Phase is the externally observable session state. One live value per
// process, owned by the Controller and mutated only on its run loop.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseListening
	PhaseTranscribing
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseListening:
		return "listening"
	case PhaseTranscribing:
		return "transcribing"
	default:
		return "unknown"
	}
}

func (p Phase) IsRecording() bool { return p == PhaseListening }

func (p Phase) IsTranscribing() bool { return p == PhaseTranscribing }

// Trigger identifies which path ended a recording.
type Trigger int

const (
	TriggerManualRelease Trigger = iota
	TriggerAutoSilence
	TriggerMaxDuration
)

func (t Trigger) String() string {
	switch t {
	case TriggerManualRelease:
		return "manual_release"
	case TriggerAutoSilence:
		return "auto_silence"
	case TriggerMaxDuration:
		return "max_duration"
	default:
		return "unknown"
	}
}
