package upload

import "github.com/alkime/scribe/internal/audio"

// Status is the workflow's position in the upload lifecycle.
type Status int

const (
	// StatusIdle means no file has been selected yet.
	StatusIdle Status = iota
	// StatusReady means a file is selected and can be submitted.
	StatusReady
	// StatusSubmitting means a transcription request is in flight.
	StatusSubmitting
	// StatusSucceeded means the last submission produced a transcript.
	StatusSucceeded
	// StatusFailed means the last submission produced an error.
	StatusFailed
)

// String returns the human-readable name of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusReady:
		return "Ready"
	case StatusSubmitting:
		return "Submitting"
	case StatusSucceeded:
		return "Succeeded"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// State is an immutable snapshot of the workflow.
type State struct {
	Status Status
	// File is the selected file; meaningful only when HasFile is set.
	File    audio.File
	HasFile bool
	// Transcript is the result text; meaningful only in StatusSucceeded.
	Transcript string
	// Err is the last failure, validation or service, or nil.
	Err error
}

// FileName returns the selected file's display name, or "" when none is selected.
func (s State) FileName() string {
	if !s.HasFile {
		return ""
	}

	return s.File.Name
}

// Result returns the transcript and whether one is available.
func (s State) Result() (string, bool) {
	if s.Status != StatusSucceeded {
		return "", false
	}

	return s.Transcript, true
}

// Busy reports whether a request is in flight.
func (s State) Busy() bool {
	return s.Status == StatusSubmitting
}

// Event is an input to Reduce.
type Event interface {
	isEvent()
}

// FileSelected replaces the selected file.
type FileSelected struct {
	File audio.File
}

// SubmitStarted marks the start of a submission.
type SubmitStarted struct{}

// SubmitRejected records a submission that failed validation.
type SubmitRejected struct {
	Err error
}

// TranscriptionSucceeded delivers the service's transcript.
type TranscriptionSucceeded struct {
	Transcript string
}

// TranscriptionFailed delivers the service's failure.
type TranscriptionFailed struct {
	Err error
}

// SubmitCancelled abandons the in-flight submission.
type SubmitCancelled struct{}

func (FileSelected) isEvent()           {}
func (SubmitStarted) isEvent()          {}
func (SubmitRejected) isEvent()         {}
func (TranscriptionSucceeded) isEvent() {}
func (TranscriptionFailed) isEvent()    {}
func (SubmitCancelled) isEvent()        {}

// Reduce returns the state that follows s after ev. Events that are not
// valid in the current state leave it unchanged.
func Reduce(s State, ev Event) State {
	switch ev := ev.(type) {
	case FileSelected:
		return State{
			Status:  StatusReady,
			File:    ev.File,
			HasFile: true,
		}

	case SubmitStarted:
		if !s.HasFile {
			s.Err = ErrNoFileSelected
			return s
		}

		if s.Status == StatusSubmitting {
			return s
		}

		return State{
			Status:  StatusSubmitting,
			File:    s.File,
			HasFile: true,
		}

	case SubmitRejected:
		s.Err = ev.Err
		return s

	case TranscriptionSucceeded:
		if s.Status != StatusSubmitting {
			return s
		}

		s.Status = StatusSucceeded
		s.Transcript = ev.Transcript
		s.Err = nil

		return s

	case TranscriptionFailed:
		if s.Status != StatusSubmitting {
			return s
		}

		s.Status = StatusFailed
		s.Transcript = ""
		s.Err = ev.Err

		return s

	case SubmitCancelled:
		if s.Status != StatusSubmitting {
			return s
		}

		s.Status = StatusReady

		return s
	}

	return s
}
