package guiprocess

import "fmt"

// State is the lifecycle position of a Process.
//
//	NotStarted --Start--> Starting --started--> Running --finished--> Finished
//	                      Starting --FailedToStart--> Errored
//	NotStarted --StartDetached ok--> Running
//	NotStarted --StartDetached failed--> Errored
//
// Finished and Errored accept a new Start.
type State int

const (
	NotStarted State = iota
	Starting
	Running
	Finished
	Errored
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Finished:
		return "finished"
	case Errored:
		return "errored"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Done reports whether the attempt has ended.
func (s State) Done() bool {
	return s == Finished || s == Errored
}
