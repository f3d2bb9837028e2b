// Package playback animates a camera along interpreted commands, one frame tick at a time.
package playback

import "fmt"

// Status is the single source of truth for where playback is.
type Status int

const (
	StatusIdle Status = iota
	StatusGenerating
	StatusReady
	StatusPlaying
	StatusPaused
	StatusComplete
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusGenerating:
		return "generating"
	case StatusReady:
		return "ready"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusComplete:
		return "complete"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type event int

const (
	eventGenerate event = iota
	eventReady
	eventPlay
	eventPause
	eventSeek
	eventComplete
	eventStop
	eventReset
)

var eventNames = [...]string{"generate", "ready", "play", "pause", "seek", "complete", "stop", "reset"}

func (e event) String() string { return eventNames[e] }

// transition is the only place a status changes.
func transition(from Status, ev event, hasCommands bool) (Status, error) {
	switch ev {
	case eventGenerate:
		if from == StatusPlaying {
			return from, fmt.Errorf("cannot generate while playing")
		}
		return StatusGenerating, nil
	case eventReady:
		if from == StatusPlaying {
			return from, fmt.Errorf("cannot load commands while playing")
		}
		return StatusReady, nil
	case eventPlay:
		switch from {
		case StatusReady, StatusPaused, StatusComplete:
			return StatusPlaying, nil
		}
	case eventPause:
		switch from {
		case StatusPlaying, StatusPaused:
			return StatusPaused, nil
		}
	case eventSeek:
		switch from {
		case StatusReady, StatusPaused:
			return from, nil
		case StatusComplete:
			return StatusPaused, nil
		}
	case eventComplete:
		if from == StatusPlaying {
			return StatusComplete, nil
		}
	case eventStop:
		if hasCommands {
			return StatusReady, nil
		}
		return StatusIdle, nil
	case eventReset:
		return StatusIdle, nil
	}
	return from, fmt.Errorf("cannot %s while %s", ev, from)
}

// State is a snapshot of the controller.
type State struct {
	Status    Status  `json:"status"`
	Progress  float64 `json:"progress"` // 0..100
	Speed     float64 `json:"speed"`
	Command   int     `json:"command"`
	Recording bool    `json:"recording"`
}
