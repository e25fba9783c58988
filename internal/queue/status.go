// Package queue derives the unified download queue status shown on the More tab.
package queue

import (
	"encoding/json"
	"fmt"
)

// Kind is the tag of a Status.
type Kind int

const (
	// KindStopped means nothing is queued in either subsystem.
	KindStopped Kind = iota
	// KindPaused means items are queued but nothing is being downloaded.
	KindPaused
	// KindDownloading means items are queued and at least one subsystem is working.
	KindDownloading
)

func (k Kind) String() string {
	switch k {
	case KindStopped:
		return "stopped"
	case KindPaused:
		return "paused"
	case KindDownloading:
		return "downloading"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func parseKind(s string) (Kind, error) {
	switch s {
	case "stopped":
		return KindStopped, nil
	case "paused":
		return KindPaused, nil
	case "downloading":
		return KindDownloading, nil
	}
	return KindStopped, fmt.Errorf("unknown queue state %q", s)
}

// Status is the combined queue state. Pending is always zero for KindStopped.
type Status struct {
	Kind    Kind
	Pending int
}

func Stopped() Status { return Status{Kind: KindStopped} }

func Paused(pending int) Status { return Status{Kind: KindPaused, Pending: pending} }

func Downloading(pending int) Status { return Status{Kind: KindDownloading, Pending: pending} }

func (s Status) String() string {
	if s.Kind == KindStopped {
		return s.Kind.String()
	}
	return fmt.Sprintf("%s(%d)", s.Kind, s.Pending)
}

// Compute combines the running flags and queue sizes of two subsystems.
func Compute(runningA bool, sizeA int, runningB bool, sizeB int) Status {
	pending := max(sizeA, 0) + max(sizeB, 0)
	switch {
	case pending == 0:
		return Stopped()
	case runningA || runningB:
		return Downloading(pending)
	default:
		return Paused(pending)
	}
}

type statusJSON struct {
	State   string `json:"state"`
	Pending int    `json:"pending"`
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(statusJSON{State: s.Kind.String(), Pending: s.Pending})
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw statusJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	kind, err := parseKind(raw.State)
	if err != nil {
		return err
	}
	if kind == KindStopped {
		raw.Pending = 0
	}
	*s = Status{Kind: kind, Pending: raw.Pending}
	return nil
}
