package orchestrator

import (
	"errors"
	"time"

	"github.com/maastricht-university/datecoach-analytics/chemistry"
	"github.com/maastricht-university/datecoach-analytics/emotion"
	"github.com/maastricht-university/datecoach-analytics/report"
	"github.com/maastricht-university/datecoach-analytics/segment"
	"github.com/maastricht-university/datecoach-analytics/signals"
)

var (
	ErrNotStarted         = errors.New("session not started")
	ErrAlreadyStarted     = errors.New("session already started")
	ErrSessionEnded       = errors.New("session ended")
	ErrOutOfOrder         = errors.New("event precedes last admitted event")
	ErrUnknownParticipant = errors.New("unknown participant")
)

type eventKind int

const (
	evSample eventKind = iota
	evUtterance
	evTick
	evEnd
)

// event is the only way state changes; the loop applies them one at a time.
type event struct {
	kind    eventKind
	at      time.Time
	sample  emotion.Sample
	speaker emotion.Participant
	text    string
	reply   chan error
}

type state int

const (
	idle state = iota
	running
	ended
)

// Bundle is the full record of a session as of one instant.
type Bundle struct {
	SessionID string                   `json:"session_id"`
	StartedAt time.Time                `json:"started_at"`
	EndedAt   time.Time                `json:"ended_at,omitempty"`
	History   []signals.Snapshot       `json:"history"`
	Segments  []segment.Segment        `json:"segments"`
	Series    chemistry.Series         `json:"chemistry"`
	Report    report.PerformanceReport `json:"report"`
}
