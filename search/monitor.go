package search

import (
	"time"

	"github.com/poiesic/policygraph/core"
)

// SearchMonitor provides hooks to observe the search process.
// AfterGraph and AfterVector may be called concurrently; implementations
// must be safe for concurrent use.
type SearchMonitor interface {
	Start(requestID string, q Query)
	AfterGraph(requestID string, hits []Hit, elapsed time.Duration)
	AfterVector(requestID string, hits []Hit, elapsed time.Duration)
	AfterRank(requestID string, results []RankedResult)
	AfterExpand(requestID string, refs []*core.Clause)
	Finish(requestID string, resp *Response, elapsed time.Duration)
	Failed(requestID string, err error, elapsed time.Duration)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = noopMonitor{}

func (noopMonitor) Start(string, Query)                      {}
func (noopMonitor) AfterGraph(string, []Hit, time.Duration)  {}
func (noopMonitor) AfterVector(string, []Hit, time.Duration) {}
func (noopMonitor) AfterRank(string, []RankedResult)         {}
func (noopMonitor) AfterExpand(string, []*core.Clause)       {}
func (noopMonitor) Finish(string, *Response, time.Duration)  {}
func (noopMonitor) Failed(string, error, time.Duration)      {}

// Stage names a step of a search.
type Stage string

const (
	StageStart  Stage = "start"
	StageGraph  Stage = "graph"
	StageVector Stage = "vector"
	StageRank   Stage = "rank"
	StageExpand Stage = "expand"
	StageFinish Stage = "finish"
	StageFailed Stage = "failed"
)

// Event reports the completion of a search stage.
type Event struct {
	RequestID string
	Stage     Stage
	Count     int           // Items produced by the stage
	Elapsed   time.Duration // Time since the stage (or search) started
	Err       error         // Set for StageFailed
}

// EventMonitor publishes stage events on a buffered channel. Sends never
// block the search; events are dropped when the buffer is full.
type EventMonitor struct {
	events chan Event
}

var _ SearchMonitor = (*EventMonitor)(nil)

// NewEventMonitor creates an event monitor with the given buffer size.
func NewEventMonitor(buffer int) *EventMonitor {
	return &EventMonitor{events: make(chan Event, max(buffer, 0))}
}

// Events returns the receive side of the event channel.
func (m *EventMonitor) Events() <-chan Event {
	return m.events
}

func (m *EventMonitor) emit(e Event) {
	select {
	case m.events <- e:
	default:
	}
}

func (m *EventMonitor) Start(id string, _ Query) {
	m.emit(Event{RequestID: id, Stage: StageStart})
}

func (m *EventMonitor) AfterGraph(id string, hits []Hit, elapsed time.Duration) {
	m.emit(Event{RequestID: id, Stage: StageGraph, Count: len(hits), Elapsed: elapsed})
}

func (m *EventMonitor) AfterVector(id string, hits []Hit, elapsed time.Duration) {
	m.emit(Event{RequestID: id, Stage: StageVector, Count: len(hits), Elapsed: elapsed})
}

func (m *EventMonitor) AfterRank(id string, results []RankedResult) {
	m.emit(Event{RequestID: id, Stage: StageRank, Count: len(results)})
}

func (m *EventMonitor) AfterExpand(id string, refs []*core.Clause) {
	m.emit(Event{RequestID: id, Stage: StageExpand, Count: len(refs)})
}

func (m *EventMonitor) Finish(id string, resp *Response, elapsed time.Duration) {
	count := 0
	if resp != nil {
		count = len(resp.Results)
	}
	m.emit(Event{RequestID: id, Stage: StageFinish, Count: count, Elapsed: elapsed})
}

func (m *EventMonitor) Failed(id string, err error, elapsed time.Duration) {
	m.emit(Event{RequestID: id, Stage: StageFailed, Elapsed: elapsed, Err: err})
}

// multiMonitor fans callbacks out to several monitors in order.
type multiMonitor []SearchMonitor

// Monitors combines several monitors into one. Nil monitors are skipped.
func Monitors(monitors ...SearchMonitor) SearchMonitor {
	var m multiMonitor
	for _, mon := range monitors {
		if mon != nil {
			m = append(m, mon)
		}
	}
	switch len(m) {
	case 0:
		return noopMonitor{}
	case 1:
		return m[0]
	}
	return m
}

func (m multiMonitor) Start(id string, q Query) {
	for _, mon := range m {
		mon.Start(id, q)
	}
}

func (m multiMonitor) AfterGraph(id string, hits []Hit, elapsed time.Duration) {
	for _, mon := range m {
		mon.AfterGraph(id, hits, elapsed)
	}
}

func (m multiMonitor) AfterVector(id string, hits []Hit, elapsed time.Duration) {
	for _, mon := range m {
		mon.AfterVector(id, hits, elapsed)
	}
}

func (m multiMonitor) AfterRank(id string, results []RankedResult) {
	for _, mon := range m {
		mon.AfterRank(id, results)
	}
}

func (m multiMonitor) AfterExpand(id string, refs []*core.Clause) {
	for _, mon := range m {
		mon.AfterExpand(id, refs)
	}
}

func (m multiMonitor) Finish(id string, resp *Response, elapsed time.Duration) {
	for _, mon := range m {
		mon.Finish(id, resp, elapsed)
	}
}

func (m multiMonitor) Failed(id string, err error, elapsed time.Duration) {
	for _, mon := range m {
		mon.Failed(id, err, elapsed)
	}
}
