// Package pipeline runs the download run: a fetcher walking the post
// feed, a post-worker pool processing posts, and an event queue the
// front end consumes.
package pipeline

import (
	"sync"

	"github.com/KJHJason/Kemono-Harvester-CLI/links"
	"github.com/KJHJason/Kemono-Harvester-CLI/session"
)

type Event interface{ isEvent() }

// LogEvent is a progress log line for the console.
type LogEvent struct {
	Level   int
	Message string
}

// TotalsEvent updates the overall "X of Y posts" display. Total keeps
// growing while the fetcher is still walking pages.
type TotalsEvent struct {
	Total     int
	Processed int
}

// LinkEvent reports one external link found in a post body.
type LinkEvent struct {
	Link *links.ExternalLink
}

// MissedPostEvent reports a post dropped by the character filter or a
// skip word, so the user can audit what was excluded.
type MissedPostEvent struct {
	PostId    string
	PostTitle string
	Reason    string
}

// FileDownloadedEvent reports one file saved to disk.
type FileDownloadedEvent struct {
	Entry session.DownloadedFile
}

// PostProcessedEvent reports one finished post for the history store.
type PostProcessedEvent struct {
	Entry session.ProcessedPost
}

// FailuresEvent carries the per-post failure lists.
type FailuresEvent struct {
	Retryable []session.FailedFile
	Permanent []session.FailedFile
}

// FinishedEvent is the terminal event of a run.
type FinishedEvent struct {
	Downloaded        int
	Skipped           int
	Cancelled         bool
	KeptOriginalNames bool
}

func (LogEvent) isEvent()            {}
func (TotalsEvent) isEvent()         {}
func (LinkEvent) isEvent()           {}
func (MissedPostEvent) isEvent()     {}
func (FileDownloadedEvent) isEvent() {}
func (PostProcessedEvent) isEvent()  {}
func (FailuresEvent) isEvent()       {}
func (FinishedEvent) isEvent()       {}

const eventQueueSize = 256

// Queue is the bounded event channel between workers and the consumer.
// Publish blocks when the consumer falls behind, which keeps memory
// bounded on huge feeds.
type Queue struct {
	ch        chan Event
	closeOnce sync.Once
}

func NewQueue() *Queue {
	return &Queue{ch: make(chan Event, eventQueueSize)}
}

func (q *Queue) Publish(event Event) {
	q.ch <- event
}

// Events is the receive side for the consumer goroutine.
func (q *Queue) Events() <-chan Event {
	return q.ch
}

// Close ends the stream; safe to call more than once.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.ch) })
}
