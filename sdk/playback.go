package sage

import (
	"sync"
	"time"

	"github.com/sagepoint-analytics/sage-go/pkg/core/audio"
)

// playbackQueue schedules decoded model audio so that chunks play
// back-to-back in arrival order. Chunks arrive faster than real time, so
// each one is scheduled at the tail of the previous chunk rather than
// immediately.
type playbackQueue struct {
	sink PlaybackSink
	now  func() time.Time

	mu        sync.Mutex
	nextStart time.Time
	seq       int64
	active    map[int64]*time.Timer
}

func newPlaybackQueue(sink PlaybackSink) *playbackQueue {
	return &playbackQueue{
		sink:   sink,
		now:    time.Now,
		active: map[int64]*time.Timer{},
	}
}

// Schedule queues buf to play when the previously scheduled audio ends.
func (q *playbackQueue) Schedule(buf *audio.Buffer) {
	if buf == nil || len(buf.Samples) == 0 {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	start := q.now()
	if q.nextStart.After(start) {
		start = q.nextStart
	}
	q.nextStart = start.Add(buf.Duration())

	id := q.seq
	q.seq++
	delay := start.Sub(q.now())
	if delay < 0 {
		delay = 0
	}
	q.active[id] = time.AfterFunc(delay, func() {
		if q.sink != nil {
			q.sink.Play(buf)
		}
		q.mu.Lock()
		delete(q.active, id)
		q.mu.Unlock()
	})
}

// Reset cancels all pending audio. Used when the model is interrupted by
// the user and on teardown.
func (q *playbackQueue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for id, t := range q.active {
		t.Stop()
		delete(q.active, id)
	}
	q.nextStart = time.Time{}
}
