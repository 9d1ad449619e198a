// Package logtest records logiface events so tests can assert on them.
package logtest

import (
	"sync"

	"github.com/joeycumines/logiface"
)

// Record is one captured log event.
type Record struct {
	Fields map[string]any
	Msg    string
	Level  logiface.Level
}

// Recorder collects Records. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	records []Record
}

type event struct {
	logiface.UnimplementedEvent
	fields map[string]any
	msg    string
	level  logiface.Level
}

func (e *event) Level() logiface.Level { return e.level }

func (e *event) AddField(key string, val any) { e.fields[key] = val }

func (e *event) AddMessage(msg string) bool {
	e.msg = msg
	return true
}

func (e *event) AddError(err error) bool {
	e.fields["err"] = err
	return true
}

// New returns a recorder and a debug-level logger writing into it.
func New() (*Recorder, *logiface.Logger[logiface.Event]) {
	r := &Recorder{}
	logger := logiface.New[*event](
		logiface.WithEventFactory[*event](logiface.NewEventFactoryFunc(func(level logiface.Level) *event {
			return &event{level: level, fields: make(map[string]any)}
		})),
		logiface.WithWriter[*event](logiface.NewWriterFunc(func(e *event) error {
			r.mu.Lock()
			r.records = append(r.records, Record{Level: e.level, Msg: e.msg, Fields: e.fields})
			r.mu.Unlock()
			return nil
		})),
		logiface.WithLevel[*event](logiface.LevelDebug),
	)
	return r, logger.Logger()
}

// Records returns a copy of everything captured so far.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Record(nil), r.records...)
}

// Messages returns the captured messages in order.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.records))
	for i, rec := range r.records {
		out[i] = rec.Msg
	}
	return out
}
