package logging

import "sync"

// Recorder keeps entries in memory. Tests use it to assert that a failure
// was logged at the expected level.
type Recorder struct {
	mu      *sync.Mutex
	entries *[]RecordedEntry
	fields  []Field
	level   Level
}

// RecordedEntry is one captured call
type RecordedEntry struct {
	Level   Level
	Message string
	Fields  map[string]any
}

// NewRecorder captures entries at or above DebugLevel
func NewRecorder() *Recorder {
	return &Recorder{mu: &sync.Mutex{}, entries: &[]RecordedEntry{}}
}

func (r *Recorder) record(level Level, msg string, fields []Field) {
	if level < r.level {
		return
	}
	m := make(map[string]any, len(r.fields)+len(fields))
	for _, f := range r.fields {
		m[f.Key] = f.Value
	}
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	r.mu.Lock()
	*r.entries = append(*r.entries, RecordedEntry{Level: level, Message: msg, Fields: m})
	r.mu.Unlock()
}

func (r *Recorder) Debug(msg string, fields ...Field) { r.record(DebugLevel, msg, fields) }
func (r *Recorder) Info(msg string, fields ...Field)  { r.record(InfoLevel, msg, fields) }
func (r *Recorder) Warn(msg string, fields ...Field)  { r.record(WarnLevel, msg, fields) }
func (r *Recorder) Error(msg string, fields ...Field) { r.record(ErrorLevel, msg, fields) }

func (r *Recorder) With(fields ...Field) Logger {
	child := *r
	child.fields = append(append([]Field(nil), r.fields...), fields...)
	return &child
}

func (r *Recorder) SetLevel(level Level) { r.level = level }
func (r *Recorder) GetLevel() Level      { return r.level }

// Entries returns a snapshot of everything recorded so far
func (r *Recorder) Entries() []RecordedEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RecordedEntry(nil), (*r.entries)...)
}

// AtLevel returns the recorded entries with exactly the given level
func (r *Recorder) AtLevel(level Level) []RecordedEntry {
	var out []RecordedEntry
	for _, e := range r.Entries() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}
