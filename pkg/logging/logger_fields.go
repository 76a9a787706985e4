package logging

import (
	"time"
)

func String(key, value string) Field          { return Field{Key: key, Value: value} }
func Int(key string, value int) Field         { return Field{Key: key, Value: value} }
func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field       { return Field{Key: key, Value: value} }
func Any(key string, value any) Field         { return Field{Key: key, Value: value} }

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Domain fields

func Component(name string) Field   { return String("component", name) }
func RunID(id string) Field         { return String("run_id", id) }
func Skill(label string) Field      { return String("skill", label) }
func Model(kind string) Field       { return String("model", kind) }
func Strategy(name string) Field    { return String("strategy", name) }
func Probability(p float64) Field   { return Float64("probability", p) }
func Iterations(n int) Field        { return Int("iterations", n) }
func States(n int) Field            { return Int("states", n) }
func Count(n int) Field             { return Int("count", n) }
func Path(p string) Field           { return String("path", p) }
func Latency(d time.Duration) Field { return Duration("latency", d) }
