package route

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/gigaz-dev/walker/internal/game"
)

// Record is the persisted form of a leg. Coordinates are pointers so a
// missing field can be told apart from a zero.
type Record struct {
	X              *float64 `json:"x" yaml:"x"`
	Y              *float64 `json:"y" yaml:"y"`
	Z              *float64 `json:"z" yaml:"z"`
	Label          string   `json:"label,omitempty" yaml:"label,omitempty"`
	WaitMs         int      `json:"waitMs,omitempty" yaml:"waitMs,omitempty"`
	MaxAttempts    int      `json:"maxAttempts,omitempty" yaml:"maxAttempts,omitempty"`
	AttemptDelayMs *int     `json:"attemptDelayMs,omitempty" yaml:"attemptDelayMs,omitempty"`
}

func RecordFor(l Leg) Record {
	x, y, z := l.Goal.X, l.Goal.Y, l.Goal.Z
	r := Record{X: &x, Y: &y, Z: &z, Label: l.Label, WaitMs: int(l.DwellBefore / time.Millisecond)}
	if l.Policy != nil {
		d := int(l.Policy.AttemptDelay / time.Millisecond)
		r.MaxAttempts = l.Policy.MaxAttempts
		r.AttemptDelayMs = &d
	}
	return r
}

// Leg validates the record at position i and converts it.
func (r Record) Leg(i int) (Leg, error) {
	if r.X == nil || r.Y == nil || r.Z == nil {
		return Leg{}, fmt.Errorf("%w: waypoint %d is missing a coordinate", ErrMalformedRoute, i)
	}
	wp := game.NewWaypoint(*r.X, *r.Y, *r.Z)
	if !wp.Finite() {
		return Leg{}, fmt.Errorf("%w: waypoint %d has a non-finite coordinate", ErrMalformedRoute, i)
	}
	if r.WaitMs < 0 {
		return Leg{}, fmt.Errorf("%w: waypoint %d has negative waitMs", ErrMalformedRoute, i)
	}

	leg := Leg{Goal: wp, Label: r.Label, DwellBefore: time.Duration(r.WaitMs) * time.Millisecond}
	if r.MaxAttempts != 0 || r.AttemptDelayMs != nil {
		p := game.DefaultRetryPolicy
		if r.MaxAttempts != 0 {
			p.MaxAttempts = r.MaxAttempts
		}
		if r.AttemptDelayMs != nil {
			p.AttemptDelay = time.Duration(*r.AttemptDelayMs) * time.Millisecond
		}
		if err := p.Validate(); err != nil {
			return Leg{}, fmt.Errorf("%w: waypoint %d: %v", ErrMalformedRoute, i, err)
		}
		leg.Policy = &p
	}
	return leg, nil
}

func FromRecords(records []Record) (Route, error) {
	r := make(Route, 0, len(records))
	for i, rec := range records {
		leg, err := rec.Leg(i)
		if err != nil {
			return nil, err
		}
		r = append(r, leg)
	}
	return r, nil
}

var commentRe = regexp.MustCompile(`(?m)^\s*//.*$`)

// Parse decodes a JSON array of waypoint records. Whole-line // comments are
// allowed; string values are left untouched.
func Parse(data []byte) (Route, error) {
	data = commentRe.ReplaceAll(data, nil)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedRoute)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	var records []Record
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRoute, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after waypoint list", ErrMalformedRoute)
	}
	return FromRecords(records)
}

// FileSource reads the route from a JSON file each time a session starts.
type FileSource struct {
	Path string
}

func (f FileSource) Load(context.Context) (Route, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrMalformedRoute, f.Path, err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	return r, nil
}

// Encode renders a route in the format Parse reads.
func Encode(r Route) ([]byte, error) {
	records := make([]Record, 0, len(r))
	for _, l := range r {
		records = append(records, RecordFor(l))
	}
	return json.MarshalIndent(records, "", "  ")
}
