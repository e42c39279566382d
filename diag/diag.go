// Package diag implements per-component bail latches and the located
// diagnostics they record.
package diag

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"sc2sx/model"
)

// Severity of a diagnostic.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// Kind classifies what went wrong.
type Kind int

const (
	UnsupportedSelector Kind = iota + 1
	UnsupportedInterpolation
	UnresolvedReference
	ConflictingCondition
	MalformedPattern
	// IgnoredSemantics marks input that was lowered but lost some meaning,
	// it never bails.
	IgnoredSemantics
)

var kindNames = map[Kind]string{
	UnsupportedSelector:      "UnsupportedSelector",
	UnsupportedInterpolation: "UnsupportedInterpolation",
	UnresolvedReference:      "UnresolvedReference",
	ConflictingCondition:     "ConflictingCondition",
	MalformedPattern:         "MalformedPattern",
	IgnoredSemantics:         "IgnoredSemantics",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Diagnostic is one located report. Shape carries the expression kind for
// UnsupportedInterpolation (call, identifier, member, arrow, unknown).
type Diagnostic struct {
	Severity  Severity
	Kind      Kind
	Component string
	Loc       model.Location
	Shape     string
	Context   string
}

func (d Diagnostic) String() string {
	var sb strings.Builder
	sb.WriteString(d.Loc.String())
	sb.WriteString(": ")
	sb.WriteString(d.Severity.String())
	sb.WriteString(": ")
	sb.WriteString(d.Kind.String())
	if d.Shape != "" {
		sb.WriteString("(" + d.Shape + ")")
	}
	if d.Component != "" {
		sb.WriteString(" in " + d.Component)
	}
	if d.Context != "" {
		sb.WriteString(": " + d.Context)
	}
	return sb.String()
}

// Sink is the ordered diagnostic list of one file.
type Sink struct {
	list []Diagnostic
}

// Add appends d.
func (s *Sink) Add(d Diagnostic) {
	s.list = append(s.list, d)
}

// All returns diagnostics in the order they were recorded.
func (s *Sink) All() []Diagnostic {
	return s.list
}

// Count returns number of diagnostics of given severity.
func (s *Sink) Count(sev Severity) int {
	n := 0
	for _, d := range s.list {
		if d.Severity == sev {
			n++
		}
	}
	return n
}

// Err folds error-severity diagnostics into a single error, nil if there
// are none.
func (s *Sink) Err() error {
	var err error
	for _, d := range s.list {
		if d.Severity == SeverityError {
			err = multierr.Append(err, errors.New(d.String()))
		}
	}
	return err
}

// Tracker is the bail latch of one component. The latch moves from active
// to bailed once and never back, diagnostics keep accumulating after that.
type Tracker struct {
	component string
	sink      *Sink
	log       *zap.Logger
	bailed    bool
}

// NewTracker returns an active tracker writing to sink.
func NewTracker(component string, sink *Sink, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{component: component, sink: sink, log: log}
}

// Component returns the name of the tracked component.
func (t *Tracker) Component() string {
	return t.component
}

// Bail trips the latch and records one error diagnostic for the event.
func (t *Tracker) Bail(kind Kind, loc model.Location, shape, context string) {
	if !t.bailed {
		t.log.Info("Component bailed",
			zap.String("component", t.component),
			zap.Stringer("kind", kind),
			zap.Stringer("location", loc),
			zap.String("context", context))
	}
	t.bailed = true
	t.sink.Add(Diagnostic{
		Severity:  SeverityError,
		Kind:      kind,
		Component: t.component,
		Loc:       loc,
		Shape:     shape,
		Context:   context,
	})
}

// Reject records an error diagnostic for one declaration left out of the
// lowering. The latch is not touched, the rest of the component proceeds.
func (t *Tracker) Reject(kind Kind, loc model.Location, shape, context string) {
	t.log.Info("Declaration rejected",
		zap.String("component", t.component),
		zap.Stringer("kind", kind),
		zap.Stringer("location", loc),
		zap.String("context", context))
	t.sink.Add(Diagnostic{
		Severity:  SeverityError,
		Kind:      kind,
		Component: t.component,
		Loc:       loc,
		Shape:     shape,
		Context:   context,
	})
}

// Warn records a diagnostic without touching the latch.
func (t *Tracker) Warn(kind Kind, loc model.Location, context string) {
	t.sink.Add(Diagnostic{
		Severity:  SeverityWarning,
		Kind:      kind,
		Component: t.component,
		Loc:       loc,
		Context:   context,
	})
}

// Bailed reports whether the latch has tripped.
func (t *Tracker) Bailed() bool {
	return t.bailed
}
