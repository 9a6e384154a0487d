package errors

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Severity represents the severity of a layout problem
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

// String returns the string representation of the severity
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Problem is one finding about the course tree, reported by `syllabus check`.
type Problem struct {
	Course   string   `json:"course" yaml:"course"`
	File     string   `json:"file,omitempty" yaml:"file,omitempty"`
	Code     string   `json:"code" yaml:"code"`
	Message  string   `json:"message" yaml:"message"`
	Severity Severity `json:"-" yaml:"-"`
}

func (p Problem) Error() string {
	loc := p.Course
	if p.File != "" {
		loc += "/" + p.File
	}
	return fmt.Sprintf("%s: %s: %s", loc, p.Severity, p.Message)
}

// ErrorCollector collects problems found while walking the course tree.
type ErrorCollector struct {
	problems []Problem
	mutex    sync.RWMutex
}

// NewErrorCollector creates a new error collector
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{problems: make([]Problem, 0)}
}

// Add records a problem.
func (ec *ErrorCollector) Add(p Problem) {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.problems = append(ec.problems, p)
}

// AddError records err against a course. SyllabusError codes and files are
// carried over; other errors get ERR_INTERNAL.
func (ec *ErrorCollector) AddError(course string, err error) {
	if err == nil {
		return
	}
	p := Problem{Course: course, Code: ErrCodeInternalError, Message: err.Error(), Severity: SeverityError}
	var se *SyllabusError
	if As(err, &se) {
		p.Code = se.Code
		p.File = se.FilePath
		p.Message = se.Message
		if se.Cause != nil {
			p.Message += ": " + se.Cause.Error()
		}
	}
	ec.Add(p)
}

// Problems returns the collected problems ordered by course and file.
func (ec *ErrorCollector) Problems() []Problem {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()

	out := make([]Problem, len(ec.problems))
	copy(out, ec.problems)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Course != out[j].Course {
			return out[i].Course < out[j].Course
		}
		return out[i].File < out[j].File
	})
	return out
}

// HasErrors reports whether any problem has error severity.
func (ec *ErrorCollector) HasErrors() bool {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	for _, p := range ec.problems {
		if p.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Err returns nil when no error-severity problem was collected, otherwise a
// validation error summarising all of them.
func (ec *ErrorCollector) Err() error {
	if !ec.HasErrors() {
		return nil
	}
	problems := ec.Problems()
	lines := make([]string, 0, len(problems))
	for _, p := range problems {
		if p.Severity == SeverityError {
			lines = append(lines, p.Error())
		}
	}
	return NewValidationError("ERR_VALIDATION_FAILED",
		fmt.Sprintf("course layout has %d problem(s):\n  %s", len(lines), strings.Join(lines, "\n  ")))
}
