package config

import (
	"errors"
	"fmt"
	"strings"
)

// Specification of requested diagnostics output.
type OutputFormat int

const (
	OutputFormatText OutputFormat = iota
	OutputFormatCheckstyle
	OutputFormatSummary
)

var ErrInvalidOutputFormat = errors.New("not a valid OutputFormat")

var outputFormatNames = []string{"text", "checkstyle", "summary"}

// OutputFormatNames returns a list of possible string values of OutputFormat.
func OutputFormatNames() []string {
	return append([]string(nil), outputFormatNames...)
}

func (x OutputFormat) String() string {
	if x.IsValid() {
		return outputFormatNames[x]
	}
	return fmt.Sprintf("OutputFormat(%d)", int(x))
}

func (x OutputFormat) IsValid() bool {
	return x >= 0 && int(x) < len(outputFormatNames)
}

// ParseOutputFormat attempts to convert a string to an OutputFormat.
func ParseOutputFormat(name string) (OutputFormat, error) {
	for i, n := range outputFormatNames {
		if strings.EqualFold(n, name) {
			return OutputFormat(i), nil
		}
	}
	return OutputFormat(0), fmt.Errorf("%s is %w", name, ErrInvalidOutputFormat)
}

func (x OutputFormat) MarshalText() ([]byte, error) {
	return []byte(x.String()), nil
}

func (x *OutputFormat) UnmarshalText(text []byte) error {
	tmp, err := ParseOutputFormat(string(text))
	if err != nil {
		return err
	}
	*x = tmp
	return nil
}

// Specification of when diagnostics fail the run.
type FailurePolicy int

const (
	FailurePolicyNever FailurePolicy = iota
	FailurePolicyError
	FailurePolicyWarning
)

var ErrInvalidFailurePolicy = errors.New("not a valid FailurePolicy")

var failurePolicyNames = []string{"never", "error", "warning"}

// FailurePolicyNames returns a list of possible string values of FailurePolicy.
func FailurePolicyNames() []string {
	return append([]string(nil), failurePolicyNames...)
}

func (x FailurePolicy) String() string {
	if x.IsValid() {
		return failurePolicyNames[x]
	}
	return fmt.Sprintf("FailurePolicy(%d)", int(x))
}

func (x FailurePolicy) IsValid() bool {
	return x >= 0 && int(x) < len(failurePolicyNames)
}

// ParseFailurePolicy attempts to convert a string to a FailurePolicy.
func ParseFailurePolicy(name string) (FailurePolicy, error) {
	for i, n := range failurePolicyNames {
		if strings.EqualFold(n, name) {
			return FailurePolicy(i), nil
		}
	}
	return FailurePolicy(0), fmt.Errorf("%s is %w", name, ErrInvalidFailurePolicy)
}

func (x FailurePolicy) MarshalText() ([]byte, error) {
	return []byte(x.String()), nil
}

func (x *FailurePolicy) UnmarshalText(text []byte) error {
	tmp, err := ParseFailurePolicy(string(text))
	if err != nil {
		return err
	}
	*x = tmp
	return nil
}

// Fails reports whether the counted diagnostics fail the run.
func (x FailurePolicy) Fails(errs, warnings int) bool {
	switch x {
	case FailurePolicyError:
		return errs > 0
	case FailurePolicyWarning:
		return errs > 0 || warnings > 0
	default:
		return false
	}
}
