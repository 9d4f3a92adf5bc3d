package config

import (
	"fmt"
	"strings"
)

// What to do when a single canvas cannot be exported.
// ENUM(abort, mark)
type FailurePolicy int

const (
	// FailurePolicyAbort stops whole export on first failed canvas.
	FailurePolicyAbort FailurePolicy = iota
	// FailurePolicyMark replaces failed canvas with a marker comment.
	FailurePolicyMark
)

var failurePolicyNames = []string{"abort", "mark"}

func (x FailurePolicy) String() string {
	if x >= 0 && int(x) < len(failurePolicyNames) {
		return failurePolicyNames[x]
	}
	return fmt.Sprintf("FailurePolicy(%d)", x)
}

// FailurePolicyNames returns a list of possible string values of FailurePolicy.
func FailurePolicyNames() []string {
	tmp := make([]string, len(failurePolicyNames))
	copy(tmp, failurePolicyNames)
	return tmp
}

// IsValid provides a quick way to determine if the typed value is part of
// the allowed enumerated values.
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
	return FailurePolicy(0), fmt.Errorf("%s is not a valid FailurePolicy, try [%s]", name, strings.Join(failurePolicyNames, ", "))
}

// MarshalText implements the text marshaller method.
func (x FailurePolicy) MarshalText() ([]byte, error) {
	return []byte(x.String()), nil
}

// UnmarshalText implements the text unmarshaller method.
func (x *FailurePolicy) UnmarshalText(text []byte) error {
	tmp, err := ParseFailurePolicy(string(text))
	if err != nil {
		return err
	}
	*x = tmp
	return nil
}

// How declarations for axis paired utilities (mx, my, px, py) are written.
// ENUM(split, joined)
type AxisPairs int

const (
	// AxisPairsSplit writes one declaration per property.
	AxisPairsSplit AxisPairs = iota
	// AxisPairsJoined writes both properties before single shared value.
	AxisPairsJoined
)

var axisPairsNames = []string{"split", "joined"}

func (x AxisPairs) String() string {
	if x >= 0 && int(x) < len(axisPairsNames) {
		return axisPairsNames[x]
	}
	return fmt.Sprintf("AxisPairs(%d)", x)
}

// AxisPairsNames returns a list of possible string values of AxisPairs.
func AxisPairsNames() []string {
	tmp := make([]string, len(axisPairsNames))
	copy(tmp, axisPairsNames)
	return tmp
}

// IsValid provides a quick way to determine if the typed value is part of
// the allowed enumerated values.
func (x AxisPairs) IsValid() bool {
	return x >= 0 && int(x) < len(axisPairsNames)
}

// ParseAxisPairs attempts to convert a string to a AxisPairs.
func ParseAxisPairs(name string) (AxisPairs, error) {
	for i, n := range axisPairsNames {
		if strings.EqualFold(n, name) {
			return AxisPairs(i), nil
		}
	}
	return AxisPairs(0), fmt.Errorf("%s is not a valid AxisPairs, try [%s]", name, strings.Join(axisPairsNames, ", "))
}

// MarshalText implements the text marshaller method.
func (x AxisPairs) MarshalText() ([]byte, error) {
	return []byte(x.String()), nil
}

// UnmarshalText implements the text unmarshaller method.
func (x *AxisPairs) UnmarshalText(text []byte) error {
	tmp, err := ParseAxisPairs(string(text))
	if err != nil {
		return err
	}
	*x = tmp
	return nil
}
