package evaldb

import (
	"errors"
	"fmt"
	"strings"
)

// ParseError reports text that is not valid JSON or is not a complete record.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid record: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid record: %s", e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SchemaMismatchError reports a flattened record whose keys do not match the
// columns already established for its experiment.
type SchemaMismatchError struct {
	Experiment string
	Missing    []string // Established columns the record does not provide
	Extra      []string // Columns the record provides that are not established (strict mode only)
}

func (e *SchemaMismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing columns "+strings.Join(e.Missing, ", "))
	}
	if len(e.Extra) > 0 {
		parts = append(parts, "unexpected columns "+strings.Join(e.Extra, ", "))
	}
	return fmt.Sprintf("record does not match columns of experiment '%s': %s", e.Experiment, strings.Join(parts, "; "))
}

// KeyCollisionError reports a key that appears in more than one of a record's
// maps, or a map that uses the reserved "information" key.
type KeyCollisionError struct {
	Key    string
	First  string // Section that defined the key first
	Second string // Section that defined it again
}

func (e *KeyCollisionError) Error() string {
	if e.Key == InformationKey {
		return fmt.Sprintf("key '%s' in %s is reserved", e.Key, e.Second)
	}
	return fmt.Sprintf("key '%s' defined in both %s and %s", e.Key, e.First, e.Second)
}

// FileError ties an aggregation failure to the file that caused it.
type FileError struct {
	Name string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// IsParseError returns true if err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var target *ParseError
	return errors.As(err, &target)
}

// IsSchemaMismatch returns true if err is or wraps a *SchemaMismatchError.
func IsSchemaMismatch(err error) bool {
	var target *SchemaMismatchError
	return errors.As(err, &target)
}

// IsKeyCollision returns true if err is or wraps a *KeyCollisionError.
func IsKeyCollision(err error) bool {
	var target *KeyCollisionError
	return errors.As(err, &target)
}
