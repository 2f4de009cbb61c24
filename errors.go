package coal

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies a recoverable decode failure.
type ErrorKind int

const (
	BadMagic ErrorKind = iota
	BadVersion
	Truncated
	OffsetOutOfRange
	BadClusterOrder
	InstanceCountMismatch
	UnknownEncoding
	MissingBlobEntryKind
)

func (k ErrorKind) String() string {
	switch k {
	case BadMagic:
		return "BadMagic"
	case BadVersion:
		return "BadVersion"
	case Truncated:
		return "Truncated"
	case OffsetOutOfRange:
		return "OffsetOutOfRange"
	case BadClusterOrder:
		return "BadClusterOrder"
	case InstanceCountMismatch:
		return "InstanceCountMismatch"
	case UnknownEncoding:
		return "UnknownEncoding"
	case MissingBlobEntryKind:
		return "MissingBlobEntry"
	default:
		return "Unknown"
	}
}

// DecodeError reports a structurally-fatal decode failure, as opposed to a
// field- or type-level mismatch that the deserializer recovers from locally.
type DecodeError struct {
	Kind ErrorKind
	msg  string
}

func (e *DecodeError) Error() string {
	if e.msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

func newDecodeError(kind ErrorKind, format string, args ...interface{}) error {
	return errors.WithStack(&DecodeError{Kind: kind, msg: fmt.Sprintf(format, args...)})
}

// UnsupportedTypeError is returned when RegisterStructure/RegisterClass is
// asked to reflect over a Go type it cannot map to a Coal encoding.
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("coal: unsupported type %s", e.Type)
}

// InvalidTagError describes a `coal:"..."` struct tag that cannot be parsed.
// parseCoalTag accepts every tag, so no function in this package returns it.
type InvalidTagError struct {
	Field string
	Tag   string
}

func (e *InvalidTagError) Error() string {
	return fmt.Sprintf("coal: invalid tag %q on field %s", e.Tag, e.Field)
}
