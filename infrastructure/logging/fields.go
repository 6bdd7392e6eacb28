package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/felixgeelhaar/artifact-go/domain/artifact"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// Common field constructors for upload pipeline logging.

// Artifact adds the artifact name.
func Artifact(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("artifact", name)
	}
}

// Key adds the storage key.
func Key(k artifact.Key) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("key", string(k))
	}
}

// Bucket adds the bucket name.
func Bucket(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("bucket", name)
	}
}

// UploadID adds the upload correlation ID.
func UploadID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("upload_id", id)
	}
}

// State adds a state field.
func State(s artifact.State) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("state", string(s))
	}
}

// FromState adds a from_state field for transitions.
func FromState(s artifact.State) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("from_state", string(s))
	}
}

// ToState adds a to_state field for transitions.
func ToState(s artifact.State) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("to_state", string(s))
	}
}

// Path adds a local filesystem path.
func Path(p string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("path", p)
	}
}

// Size adds a byte size.
func Size(n int64) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("size", n)
	}
}

// Entries adds an entry count.
func Entries(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("entries", n)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// ErrorKind adds the error taxonomy kind.
func ErrorKind(k artifact.ErrorKind) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("error_kind", string(k))
	}
}

// FailureKind adds the gateway failure kind.
func FailureKind(k artifact.FailureKind) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("failure_kind", string(k))
	}
}

// Component adds a component field for categorization.
func Component(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("component", name)
	}
}

// Operation adds an operation field.
func Operation(op string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("operation", op)
	}
}

// Str adds a string field with custom key.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}
