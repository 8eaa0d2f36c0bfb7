package storage

// NotFoundError is returned when a fact or entity doesn't exist in the store.
type NotFoundError struct {
	Kind string // "fact" or "entity"
	ID   string
}

func (e NotFoundError) Error() string {
	if e.Kind == "" {
		return "record not found: " + e.ID
	}
	return e.Kind + " not found: " + e.ID
}

// ValidationError is returned when a request references an unknown entity
// or omits a required field. It is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return "invalid request: " + e.Reason
	}
	return "invalid " + e.Field + ": " + e.Reason
}

// ConflictError is returned when an operation is not permitted in the
// record's current state.
type ConflictError struct {
	Reason string
}

func (e ConflictError) Error() string {
	return "conflict: " + e.Reason
}

// UnavailableError wraps a storage-layer failure that survived the retry
// budget. The caller may retry the whole operation later.
type UnavailableError struct {
	Err error
}

func (e UnavailableError) Error() string {
	return "storage unavailable: " + e.Err.Error()
}

func (e UnavailableError) Unwrap() error {
	return e.Err
}
