package contextkeys

// contextKey is an unexported type to prevent collisions with context keys defined in
// other packages.
type contextKey string

// String makes contextKey satisfy the Stringer interface to assist with debugging.
func (c contextKey) String() string {
	return "queue-maintenance context key " + string(c)
}

// RunIDKey identifies a single scheduled reset run
const RunIDKey = contextKey("runID")

// RequestIDKey is the key for the HTTP request ID
const RequestIDKey = contextKey("requestID")

// ComponentKey is the key for the component name
const ComponentKey = contextKey("component")

// OperationKey is the key for the operation currently executing
const OperationKey = contextKey("operation")

// CollectionKey is the key for the collection an operation targets
const CollectionKey = contextKey("collection")
