package model

import (
	"fmt"
	"math"
	"strings"

	"queue-maintenance/internal/shared/errors"
	"queue-maintenance/internal/shared/firestore"
)

// Counter document fields.
const (
	FieldCompleted = "completed"
	FieldEmail     = "email"
)

// Counter-detail document fields.
const (
	CounterDetailDocID   = "counterDoc"
	FieldReceivedTokens  = "receivedTokens"
	FieldPriority        = "priority"
	FieldNowServingToken = "nowservingtoken"
	NowServingSentinel   = "-"
)

// Counter is a document of the counters collection.
type Counter struct {
	ID        string
	Completed int64
	Email     string
}

// CounterFromDocument decodes a counter. Missing or mistyped fields decode to
// their zero value.
func CounterFromDocument(doc *Document) Counter {
	c := Counter{ID: doc.ID}
	if doc.Data == nil {
		return c
	}
	c.Completed = toInt64(doc.Data[FieldCompleted])
	if email, ok := doc.Data[FieldEmail].(string); ok {
		c.Email = email
	}
	return c
}

// CompletedResetFields is the update staged for every counter.
func CompletedResetFields() map[string]interface{} {
	return map[string]interface{}{
		FieldCompleted: int64(0),
	}
}

// CounterDetailResetFields is the update applied to a counter's counterDoc.
func CounterDetailResetFields() map[string]interface{} {
	return map[string]interface{}{
		FieldReceivedTokens:  []interface{}{},
		FieldPriority:        []interface{}{},
		FieldNowServingToken: NowServingSentinel,
	}
}

// CounterCollectionName derives the counter-detail collection from an email:
// the text before the first '@'. Whitespace around the email is ignored.
func CounterCollectionName(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", errors.ErrEmptyEmail
	}

	at := strings.IndexByte(email, '@')
	if at < 0 {
		return "", fmt.Errorf("%w: %q", errors.ErrMalformedEmail, email)
	}

	local := email[:at]
	if local == "" {
		return "", fmt.Errorf("%w: %q", errors.ErrEmptyLocalPart, email)
	}
	if err := firestore.ValidateCollectionID(local); err != nil {
		return "", err
	}
	return local, nil
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case float32:
		return int64(n)
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return int64(n)
	default:
		return 0
	}
}
