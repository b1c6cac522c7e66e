package model

// Collections touched by the daily reset.
const (
	CollectionRequests = "requests"
	CollectionQueue    = "queue"
	CollectionCounters = "counters"
)

// Document is a schema-less record read from the document store.
type Document struct {
	ID         string                 `json:"id" bson:"document_id"`
	Collection string                 `json:"collection" bson:"collection_id"`
	Data       map[string]interface{} `json:"data" bson:"fields"`
}

// Path returns the "collection/document" path of d.
func (d *Document) Path() string {
	return d.Collection + "/" + d.ID
}

// WriteOperationType defines the type of a write operation in a batch.
type WriteOperationType string

const (
	WriteTypeUpdate WriteOperationType = "UPDATE"
	WriteTypeDelete WriteOperationType = "DELETE"
)

// WriteOperation represents a single staged operation in a batch write.
type WriteOperation struct {
	Type       WriteOperationType     `json:"type"`
	Collection string                 `json:"collection"`
	DocumentID string                 `json:"documentId"`
	Data       map[string]interface{} `json:"data,omitempty"` // Update only
}

// Path returns the "collection/document" path the operation targets.
func (w WriteOperation) Path() string {
	return w.Collection + "/" + w.DocumentID
}
