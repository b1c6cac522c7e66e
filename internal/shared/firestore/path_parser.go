package firestore

import (
	"strings"
	"unicode/utf8"

	"queue-maintenance/internal/shared/errors"
)

// maxIDBytes is the Firestore limit for a collection or document ID.
const maxIDBytes = 1500

// IsValidID reports whether id is usable as a top-level collection or document ID
// under Firestore naming rules.
func IsValidID(id string) bool {
	if id == "" || len(id) > maxIDBytes {
		return false
	}
	if !utf8.ValidString(id) {
		return false
	}
	if strings.Contains(id, "/") {
		return false
	}
	if id == "." || id == ".." {
		return false
	}
	// IDs matching __.*__ are reserved
	if len(id) >= 4 && strings.HasPrefix(id, "__") && strings.HasSuffix(id, "__") {
		return false
	}
	return true
}

// ValidateCollectionID validates a top-level collection ID
func ValidateCollectionID(id string) error {
	if !IsValidID(id) {
		return errors.NewValidationError("invalid collection ID").
			WithCause(errors.ErrInvalidCollectionID).
			WithDetail("collection_id", id)
	}
	return nil
}

// ValidateDocumentID validates a document ID
func ValidateDocumentID(id string) error {
	if !IsValidID(id) {
		return errors.NewValidationError("invalid document ID").
			WithCause(errors.ErrInvalidDocumentID).
			WithDetail("document_id", id)
	}
	return nil
}

// BuildDocumentPath joins a collection and document ID into "collection/document"
func BuildDocumentPath(collectionID, documentID string) string {
	return collectionID + "/" + documentID
}

// ValidateDocumentPath validates both segments of a "collection/document" path
func ValidateDocumentPath(collectionID, documentID string) error {
	if err := ValidateCollectionID(collectionID); err != nil {
		return err
	}
	return ValidateDocumentID(documentID)
}
