package repositories

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidID    = errors.New("invalid id")
)

// ParseID converts a hex identifier into an ObjectID.
func ParseID(id string) (primitive.ObjectID, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return objID, nil
}

// FilterValidIDs keeps the well-formed 24-hex identifiers of ids, in order and
// without repeats, and returns the malformed entries separately.
func FilterValidIDs(ids []string) (valid []primitive.ObjectID, dropped []string) {
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	for _, id := range ids {
		if !primitive.IsValidObjectID(id) {
			dropped = append(dropped, id)
			continue
		}
		objID, _ := primitive.ObjectIDFromHex(id)
		if _, ok := seen[objID]; ok {
			continue
		}
		seen[objID] = struct{}{}
		valid = append(valid, objID)
	}
	return valid, dropped
}

// DedupeIDs returns ids without repeated entries, keeping first occurrences.
func DedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
