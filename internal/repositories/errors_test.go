package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestParseID(t *testing.T) {
	id := primitive.NewObjectID()
	got, err := ParseID(id.Hex())
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParseID("abc")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestFilterValidIDs(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()

	valid, dropped := FilterValidIDs([]string{a.Hex(), "", "zzz", b.Hex(), a.Hex(), "123456789012345678901234x"})
	assert.Equal(t, []primitive.ObjectID{a, b}, valid)
	assert.Equal(t, []string{"", "zzz", "123456789012345678901234x"}, dropped)

	valid, dropped = FilterValidIDs(nil)
	assert.Empty(t, valid)
	assert.Empty(t, dropped)
}

func TestDedupeIDs(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, DedupeIDs([]string{"a", "b", "a", "c", "b"}))
	assert.Equal(t, []string{}, DedupeIDs(nil))
}

func TestNormalizeIDList(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()

	tests := []struct {
		name    string
		raw     primitive.A
		want    []string
		changed bool
	}{
		{"clean", primitive.A{a.Hex(), b.Hex()}, []string{a.Hex(), b.Hex()}, false},
		{"duplicates", primitive.A{a.Hex(), b.Hex(), a.Hex()}, []string{a.Hex(), b.Hex()}, true},
		{"object ids", primitive.A{a, b.Hex()}, []string{a.Hex(), b.Hex()}, true},
		{"object id duplicating string", primitive.A{a.Hex(), a}, []string{a.Hex()}, true},
		{"foreign types", primitive.A{a.Hex(), int32(7), nil}, []string{a.Hex()}, true},
		{"empty", nil, []string{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := NormalizeIDList(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.changed, changed)
		})
	}
}
