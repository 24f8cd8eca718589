package uoid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/pagekit/registry/stream"
)

func TestLocationEqualIgnoresItinerant(t *testing.T) {
	a := Location{Sequence: 12, Flags: BuiltIn}
	b := Location{Sequence: 12, Flags: BuiltIn | Itinerant}
	c := Location{Sequence: 12, Flags: Volatile}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.Equal(t, 0, a.Compare(b))
}

func TestLocationOrdering(t *testing.T) {
	locs := []Location{{Sequence: 1}, {Sequence: 2}, {Sequence: 0x100}, Invalid}
	for i := 0; i+1 < len(locs); i++ {
		assert.Equal(t, -1, locs[i].Compare(locs[i+1]), "%s < %s", locs[i], locs[i+1])
		assert.Equal(t, 1, locs[i+1].Compare(locs[i]))
	}
	assert.True(t, GlobalFixed.IsGlobalFixed())
	assert.False(t, Invalid.IsValid())
}

func TestUoidEqual(t *testing.T) {
	base := Uoid{Location: Location{Sequence: 5}, Class: 3, Name: "Bee", LoadMask: Always}

	tests := []struct {
		name  string
		other Uoid
		want  bool
	}{
		{"same", base, true},
		{"case differs", Uoid{Location: base.Location, Class: 3, Name: "bEE"}, true},
		{"object id ignored", Uoid{Location: base.Location, Class: 3, Name: "Bee", ObjectID: 9}, true},
		{"other class", Uoid{Location: base.Location, Class: 4, Name: "Bee"}, false},
		{"other location", Uoid{Location: Location{Sequence: 6}, Class: 3, Name: "Bee"}, false},
		{"clone", base.CloneFor(1, 2), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Equal(tt.other))
		})
	}
}

func TestCloneOriginal(t *testing.T) {
	base := Uoid{Location: Location{Sequence: 5}, Class: 3, Name: "Door"}
	a := base.CloneFor(7, 1)
	b := base.CloneFor(8, 1)

	assert.True(t, a.IsClone())
	assert.False(t, a.Equal(b))
	assert.True(t, a.Original().Equal(base))
	assert.True(t, b.Original().Equal(base))
	assert.False(t, a.Original().IsClone())
}

func TestUoidBinaryForm(t *testing.T) {
	tests := []struct {
		name string
		id   Uoid
		size int
	}{
		{
			name: "plain",
			id:   Uoid{Location: Location{Sequence: 1}, LoadMask: Always, Class: 2, ObjectID: 3, Name: "Alpha"},
			// contents + location + class + objid + name
			size: 1 + 6 + 2 + 4 + 2 + 5,
		},
		{
			name: "masked clone",
			id: Uoid{Location: Location{Sequence: 1, Flags: Volatile}, LoadMask: 0x01, Class: 2,
				Name: "Beta", CloneID: 4, ClonePlayerID: 99},
			size: 1 + 6 + 1 + 2 + 4 + 2 + 4 + 8,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := stream.NewMemory(nil)
			enc := stream.NewEncoder(m)
			tt.id.Encode(enc)
			require.NoError(t, enc.Err())
			assert.Equal(t, int64(tt.size), m.Size())

			require.NoError(t, stream.Rewind(m))
			var got Uoid
			dec := stream.NewDecoder(m)
			got.Decode(dec)
			require.NoError(t, dec.Err())
			assert.Equal(t, tt.id, got)
		})
	}
}

func TestLoadMask(t *testing.T) {
	assert.True(t, Always.Loads(0x01))
	assert.True(t, LoadMask(0x02).Loads(0x03))
	assert.False(t, LoadMask(0x02).Loads(0x01))
}
