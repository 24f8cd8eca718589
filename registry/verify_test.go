package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/joshuapare/pagekit/internal/format"
	"github.com/joshuapare/pagekit/pkg/types"
	"github.com/joshuapare/pagekit/registry/uoid"
)

// writeRawPage writes a page with an empty data section and index. A bad
// checksum is recorded when corrupt is set.
func writeRawPage(t *testing.T, path string, hdr format.Header, corrupt bool) {
	t.Helper()
	index := make([]byte, format.NameCountSize+format.GroupCountSize)
	size, err := hdr.Size()
	require.NoError(t, err)
	hdr.DataStart = uint32(size)
	hdr.IndexStart = uint32(size)
	hdr.Checksum = uint32(len(index))
	if corrupt {
		hdr.Checksum++
	}
	raw, err := hdr.Encode()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, append(raw, index...), 0o644))
}

func TestOpenPage_VersionGating(t *testing.T) {
	nodeAt := func(minor uint16) format.ClassVersion {
		return format.ClassVersion{Class: uint16(classNode), Minor: minor}
	}
	sharedAt := func(minor uint16) format.ClassVersion {
		return format.ClassVersion{Class: uint16(classShared), Minor: minor}
	}
	tests := []struct {
		name     string
		major    uint32
		classes  []format.ClassVersion
		corrupt  bool
		expected PageStatus
	}{
		{"current", format.MajorVersion, []format.ClassVersion{nodeAt(3)}, false, StatusOK},
		{"newer major", format.MajorVersion + 1, []format.ClassVersion{nodeAt(3)}, false, StatusTooNew},
		{"older major", format.MajorVersion - 1, []format.ClassVersion{nodeAt(3)}, false, StatusOutOfDate},
		{"newer class", format.MajorVersion, []format.ClassVersion{nodeAt(4)}, false, StatusTooNew},
		{"older class", format.MajorVersion, []format.ClassVersion{nodeAt(2)}, false, StatusOutOfDate},
		{"too new wins", format.MajorVersion, []format.ClassVersion{nodeAt(2), sharedAt(2)}, false, StatusTooNew},
		{"bad checksum", format.MajorVersion, nil, true, StatusCorrupt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "page.prp")
			writeRawPage(t, path, format.Header{
				Major:         tt.major,
				LocSequence:   locA.Sequence,
				Age:           "Garden",
				Page:          "Shed",
				ClassVersions: tt.classes,
			}, tt.corrupt)

			r := newTestRegistry(t, newTestFactory())
			p, err := r.AddPage(path)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p.Status())

			k, err := r.FindKey(idFor(locA, classNode, "Rake"))
			assert.Nil(t, k)
			if tt.expected == StatusOK {
				require.NoError(t, err)
				assert.True(t, p.KeysLoaded())
			} else {
				require.ErrorIs(t, err, types.ErrPageNotLoadable)
				require.ErrorIs(t, p.LoadKeys(), types.ErrPageNotLoadable)
			}
		})
	}
}

func TestVerifyPages_Policy(t *testing.T) {
	dir := t.TempDir()
	first := writePage(t, dir, pageDef{loc: locA, age: "Garden", name: "Shed", objects: []objDef{{name: "Rake"}}})
	dup := writePage(t, dir, pageDef{loc: locA, age: "Garden", name: "Barn", objects: []objDef{{name: "Hoe"}}})
	newer := filepath.Join(dir, "newer.prp")
	writeRawPage(t, newer, format.Header{Major: format.MajorVersion + 1, LocSequence: locB.Sequence, Age: "Garden", Page: "Future"}, false)
	bad := filepath.Join(dir, "bad.prp")
	writeRawPage(t, bad, format.Header{Major: format.MajorVersion, LocSequence: 300, Age: "Garden", Page: "Broken"}, true)

	core, logs := observer.New(zapcore.InfoLevel)
	r := newTestRegistry(t, newTestFactory(), func(o *Options) {
		o.Logger = zap.New(core)
		o.DeleteBadPages = true
	})
	for _, path := range []string{first, dup, newer, bad} {
		_, err := r.AddPage(path)
		require.NoError(t, err)
	}

	rep := r.VerifyPages()

	require.Len(t, rep.OK, 1)
	assert.Equal(t, first, rep.OK[0].Path())
	require.Len(t, rep.TooNew, 1)
	assert.Equal(t, newer, rep.TooNew[0].Path())
	require.Len(t, rep.Bad, 1)
	assert.Equal(t, []string{bad}, rep.Deleted)
	require.Len(t, rep.Duplicates, 1)
	assert.Equal(t, first, rep.Duplicates[0].Kept.Path())
	assert.Equal(t, dup, rep.Duplicates[0].Dropped.Path())

	assert.NoFileExists(t, bad)
	assert.FileExists(t, newer, "newer pages are never deleted")
	assert.FileExists(t, dup, "duplicates are only unregistered")
	assert.Len(t, r.Pages(), 2)
	assert.Equal(t, first, r.FindPage(locA).Path())

	assert.Equal(t, 1, logs.FilterMessage("page is newer than this engine; keeping file").Len())
	dupLogs := logs.FilterMessage("duplicate page location").All()
	require.Len(t, dupLogs, 1)
	assert.Equal(t, rep.Duplicates[0].Dropped.ID().String(), dupLogs[0].ContextMap()["dropped_id"])
}

func TestVerifyPages_KeepsBadPagesByDefault(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.prp")
	writeRawPage(t, bad, format.Header{Major: format.MajorVersion - 1, LocSequence: 300, Age: "Garden", Page: "Old"}, false)

	r := newTestRegistry(t, newTestFactory())
	_, err := r.AddPage(bad)
	require.NoError(t, err)

	rep := r.VerifyPages()
	require.Len(t, rep.Bad, 1)
	assert.Equal(t, StatusOutOfDate, rep.Bad[0].Status())
	assert.Empty(t, rep.Deleted)
	assert.FileExists(t, bad)
	assert.Len(t, r.Pages(), 1)
}

func TestVerifyPages_DeepVerifyCatchesTamperedData(t *testing.T) {
	dir := t.TempDir()
	path := writePage(t, dir, pageDef{loc: locA, age: "Garden", name: "Shed", objects: []objDef{{name: "Rake", value: 0x01020304}}})

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	dataStart := format.ReadU32(data, format.DataStartOffset)
	data[dataStart] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0o644))

	shallow := newTestRegistry(t, newTestFactory())
	p, err := shallow.AddPage(path)
	require.NoError(t, err)
	ok, err := p.VerifyDigest()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, shallow.VerifyPages().OK, 1, "header checks alone pass")

	deep := newTestRegistry(t, newTestFactory(), func(o *Options) { o.DeepVerify = true })
	p, err = deep.AddPage(path)
	require.NoError(t, err)
	rep := deep.VerifyPages()
	assert.Empty(t, rep.OK)
	require.Len(t, rep.Bad, 1)
	assert.Equal(t, StatusCorrupt, p.Status())
	assert.FileExists(t, path)

	_, err = deep.FindKey(idFor(locA, classNode, "Rake"))
	require.ErrorIs(t, err, types.ErrPageNotLoadable)
}

func TestVerifyPages_DistinctLocationsKept(t *testing.T) {
	dir := t.TempDir()
	r := newTestRegistry(t, newTestFactory())
	for i, loc := range []uoid.Location{locB, locA, {Sequence: 300}} {
		path := writePage(t, dir, pageDef{loc: loc, age: "Garden", name: string(rune('A' + i)), objects: []objDef{{name: "Rake"}}})
		_, err := r.AddPage(path)
		require.NoError(t, err)
	}

	rep := r.VerifyPages()
	assert.Len(t, rep.OK, 3)
	assert.Empty(t, rep.Duplicates)
}
