package ewf

import (
	"bytes"
	"errors"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arcanefs/goewf/format"
	"github.com/arcanefs/goewf/internal/chunk"
	"github.com/arcanefs/goewf/internal/errs"
)

func writeThenOpen(t *testing.T, variant format.Variant, data []byte, sectorsPerChunk uint32, segmentLimit int64) *Handle {
	t.Helper()
	base := filepath.Join(t.TempDir(), "case001")

	w, err := New(variant, base)
	require.NoError(t, err)
	require.NoError(t, w.SetSectorsPerChunk(sectorsPerChunk))
	require.NoError(t, w.SetBytesPerSector(512))
	require.NoError(t, w.SetCompressionLevel(chunk.LevelFast))
	require.NoError(t, w.SetHeaderValue("case_number", "2026-042"))
	require.NoError(t, w.SetHeaderValue("examiner_name", "A. Examiner"))
	if segmentLimit > 0 {
		require.NoError(t, w.SetSegmentFileSizeLimit(segmentLimit))
	}

	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Finalize())
	require.NoError(t, w.Close())

	first, err := segmentOneOf(base, variant)
	require.NoError(t, err)
	r, err := Open(first)
	require.NoError(t, err)
	return r
}

func segmentOneOf(base string, variant format.Variant) (string, error) {
	ext, err := variant.SegmentExtension(1)
	if err != nil {
		return "", err
	}
	return base + "." + ext, nil
}

func TestEmptyImageRoundTrip(t *testing.T) {
	r := writeThenOpen(t, format.EnCase5, nil, 64, 0)
	defer r.Close()

	require.Equal(t, int64(0), r.MediaSize())
	v, ok := r.HeaderValue("case_number")
	require.True(t, ok)
	require.Equal(t, "2026-042", v)
}

func TestSingleSegmentCompressedRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(0x1234))
	data := make([]byte, 4*1024*1024)
	rng.Read(data)

	r := writeThenOpen(t, format.EnCase5, data, 64, 0)
	defer r.Close()

	require.Equal(t, int64(len(data)), r.MediaSize())

	got := make([]byte, len(data))
	n, err := io.ReadFull(r, got)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.True(t, bytes.Equal(data, got))
}

func TestSegmentRolloverProducesMultipleSegments(t *testing.T) {
	data := make([]byte, 5*1024*1024) // incompressible, 5MiB
	rand.New(rand.NewSource(0x5a11)).Read(data)

	r := writeThenOpen(t, format.EnCase5, data, 64, 1024*1024)
	defer r.Close()

	require.GreaterOrEqual(t, r.segments.Count(), 5)

	got := make([]byte, len(data))
	_, err := io.ReadFull(r, got)
	require.NoError(t, err)
	require.True(t, bytes.Equal(data, got))
}

func TestCorruptionDetectionWithWipeOnError(t *testing.T) {
	data := bytes.Repeat([]byte{0xAB}, 64*512)
	r := writeThenOpen(t, format.EnCase5, data, 64, 0)
	defer r.Close()

	loc, ok := r.offsets.At(0)
	require.True(t, ok)
	// The read handle's own segment files are read-only; corrupt the
	// chunk through a separate read-write descriptor.
	desc, ok := r.segments.Get(loc.Segment)
	require.True(t, ok)
	f, err := os.OpenFile(desc.Path, os.O_RDWR, 0)
	require.NoError(t, err)
	defer f.Close()
	buf := make([]byte, 1)
	_, err = f.ReadAt(buf, loc.FileOffset)
	require.NoError(t, err)
	buf[0] ^= 0xff
	_, err = f.WriteAt(buf, loc.FileOffset)
	require.NoError(t, err)

	require.NoError(t, r.SetWipeOnError(true))
	got := make([]byte, len(data))
	_, err = io.ReadFull(r, got)
	require.NoError(t, err)
	require.Contains(t, r.CRCErrorChunks(), uint32(0))
}

func TestAcquiryErrorsPersistAcrossReopen(t *testing.T) {
	base := filepath.Join(t.TempDir(), "case002")
	w, err := New(format.EnCase5, base)
	require.NoError(t, err)
	require.NoError(t, w.SetSectorsPerChunk(64))
	require.NoError(t, w.SetBytesPerSector(512))

	w.AddAcquiryError(100, 8)
	w.AddAcquiryError(5000, 1)

	data := bytes.Repeat([]byte{0x01}, 64*512*2)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Finalize())
	require.NoError(t, w.Close())

	first, err := segmentOneOf(base, format.EnCase5)
	require.NoError(t, err)
	r, err := Open(first)
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, 2, len(r.AcquiryErrors()))
}

func TestCloseFinalizesAnOpenWriteHandle(t *testing.T) {
	base := filepath.Join(t.TempDir(), "case003")
	w, err := New(format.EnCase5, base)
	require.NoError(t, err)
	require.NoError(t, w.SetSectorsPerChunk(64))
	require.NoError(t, w.SetBytesPerSector(512))

	data := bytes.Repeat([]byte{0x02}, 64*512)
	_, err = w.Write(data)
	require.NoError(t, err)

	// Close without an explicit Finalize call first.
	require.NoError(t, w.Close())

	first, err := segmentOneOf(base, format.EnCase5)
	require.NoError(t, err)
	r, err := Open(first)
	require.NoError(t, err)
	defer r.Close()

	got := make([]byte, len(data))
	_, err = io.ReadFull(r, got)
	require.NoError(t, err)
	require.True(t, bytes.Equal(data, got))

	_, ok := r.HashValue("md5")
	require.True(t, ok)
}

func TestMD5HashValueIsSetOnce(t *testing.T) {
	base := filepath.Join(t.TempDir(), "case004")
	w, err := New(format.EnCase5, base)
	require.NoError(t, err)
	require.NoError(t, w.SetHashValue("md5", "d41d8cd98f00b204e9800998ecf8427e"))

	err = w.SetHashValue("md5", "00000000000000000000000000000000")
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrAlreadySet))

	require.NoError(t, w.SetSectorsPerChunk(64))
	require.NoError(t, w.SetBytesPerSector(512))
	require.NoError(t, w.Finalize())
	require.NoError(t, w.Close())
}

func TestParseHeaderValuesReformatsDates(t *testing.T) {
	base := filepath.Join(t.TempDir(), "case005")
	w, err := New(format.EnCase5, base)
	require.NoError(t, err)
	require.NoError(t, w.SetSectorsPerChunk(64))
	require.NoError(t, w.SetBytesPerSector(512))

	acquired := time.Date(2026, time.July, 31, 12, 0, 0, 0, time.UTC)
	require.NoError(t, w.SetHeaderValue("acquiry_date", strconv.FormatInt(acquired.Unix(), 10)))
	require.NoError(t, w.SetHeaderValue("case_number", "2026-042"))

	_, err = w.Write(bytes.Repeat([]byte{0x03}, 64*512))
	require.NoError(t, err)
	require.NoError(t, w.Finalize())
	require.NoError(t, w.Close())

	first, err := segmentOneOf(base, format.EnCase5)
	require.NoError(t, err)
	r, err := Open(first)
	require.NoError(t, err)
	defer r.Close()

	values, err := r.ParseHeaderValues("2006-01-02")
	require.NoError(t, err)
	require.Equal(t, "2026-07-31", values["acquiry_date"])
	require.Equal(t, "2026-042", values["case_number"])

	hashes := r.ParseHashValues()
	_, ok := hashes["md5"]
	require.True(t, ok)
}

func TestReplaceChunkOverridesReadsThroughDeltaFile(t *testing.T) {
	data := bytes.Repeat([]byte{0x09}, 64*512)
	r := writeThenOpen(t, format.EnCase5, data, 64, 0)
	defer r.Close()

	deltaPath := filepath.Join(t.TempDir(), "case006.d01")
	require.NoError(t, r.OpenDeltaWrite(deltaPath))

	override := bytes.Repeat([]byte{0x0A}, int(r.chunkSize()))
	require.NoError(t, r.ReplaceChunk(0, override))
	require.Equal(t, 1, r.DeltaOverrideCount())

	got := make([]byte, len(override))
	_, err := io.ReadFull(r, got)
	require.NoError(t, err)
	require.True(t, bytes.Equal(override, got))
}
