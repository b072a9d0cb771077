package offsettable

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arcanefs/goewf/internal/errs"
)

func sampleEntries() []RawEntry {
	return []RawEntry{
		{Offset: 0, Compressed: false},
		{Offset: 512, Compressed: true},
		{Offset: 900, Compressed: false},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	entries := sampleEntries()
	payload := EncodeEntries(entries)

	got, err := DecodeEntries(payload)
	require.NoError(t, err)
	require.Equal(t, entries, got)
}

func TestDecodeEntriesChecksumMismatch(t *testing.T) {
	payload := EncodeEntries(sampleEntries())
	payload[0] ^= 0xff

	_, err := DecodeEntries(payload)
	require.ErrorIs(t, err, errs.ErrSectionChecksumMismatch)
}

func TestBuildSegmentDerivesStoredSize(t *testing.T) {
	entries := sampleEntries()
	const base int64 = 1000
	const dataEnd int64 = 2000

	locs, err := BuildSegment(1, entries, base, dataEnd)
	require.NoError(t, err)
	require.Len(t, locs, 3)

	require.Equal(t, int64(1000), locs[0].FileOffset)
	require.Equal(t, uint32(512), locs[0].StoredSize)
	require.Equal(t, int64(1512), locs[1].FileOffset)
	require.Equal(t, uint32(388), locs[1].StoredSize)
	require.True(t, locs[1].Compressed)
	require.Equal(t, int64(1900), locs[2].FileOffset)
	require.Equal(t, uint32(100), locs[2].StoredSize) // last entry bounded by dataEnd
}

func TestReconcileAgreement(t *testing.T) {
	entries := sampleEntries()
	out, err := Reconcile(entries, entries, nil, nil)
	require.NoError(t, err)
	require.Equal(t, entries, out)
}

func TestReconcileDisagreementIsWarningNotFatal(t *testing.T) {
	primary := sampleEntries()
	backup := sampleEntries()
	backup[1].Offset = 600

	out, err := Reconcile(primary, backup, nil, nil)
	require.ErrorIs(t, err, errs.ErrBackupDisagrees)
	require.Equal(t, primary, out) // still usable, primary wins
}

func TestReconcilePrimaryInvalidFallsBackToBackup(t *testing.T) {
	backup := sampleEntries()
	out, err := Reconcile(nil, backup, errors.New("table zeroed"), nil)
	require.NoError(t, err)
	require.Equal(t, backup, out)
}

func TestReconcileBothInvalidIsFatal(t *testing.T) {
	_, err := Reconcile(nil, nil, errors.New("table zeroed"), errors.New("table2 zeroed"))
	require.ErrorIs(t, err, errs.ErrChainCorrupt)
}
