package section

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arcanefs/goewf/internal/values"
)

func sampleHeaderValues() *values.Table {
	tbl := values.New()
	tbl.Set("case_number", "2026-042")
	tbl.Set("evidence_number", "EV-1")
	tbl.Set("examiner_name", "A. Examiner")
	tbl.Set("notes", "routine acquisition")
	return tbl
}

func TestHeaderRoundTrip(t *testing.T) {
	tbl := sampleHeaderValues()
	compressed, err := EncodeHeader(tbl)
	require.NoError(t, err)

	got, err := DecodeHeader(compressed)
	require.NoError(t, err)

	for _, id := range tbl.Identifiers() {
		want, _ := tbl.Get(id)
		v, ok := got.Get(id)
		require.True(t, ok)
		require.Equal(t, want, v)
	}
}

func TestHeader2RoundTripUTF16(t *testing.T) {
	tbl := sampleHeaderValues()
	tbl.Set("description", "disk seized éèê")

	compressed, err := EncodeHeader2(tbl)
	require.NoError(t, err)

	got, err := DecodeHeader2(compressed)
	require.NoError(t, err)

	v, ok := got.Get("description")
	require.True(t, ok)
	require.Equal(t, "disk seized éèê", v)
}

func TestXHeaderRoundTrip(t *testing.T) {
	tbl := sampleHeaderValues()
	tbl.Set("acquiry_software_version", "1.0")

	compressed, err := EncodeXHeader(tbl)
	require.NoError(t, err)

	got, err := DecodeXHeader(compressed)
	require.NoError(t, err)

	for _, id := range tbl.Identifiers() {
		want, _ := tbl.Get(id)
		v, ok := got.Get(id)
		require.True(t, ok)
		require.Equal(t, want, v)
	}
}

func TestXHashRoundTrip(t *testing.T) {
	tbl := values.New()
	tbl.Set("md5", "d41d8cd98f00b204e9800998ecf8427e")
	tbl.Set("sha1", "da39a3ee5e6b4b0d3255bfef95601890afd80709")

	compressed, err := EncodeXHash(tbl)
	require.NoError(t, err)

	got, err := DecodeXHash(compressed)
	require.NoError(t, err)

	v, ok := got.Get("sha1")
	require.True(t, ok)
	require.Equal(t, "da39a3ee5e6b4b0d3255bfef95601890afd80709", v)
}
