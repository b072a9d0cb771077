package section

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/arcanefs/goewf/internal/errs"
	"github.com/arcanefs/goewf/internal/values"
)

// headerTokens maps the public header value identifiers (spec.md §3) to the
// single/double-letter tokens EWF actually writes on the wire, in the
// canonical column order libewf emits them in. Grounded on
// internal/ewf.go's HeaderSectionString field set from the teacher repo
// (L3_a, L3_c, L3_n, ... L3_ext) and the getter/setter names in
// original_source/libewf/libewf_file.c.
var headerTokens = []struct{ identifier, token string }{
	{"case_number", "c"},
	{"evidence_number", "n"},
	{"description", "a"},
	{"examiner_name", "e"},
	{"notes", "t"},
	{"acquiry_software_version", "av"},
	{"acquiry_operating_system", "ov"},
	{"acquiry_date", "m"},
	{"system_date", "u"},
	{"password", "p"},
	{"model", "md"},
	{"serial_number", "sn"},
	{"location", "l"},
	{"process_id", "pid"},
	{"device_channel", "dc"},
	{"extension", "ext"},
}

func identifierForToken(token string) (string, bool) {
	for _, e := range headerTokens {
		if e.token == token {
			return e.identifier, true
		}
	}
	return "", false
}

func tokenForIdentifier(identifier string) (string, bool) {
	for _, e := range headerTokens {
		if e.identifier == identifier {
			return e.token, true
		}
	}
	return "", false
}

// EncodeHeaderText renders a header value table in libewf's 4-line text
// layout: category count, category name, a tab-separated header row of
// tokens, and a tab-separated value row. Only identifiers the table
// actually holds are emitted, in their table order.
func EncodeHeaderText(tbl *values.Table) string {
	var tokens, vals []string
	for _, id := range tbl.Identifiers() {
		tok, ok := tokenForIdentifier(id)
		if !ok {
			continue // not a recognized header identifier; hash values live elsewhere
		}
		v, _ := tbl.Get(id)
		tokens = append(tokens, tok)
		vals = append(vals, v)
	}

	var sb strings.Builder
	sb.WriteString("1\n")
	sb.WriteString("main\n")
	sb.WriteString(strings.Join(tokens, "\t"))
	sb.WriteString("\n")
	sb.WriteString(strings.Join(vals, "\t"))
	sb.WriteString("\n")
	return sb.String()
}

// DecodeHeaderText parses libewf's 4-line header text layout back into a
// value table. Lines beyond the first four (categories, e.g. "srce"/"sub")
// are ignored, matching the teacher's ParseHeaderSection which only ever
// consulted lines[2] and lines[3].
func DecodeHeaderText(text string) *values.Table {
	tbl := values.New()
	lines := strings.Split(text, "\n")
	if len(lines) < 4 {
		return tbl
	}
	tokens := strings.Split(lines[2], "\t")
	vals := strings.Split(lines[3], "\t")
	if len(tokens) != len(vals) {
		return tbl
	}
	for i, tok := range tokens {
		id, ok := identifierForToken(strings.TrimSpace(tok))
		if !ok {
			continue
		}
		tbl.Set(id, vals[i])
	}
	return tbl
}

// EncodeHeader compresses the ASCII header text for a "header" section
// (EnCase1..5). Returns the raw deflated bytes; the caller wraps them in
// a section descriptor.
func EncodeHeader(tbl *values.Table) ([]byte, error) {
	text := EncodeHeaderText(tbl)
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := io.WriteString(w, text); err != nil {
		return nil, fmt.Errorf("section: deflate header: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("section: close header deflate writer: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeHeader inflates and parses a "header" section payload.
func DecodeHeader(compressed []byte) (*values.Table, error) {
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("section: open header inflate reader: %w", errs.ErrChunkCorrupt)
	}
	defer r.Close()
	var out bytes.Buffer
	if _, err := io.Copy(&out, r); err != nil {
		return nil, fmt.Errorf("section: inflate header: %w", errs.ErrChunkCorrupt)
	}
	return DecodeHeaderText(out.String()), nil
}

// EncodeHeader2 renders a "header2" section: the same text, UTF-16 LE
// encoded with a byte-order mark, then deflated. header2 carries full
// Unicode case/examiner metadata where "header" is ASCII-only.
func EncodeHeader2(tbl *values.Table) ([]byte, error) {
	text := EncodeHeaderText(tbl)
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	utf16Bytes, _, err := transform.Bytes(enc.NewEncoder(), []byte(text))
	if err != nil {
		return nil, fmt.Errorf("section: utf-16 encode header2: %w", err)
	}

	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(utf16Bytes); err != nil {
		return nil, fmt.Errorf("section: deflate header2: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("section: close header2 deflate writer: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeHeader2 inflates a "header2" payload and decodes its UTF-16
// (LE or BE, BOM-detected, matching the teacher's ParseHeader byte sniff)
// text back into a value table.
func DecodeHeader2(compressed []byte) (*values.Table, error) {
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("section: open header2 inflate reader: %w", errs.ErrChunkCorrupt)
	}
	defer r.Close()
	var out bytes.Buffer
	if _, err := io.Copy(&out, r); err != nil {
		return nil, fmt.Errorf("section: inflate header2: %w", errs.ErrChunkCorrupt)
	}

	raw := out.Bytes()
	var text string
	switch {
	case len(raw) >= 2 && raw[0] == 0xff && raw[1] == 0xfe:
		dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		utf8Bytes, _, err := transform.Bytes(dec, raw)
		if err != nil {
			return nil, fmt.Errorf("section: utf-16le decode header2: %w", err)
		}
		text = string(utf8Bytes)
	case len(raw) >= 2 && raw[0] == 0xfe && raw[1] == 0xff:
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		utf8Bytes, _, err := transform.Bytes(dec, raw)
		if err != nil {
			return nil, fmt.Errorf("section: utf-16be decode header2: %w", err)
		}
		text = string(utf8Bytes)
	default:
		text = string(raw)
	}
	return DecodeHeaderText(text), nil
}

// xmlValue and xmlTable mirror libewf's xheader/xhash plist-style XML:
// a flat <xheader>/<xhash> root holding one child element per identifier,
// value as element text. Unlike EncodeHeaderText this isn't restricted to
// the fixed headerTokens column set, so xheader/xhash can carry any
// identifier the value table holds, case_number through md5 alike.
type xmlValue struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

type xmlTable struct {
	XMLName xml.Name
	Values  []xmlValue `xml:",any"`
}

// EncodeXML renders tbl as an XML section under rootName ("xheader" or
// "xhash"), then deflates it (EWFX's XML sections are zlib-compressed the
// same way "header" is).
func EncodeXML(rootName string, tbl *values.Table) ([]byte, error) {
	t := xmlTable{XMLName: xml.Name{Local: rootName}}
	for _, id := range tbl.Identifiers() {
		v, _ := tbl.Get(id)
		t.Values = append(t.Values, xmlValue{XMLName: xml.Name{Local: id}, Value: v})
	}
	text, err := xml.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("section: marshal %s xml: %w", rootName, err)
	}

	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return nil, fmt.Errorf("section: deflate %s: %w", rootName, err)
	}
	if _, err := w.Write(text); err != nil {
		return nil, fmt.Errorf("section: deflate %s: %w", rootName, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("section: close %s deflate writer: %w", rootName, err)
	}
	return buf.Bytes(), nil
}

// DecodeXML inflates and parses an xheader/xhash section payload built by
// EncodeXML back into a value table.
func DecodeXML(compressed []byte) (*values.Table, error) {
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("section: open xml inflate reader: %w", errs.ErrChunkCorrupt)
	}
	defer r.Close()
	var out bytes.Buffer
	if _, err := io.Copy(&out, r); err != nil {
		return nil, fmt.Errorf("section: inflate xml section: %w", errs.ErrChunkCorrupt)
	}

	var t xmlTable
	if err := xml.Unmarshal(out.Bytes(), &t); err != nil {
		return nil, fmt.Errorf("section: unmarshal xml section: %w", errs.ErrChunkCorrupt)
	}
	tbl := values.New()
	for _, v := range t.Values {
		tbl.Set(v.XMLName.Local, v.Value)
	}
	return tbl, nil
}

// EncodeXHeader renders an "xheader" section: tbl's identifiers as XML,
// carrying the same information as "header"/"header2" but unconstrained
// to the fixed token set, plus any caller-added identifier headerTokens
// doesn't know (EWFX).
func EncodeXHeader(tbl *values.Table) ([]byte, error) {
	return EncodeXML("xheader", tbl)
}

// DecodeXHeader decodes an "xheader" section payload.
func DecodeXHeader(compressed []byte) (*values.Table, error) {
	return DecodeXML(compressed)
}

// EncodeXHash renders an "xhash" section: the hash value table as XML,
// the EWFX counterpart to the fixed-layout "hash"/"digest" sections.
func EncodeXHash(tbl *values.Table) ([]byte, error) {
	return EncodeXML("xhash", tbl)
}

// DecodeXHash decodes an "xhash" section payload.
func DecodeXHash(compressed []byte) (*values.Table, error) {
	return DecodeXML(compressed)
}
