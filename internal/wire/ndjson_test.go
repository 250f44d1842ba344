package wire

import (
	"testing"

	"github.com/nullpointer-labs/chatcore/internal/testutil"
)

func TestNDJSONReaderSplitInvariant(t *testing.T) {
	full := "{\"a\":1}\n{\"b\":2}\n{\"c\":3}\n"

	var reader NDJSONReader
	var got []string
	// Feed the body split at every byte boundary to exercise split-invariance.
	for i := 0; i < len(full); i++ {
		got = append(got, reader.Feed([]byte{full[i]})...)
	}
	got = append(got, reader.Close()...)

	testutil.RequireEqual(t, got, []string{`{"a":1}`, `{"b":2}`, `{"c":3}`}, "split-at-every-byte lines")
}

func TestNDJSONReaderTrailingBufferFlushedOnClose(t *testing.T) {
	var reader NDJSONReader
	got := reader.Feed([]byte("{\"a\":1}\n{\"no-newline\":true}"))
	testutil.RequireEqual(t, got, []string{`{"a":1}`}, "line before trailing buffer")

	final := reader.Close()
	testutil.RequireEqual(t, final, []string{`{"no-newline":true}`}, "trailing buffer flushed on close")
}

func TestNDJSONReaderSkipsEmptyLines(t *testing.T) {
	var reader NDJSONReader
	got := reader.Feed([]byte("\n\n{\"a\":1}\n\n"))
	testutil.RequireEqual(t, got, []string{`{"a":1}`}, "empty lines skipped")
}

func TestNDJSONReaderHandlesSplitMultiByteRune(t *testing.T) {
	// "héllo" where é is encoded as two UTF-8 bytes split across two feeds.
	word := "h\xc3\xa9llo"
	var reader NDJSONReader
	got := reader.Feed([]byte(word[:2]))
	testutil.RequireEqual(t, got, []string(nil), "no line yet")
	got = reader.Feed([]byte(word[2:] + "\n"))
	testutil.RequireEqual(t, got, []string{word}, "line reassembled across split multi-byte rune")
}
