package wire

import "strings"

// DoneSentinel is the data payload that signals end of a logical SSE stream.
const DoneSentinel = "[DONE]"

// SSEEvent is one dispatched Server-Sent Event: a (possibly empty) event
// name and its data payload.
type SSEEvent struct {
	Name string
	Data string
}

// SSEReader accumulates `data:`/`event:` lines from a chunked byte stream
// into dispatched events. It shares the NDJSON reader's line-splitting
// discipline but interprets lines itself rather than handing raw lines to
// the caller: a `data: ` line carries a payload, an `event: <name>` line
// sets the name for the next payload (reset after each dispatch), and a
// blank line is a dispatch boundary (not required by every server — a
// bare `data:` line with no trailing blank line still dispatches once the
// underlying NDJSON line is complete, matching providers that omit the
// blank-line terminator between frames).
type SSEReader struct {
	lines       NDJSONReader
	pendingName string
}

// Feed appends a byte chunk and returns any events it completed.
func (r *SSEReader) Feed(chunk []byte) []SSEEvent {
	return r.dispatch(r.lines.Feed(chunk))
}

// Close flushes any trailing buffered line.
func (r *SSEReader) Close() []SSEEvent {
	return r.dispatch(r.lines.Close())
}

func (r *SSEReader) dispatch(lines []string) []SSEEvent {
	var events []SSEEvent
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "event:"):
			r.pendingName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimPrefix(line, "data:")
			data = strings.TrimPrefix(data, " ")
			events = append(events, SSEEvent{Name: r.pendingName, Data: data})
			r.pendingName = ""
		default:
			// Lines such as `id:` or `:comment` or bare blank dispatch
			// boundaries carry no payload for this reader's purposes.
		}
	}
	return events
}
