// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stream

import "strings"

// dataPrefix marks an SSE payload line. The protocol uses only data:
// lines; event:, id:, and retry: fields are never sent.
const dataPrefix = "data: "

// frameDelim separates SSE events.
const frameDelim = "\n\n"

// Framer reassembles a chunked SSE byte stream into discrete event
// payloads. Bytes are buffered until a complete frame (terminated by a
// blank line) is present; an incomplete trailing fragment is retained
// for the next push and never dispatched early. The payload sequence is
// therefore independent of how the transport splits the stream into
// chunks.
type Framer struct {
	pending string
}

// Push appends a chunk and returns the payloads of every frame now
// complete, in arrival order. A frame can carry several data: lines;
// each yields one payload.
func (f *Framer) Push(chunk []byte) []string {
	f.pending += string(chunk)

	var payloads []string
	for {
		idx := strings.Index(f.pending, frameDelim)
		if idx < 0 {
			return payloads
		}
		frame := f.pending[:idx]
		f.pending = f.pending[idx+len(frameDelim):]

		for _, line := range strings.Split(frame, "\n") {
			line = strings.TrimSuffix(line, "\r")
			if strings.HasPrefix(line, dataPrefix) {
				payloads = append(payloads, line[len(dataPrefix):])
			}
		}
	}
}

// Reset discards any buffered fragment.
func (f *Framer) Reset() {
	f.pending = ""
}
