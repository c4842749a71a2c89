// Package relay streams upstream HTTP responses back to the original caller
// without buffering the whole body.
package relay

import (
	"fmt"
	"io"
	"net/http"

	"backendai-proxy-go/internal/model"
)

// chunkSize is the fixed read size for body streaming. Memory use is bounded
// by this regardless of payload size.
const chunkSize = 8192

// Stream re-emits the upstream status and headers on w and then copies the
// body chunk by chunk, each chunk written downstream before the next read.
// All upstream headers are merged into the response header set, and
// Access-Control-Allow-Origin is forced to "*".
//
// The status line is committed before any body byte, so errors after the
// first write can only truncate, never change the status. A downstream write
// failure aborts immediately; the caller's deferred close releases the
// upstream handle.
func Stream(w http.ResponseWriter, resp *model.ProxyResponse) error {
	hdr := w.Header()
	for key, vals := range resp.Header {
		for _, v := range vals {
			hdr.Add(key, v)
		}
	}
	hdr.Set("Access-Control-Allow-Origin", "*")

	w.WriteHeader(resp.StatusCode)

	flusher, _ := w.(http.Flusher)

	buf := make([]byte, chunkSize)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write downstream: %w", werr)
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read upstream body: %w", err)
		}
	}
}
