package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// writeEvent frames one value as a server-sent event (`data: <json>\n\n`) and
// flushes it immediately. One wire event per internal event, no batching.
func writeEvent(w io.Writer, flusher http.Flusher, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
