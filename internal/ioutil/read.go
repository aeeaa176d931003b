package ioutil

import (
	"fmt"
	"io"
)

// ReadLimited reads up to limit bytes from r for inclusion in an error
// message or log line. A read failure yields a placeholder instead of
// being silently dropped.
func ReadLimited(r io.Reader, limit int64) string {
	body, err := io.ReadAll(io.LimitReader(r, limit))
	if err != nil {
		return fmt.Sprintf("<unreadable: %v>", err)
	}
	return string(body)
}
