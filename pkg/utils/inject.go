package utils

import (
	"bytes"
)

var closingBody = []byte("</body>")

// InjectBeforeBody puts snippet right before the last </body>, or appends it when there is none.
func InjectBeforeBody(page []byte, snippet string) []byte {
	idx := bytes.LastIndex(bytes.ToLower(page), closingBody)
	out := make([]byte, 0, len(page)+len(snippet))
	if idx < 0 {
		out = append(out, page...)
		return append(out, snippet...)
	}
	out = append(out, page[:idx]...)
	out = append(out, snippet...)
	return append(out, page[idx:]...)
}
