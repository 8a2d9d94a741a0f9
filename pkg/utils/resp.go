package utils

import "net/http"

// StatusWriter remembers whether anything reached the client and with which status.
type StatusWriter struct {
	http.ResponseWriter
	status int
}

func NewStatusWriter(base http.ResponseWriter) *StatusWriter {
	return &StatusWriter{ResponseWriter: base}
}

func (w *StatusWriter) WriteHeader(statusCode int) {
	if w.status == 0 {
		w.status = statusCode
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *StatusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// Written is false while only headers were touched.
func (w *StatusWriter) Written() bool {
	return w.status != 0
}

// Status is 0 until something was written.
func (w *StatusWriter) Status() int {
	return w.status
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *StatusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
