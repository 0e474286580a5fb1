package logging

// Renderer turns a record into the bytes a sink writes. Implementations
// must not modify the record and must be safe to call from one goroutine
// at a time without external state.
type Renderer interface {
	Render(rec *Record) ([]byte, error)
}
