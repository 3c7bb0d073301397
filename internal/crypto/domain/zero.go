package domain

// Zero overwrites key material in place once it is no longer needed. Nil and empty
// buffers are ignored.
func Zero(bufs ...[]byte) {
	for _, b := range bufs {
		clear(b)
	}
}
