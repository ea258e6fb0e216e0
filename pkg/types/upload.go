package types

// Upload is a file received from a client, detached from any transport.
// Err is set when the transport failed to deliver the file.
type Upload struct {
	Filename string
	Data     []byte
	Err      error
}

// Present reports whether the client attempted to send a file.
func (u *Upload) Present() bool {
	return u != nil && (u.Filename != "" || len(u.Data) > 0 || u.Err != nil)
}
