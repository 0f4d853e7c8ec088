package common

// WipeByteArray overwrites the buffer with zeros. Use it to scrub passwords
// and other secrets from memory once they are no longer needed.
// Safe to call with nil.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
