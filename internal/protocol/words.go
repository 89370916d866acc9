package protocol

import "encoding/binary"

// WordsToBytes encodes 16-bit words in wire byte order (low byte first).
func WordsToBytes(words []uint16) []byte {
	buf := make([]byte, 2*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint16(buf[2*i:], w)
	}
	return buf
}

// BytesToWords decodes a word-aligned byte sequence.
func BytesToWords(data []byte) ([]uint16, error) {
	if len(data)%2 != 0 {
		return nil, ErrOddPayload
	}
	words := make([]uint16, len(data)/2)
	for i := range words {
		words[i] = binary.LittleEndian.Uint16(data[2*i:])
	}
	return words, nil
}

// ValuesToWords reinterprets signed variable values as wire words.
func ValuesToWords(values []int16) []uint16 {
	words := make([]uint16, len(values))
	for i, v := range values {
		words[i] = uint16(v)
	}
	return words
}

// WordsToValues reinterprets wire words as signed variable values.
func WordsToValues(words []uint16) []int16 {
	values := make([]int16, len(words))
	for i, w := range words {
		values[i] = int16(w)
	}
	return values
}

type payloadCursor struct {
	data []byte
	off  int
}

func (c *payloadCursor) uint8() (uint8, error) {
	if c.off+1 > len(c.data) {
		return 0, ErrTruncated
	}
	v := c.data[c.off]
	c.off++
	return v, nil
}

func (c *payloadCursor) uint16() (uint16, error) {
	if c.off+2 > len(c.data) {
		return 0, ErrTruncated
	}
	v := binary.LittleEndian.Uint16(c.data[c.off:])
	c.off += 2
	return v, nil
}

// string reads a length-prefixed string: one length byte then that many
// UTF-8 bytes.
func (c *payloadCursor) string() (string, error) {
	n, err := c.uint8()
	if err != nil {
		return "", ErrShortString
	}
	if c.off+int(n) > len(c.data) {
		return "", ErrShortString
	}
	s := string(c.data[c.off : c.off+int(n)])
	c.off += int(n)
	return s, nil
}

func (c *payloadCursor) take(n int) ([]byte, error) {
	if c.off+n > len(c.data) {
		return nil, ErrTruncated
	}
	b := c.data[c.off : c.off+n]
	c.off += n
	return b, nil
}

func (c *payloadCursor) remainingWords() ([]uint16, error) {
	return BytesToWords(c.data[c.off:])
}
