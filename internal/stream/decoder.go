package stream

import "time"

// placeholder stands in for every \u and \U escape; code points are not
// mapped.
const placeholder = '-'

// decodeString reads a quoted string whose opening quote has already been
// consumed, leaving src positioned just past the closing quote. Bytes that
// do not fit in dst are read and dropped.
func decodeString(src ByteSource, dst *Buffer, timeout time.Duration) error {
	dst.Reset()

	for {
		c, err := src.ReadByte(timeout)
		if err != nil {
			return err
		}
		if c == '"' {
			return nil
		}

		if c == '\\' {
			if c, err = src.ReadByte(timeout); err != nil {
				return err
			}
			switch c {
			case 'b':
				c = '\b'
			case 'f':
				c = '\f'
			case 'n':
				c = '\n'
			case 'r':
				c = '\r'
			case 't':
				c = '\t'
			case 'u':
				if c, err = skipHex(src, 4, timeout); err != nil {
					return err
				}
			case 'U':
				if c, err = skipHex(src, 8, timeout); err != nil {
					return err
				}
			}
		}

		dst.Append(c)
	}
}

// skipHex consumes up to n hex digits. A non-hex byte ends the escape early;
// that byte is consumed and the rest of the digits are left in the stream.
func skipHex(src ByteSource, n int, timeout time.Duration) (byte, error) {
	for range n {
		c, err := src.ReadByte(timeout)
		if err != nil {
			return 0, err
		}
		if !isHexadecimal(c) {
			break
		}
	}
	return placeholder, nil
}

func isHexadecimal(c byte) bool {
	return ('0' <= c && c <= '9') ||
		('a' <= c && c <= 'f') ||
		('A' <= c && c <= 'F')
}

// isWhitespace matches the C locale isspace set, which includes \v and \f
// in addition to the JSON whitespace characters.
func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\v' || c == '\f' || c == '\r'
}
