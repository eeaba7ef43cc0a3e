package tokenstream

import "fmt"

// TruncatedStreamError reports a length prefix or payload that runs past the end of the data
type TruncatedStreamError struct {
	Offset    int64 // offset of the token's length prefix
	Declared  int64 // bytes the token needs
	Remaining int64 // bytes actually left
}

func (e *TruncatedStreamError) Error() string {
	return fmt.Sprintf("truncated token stream at offset %d: need %d bytes, %d remaining", e.Offset, e.Declared, e.Remaining)
}

// EncodingError reports a token payload that is not valid UTF-8
type EncodingError struct {
	Offset int64
	Index  int
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("token %d at offset %d is not valid UTF-8", e.Index, e.Offset)
}

// TokenTooLargeError reports a token whose UTF-8 length does not fit the 32-bit prefix
type TokenTooLargeError struct {
	Index int
	Size  uint64
}

func (e *TokenTooLargeError) Error() string {
	return fmt.Sprintf("token %d is %d bytes, exceeds the 32-bit length prefix", e.Index, e.Size)
}
