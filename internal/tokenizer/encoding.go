package tokenizer

import (
	"errors"

	"github.com/pkoukk/tiktoken-go"
)

var errMissingEncoding = errors.New("tokenizer encoding is not initialized")

// encodingCounter counts BPE tokens with a tiktoken encoding. File contents are encoded
// as ordinary text so literal special-token markers are charged like any other bytes.
type encodingCounter struct {
	encoding *tiktoken.Tiktoken
	name     string
}

func (counter encodingCounter) Name() string {
	return counter.name
}

func (counter encodingCounter) CountString(input string) (int, error) {
	if counter.encoding == nil {
		return 0, errMissingEncoding
	}
	return len(counter.encoding.EncodeOrdinary(input)), nil
}

var _ Counter = encodingCounter{}
