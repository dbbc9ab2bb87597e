package relay

import (
	"errors"
	"fmt"
)

// Error kinds the dispatcher maps to frames. Generation and extraction
// failures become a session-wide geminiError frame; anything else stays
// with the sender.
var (
	ErrGeneration = errors.New("generation failed")
	ErrExtraction = errors.New("detail extraction failed")
)

func generationErr(err error) error {
	return fmt.Errorf("%w: %v", ErrGeneration, err)
}

func extractionErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrExtraction, fmt.Sprintf(format, args...))
}
