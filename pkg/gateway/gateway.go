// Package gateway talks to the external AI service that turns text into image
// prompts, images, descriptions and title suggestions, and fetches generated
// images over HTTP.
package gateway

import (
	"context"
	"fmt"

	"github.com/jlrickert/textpix/pkg/record"
)

// Gateway is the capability interface consumed by the create and regenerate
// flows. Implementations must honor ctx cancellation.
type Gateway interface {
	// RewriteAsPrompt turns free-form text into a detailed image prompt.
	RewriteAsPrompt(ctx context.Context, text string) (string, error)

	// GenerateImage creates an image for prompt and returns a URL the image
	// can be downloaded from.
	GenerateImage(ctx context.Context, prompt string) (string, error)

	// DescribeImage returns a prose description of a base64-encoded image.
	DescribeImage(ctx context.Context, imageBase64 string) (string, error)

	// SuggestTitles returns free text with one title suggestion per line.
	// Use SplitTitles to turn the answer into a list.
	SuggestTitles(ctx context.Context, text, description string) (string, error)
}

// Error reports a failed call to the AI service. It matches
// record.ErrGateway through errors.Is.
type Error struct {
	Op         string // e.g. "chat/completions", "images/generations"
	StatusCode int    // zero when no HTTP response was received
	Message    string // upstream detail, when available
	Cause      error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("%s: HTTP Error: %d - %s", e.Op, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: HTTP Error: %d", e.Op, e.StatusCode)
	case e.Cause != nil && e.Message != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Cause)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Cause)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
}

func (e *Error) Is(target error) bool { return target == record.ErrGateway }
func (e *Error) Unwrap() error        { return e.Cause }

// TransportError reports an image download that failed on every attempt.
// It matches record.ErrTransport through errors.Is.
type TransportError struct {
	URL      string
	Attempts int
	Cause    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("image download failed after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *TransportError) Is(target error) bool { return target == record.ErrTransport }
func (e *TransportError) Unwrap() error        { return e.Cause }
