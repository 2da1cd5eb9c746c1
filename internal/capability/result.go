package capability

import "github.com/capbridge/capbridge/internal/domain"

// Status is the terminal outcome of one invocation.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// ContentKind tags one entry of a tool result's content envelope.
type ContentKind string

const (
	// ContentText carries string or JSON-able payloads.
	ContentText ContentKind = "text"
	// ContentBlob carries raw bytes, base64-encoded.
	ContentBlob ContentKind = "blob"
	// ContentEmpty marks an empty upstream body.
	ContentEmpty ContentKind = "empty"
)

// ContentItem is one entry of the invocation protocol's content envelope.
type ContentItem struct {
	Kind     ContentKind
	Text     string
	Blob     string // base64 when Kind == ContentBlob
	MIMEType string
}

// Result is the terminal product of one invocation translator. It is either
// a success payload typed per capability kind or a structured error.
type Result struct {
	Status Status

	// Payload is the JSON-decoded body when the upstream content type was
	// JSON, otherwise the raw body as a string. Nil on failure.
	Payload interface{}

	// Raw is the unmodified upstream body.
	Raw []byte

	// ContentType is the upstream Content-Type as observed.
	ContentType string

	// Content is the tool-kind content envelope.
	Content []ContentItem

	// UpstreamStatus is the HTTP status observed upstream, 0 when the
	// request never completed.
	UpstreamStatus int

	// Err carries the failure: ValidationError, TransportError,
	// UpstreamError or CancelledError from the domain taxonomy.
	Err error
}

// Failed reports whether the invocation ended in the failed state.
func (r Result) Failed() bool { return r.Status == StatusFailed }

func failure(err error) Result {
	return Result{Status: StatusFailed, Err: err}
}

func upstreamFailure(status int, excerpt string) Result {
	return Result{
		Status:         StatusFailed,
		UpstreamStatus: status,
		Err:            &domain.UpstreamError{Status: status, BodyExcerpt: excerpt},
	}
}
