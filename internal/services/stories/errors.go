package stories

import "errors"

var (
	// ErrStoryNotFound covers both a missing record and, on the read
	// path, a record owned by someone else. Non-owners see not-found
	// rather than denied for reads.
	ErrStoryNotFound = errors.New("story not found")

	// ErrNotAuthor is the ownership guard verdict for mutating calls by
	// anyone but the story's author. Distinct from ErrStoryNotFound:
	// existence is always established first.
	ErrNotAuthor = errors.New("requester is not the story author")
)

// BadRequestError rejects an audio upload at one of the ingestion gates
// (presence, type, extension, size) before anything is persisted.
type BadRequestError struct {
	Reason string
}

func (e *BadRequestError) Error() string {
	return e.Reason
}
