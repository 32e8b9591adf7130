package notice

import "errors"

// ErrMalformedDocument reports that a required structural anchor is missing
// from parsed markup. It is fatal to the posting or listing page it came
// from; callers match it with errors.Is.
var ErrMalformedDocument = errors.New("malformed document")
