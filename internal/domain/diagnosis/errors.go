package diagnosis

import "errors"

// FailureMessage is the only error text shown to end users. The real
// cause goes to logs and the error audit table.
const FailureMessage = "Failed to analyze image. Please try again with a clearer photo."

// ErrQuotaExceeded indicates the model provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("model quota exceeded")

// ErrUnsupportedImage indicates a content type outside the allow-list.
var ErrUnsupportedImage = errors.New("unsupported image type")

// ErrEmptyImage indicates a submission without image bytes.
var ErrEmptyImage = errors.New("empty image payload")
