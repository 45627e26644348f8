package quote

import "errors"

// ErrUnavailable reports that a quote could not be fetched this cycle: the
// request failed, timed out, or the page carried no numeric price. Never
// fatal; the instrument keeps its prior snapshot.
var ErrUnavailable = errors.New("quote unavailable")
