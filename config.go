package pagedb

import "time"

// PageSize is the fixed size, in bytes, of every page in every table file.
// It is process-global and settable by tests.
var PageSize = 4096

// StringLength is the fixed on-disk width of a StringType field.
var StringLength = 32

// lockPollInterval is how long GetPage sleeps between failed lock
// acquisition attempts before retrying.
var lockPollInterval = 500 * time.Millisecond
