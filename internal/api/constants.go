package api

// API limits and constants.
const (
	// UnlimitedPushBody disables huma's body cap on the push route. The
	// whole dirty set travels in one request.
	UnlimitedPushBody = -1
)

// Cache-Control header values.
const (
	CacheNoStore = "no-store"
)
