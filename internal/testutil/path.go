package testutil

import "strconv"

// ID formats an ID for a request path.
func ID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
