package common

import (
	"fmt"
	"strconv"
	"time"

	"github.com/GrantWise/factory-board-sub001/internal/constants"
)

func GetResponseTime(init time.Time) string {
	timeDiff := time.Since(init).Milliseconds()
	return fmt.Sprintf("%dms", timeDiff)
}

// ParseLimit reads a positive limit, falling back to def and capping at constants.MaxPageSize
func ParseLimit(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > constants.MaxPageSize {
		return constants.MaxPageSize
	}
	return n
}

// ParseOffset reads a non-negative offset, zero when absent or malformed
func ParseOffset(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ConnectionConfigCacheKey is the cache key of a parsed connection config
func ConnectionConfigCacheKey(connectionID string) string {
	return string(constants.CachePrefixConnectionConfig) + connectionID
}
