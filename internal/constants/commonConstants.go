package constants

type (
	APIStatus   string
	CachePrefix string
)

const (
	APIStatusOk    APIStatus = "ok"
	APIStatusError APIStatus = "error"

	CachePrefixConnectionConfig CachePrefix = "ERP_CONN_CFG_"
)

// MaxPageSize caps limit parameters on list queries
const MaxPageSize = 500

// DefaultNeedingSyncLimit bounds the order link worklist when the caller passes no limit
const DefaultNeedingSyncLimit = 100

// FailureHistoryLimit is how many failure entries sync metadata keeps
const FailureHistoryLimit = 10

// Import log windows, in days
const (
	DefaultStatsWindowDays     = 30
	DefaultImportRetentionDays = 90
)
