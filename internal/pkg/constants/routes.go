package constants

// Static route constants
const (
	APIRoute             = "/api"
	APIV1Route           = "/v1"
	PingRoute            = "/ping"
	PlansRoute           = "/plans"
	CacheInvalidateRoute = "/cache/invalidate"
	MetricsRoute         = "/metrics"
)
