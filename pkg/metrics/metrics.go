package metrics

import "github.com/ServiceWeaver/weaver/metrics"

type EndpointLabel struct {
	Endpoint string
}

type CallLabel struct {
	Endpoint string
	Outcome  string // ok, api, network, unknown
}

type TableLabel struct {
	Table string
	Op    string
}

var (
	// remote client
	RemoteCalls = metrics.NewCounterMap[CallLabel](
		"nework_remote_calls",
		"The number of remote api calls by endpoint and outcome",
	)
	RemoteCallDurationMs = metrics.NewHistogramMap[EndpointLabel](
		"nework_remote_call_duration_ms",
		"Duration of remote api calls in milliseconds",
		metrics.NonNegativeBuckets,
	)
	// local store
	StoreWrites = metrics.NewCounterMap[TableLabel](
		"nework_store_writes",
		"The number of committed local store writes by table and operation",
	)
	ChangesDropped = metrics.NewCounter(
		"nework_changes_dropped",
		"The number of local store changes the change feed failed to publish",
	)
	// auth
	SessionChanges = metrics.NewCounter(
		"nework_session_changes",
		"The number of times the current session was replaced or cleared",
	)
)
