package common

const (
	ComponentEventIndexer  = "event-indexer"
	ComponentReplayEngine  = "replay-engine"
	ComponentIndexManager  = "index-manager"
	ComponentLiveFollower  = "live-follower"
	ComponentRetention     = "retention"
	ComponentRPC           = "rpc"
	ComponentStore         = "store"
	ComponentNotifier      = "notifier"
	ComponentAPI           = "api"
	ComponentMetricsServer = "metrics-server"
)

var AllComponents = map[string]struct{}{
	ComponentEventIndexer:  {},
	ComponentReplayEngine:  {},
	ComponentIndexManager:  {},
	ComponentLiveFollower:  {},
	ComponentRetention:     {},
	ComponentRPC:           {},
	ComponentStore:         {},
	ComponentNotifier:      {},
	ComponentAPI:           {},
	ComponentMetricsServer: {},
}
