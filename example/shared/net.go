package shared

const (
	DefaultServerAddr  = "127.0.0.1:4500"
	DefaultMetricsAddr = "127.0.0.1:9100"
)
