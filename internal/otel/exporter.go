package otel

import (
	"os"
	"strings"
)

// Signals exported over OTLP
const (
	signalTraces  = "TRACES"
	signalMetrics = "METRICS"
	signalLogs    = "LOGS"
)

// protocol returns the OTLP protocol for signal. The signal specific
// variable wins over OTEL_EXPORTER_OTLP_PROTOCOL; the default is http.
func protocol(signal string) string {
	for _, key := range []string{"OTEL_EXPORTER_OTLP_" + signal + "_PROTOCOL", "OTEL_EXPORTER_OTLP_PROTOCOL"} {
		if v := strings.ToLower(strings.TrimSpace(os.Getenv(key))); v != "" {
			return v
		}
	}
	return "http/protobuf"
}

func useGRPC(signal string) bool {
	return protocol(signal) == "grpc"
}

// exported reports whether signal has not been switched off with
// OTEL_<SIGNAL>_EXPORTER=none
func exported(signal string) bool {
	return strings.ToLower(strings.TrimSpace(os.Getenv("OTEL_"+signal+"_EXPORTER"))) != "none"
}
