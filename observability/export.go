package observability

import (
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// Exporter names the service telemetry is reported as and the OTLP/HTTP
// collector it is sent to.
type Exporter struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the collector host:port, e.g. "localhost:4318".
	Endpoint string
	Insecure bool
}

func (e Exporter) resource() (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(e.ServiceName),
			semconv.ServiceVersion(e.ServiceVersion),
			semconv.DeploymentEnvironment(e.Environment),
		),
	)
}
