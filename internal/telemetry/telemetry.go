// Package telemetry wires OpenTelemetry metrics to a Prometheus endpoint.
package telemetry

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"
)

// ServiceName labels every exported series.
const ServiceName = "sonify"

// Provider owns a meter provider and the HTTP handler that exposes it.
type Provider struct {
	meters  *sdkmetric.MeterProvider
	handler http.Handler
}

// New builds a provider backed by a private Prometheus registry.
func New(ctx context.Context) (*Provider, error) {
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(ServiceName)))
	if err != nil {
		return nil, err
	}
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, err
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	return &Provider{
		meters:  mp,
		handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}, nil
}

func (p *Provider) MeterProvider() metric.MeterProvider { return p.meters }

// Handler serves the metrics in Prometheus text format.
func (p *Provider) Handler() http.Handler { return p.handler }

func (p *Provider) Shutdown(ctx context.Context) error { return p.meters.Shutdown(ctx) }
