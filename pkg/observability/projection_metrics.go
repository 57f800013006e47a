package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricPatternsCompiled   = "projector.patterns.compiled.total"
	metricExtensionsApplied  = "projector.extensions.applied.total"
	metricExtensionsRejected = "projector.extensions.rejected.total"
	metricMatchesTotal       = "projector.matches.total"
	metricNodesScanned       = "projector.scan.nodes.total"
	metricBytesScanned       = "projector.scan.bytes.total"
	metricScanDuration       = "projector.scan.duration.seconds"

	attrLanguage   = "language"
	attrPackage    = "package"
	attrProjection = "projection"
)

// ScanStats summarizes one scan of a document.
type ScanStats struct {
	Language string
	Nodes    int
	Bytes    int
	Duration time.Duration
	// Matches counts matches per projection name.
	Matches map[string]int
}

// ProjectionMetrics holds the domain instruments: compiled patterns, applied
// extensions and scan throughput.
type ProjectionMetrics struct {
	patternsCompiled   metric.Int64Counter
	extensionsApplied  metric.Int64Counter
	extensionsRejected metric.Int64Counter
	matches            metric.Int64Counter
	nodesScanned       metric.Int64Counter
	bytesScanned       metric.Int64Counter
	scanDuration       metric.Float64Histogram
}

// NewProjectionMetrics creates the domain instruments from mt.
func NewProjectionMetrics(mt metric.Meter) (*ProjectionMetrics, error) {
	var (
		pm  ProjectionMetrics
		err error
	)

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&pm.patternsCompiled, metricPatternsCompiled, "Patterns compiled, roots and sub-projections", "{pattern}"},
		{&pm.extensionsApplied, metricExtensionsApplied, "Extension descriptors applied", "{descriptor}"},
		{&pm.extensionsRejected, metricExtensionsRejected, "Extension descriptors rejected", "{descriptor}"},
		{&pm.matches, metricMatchesTotal, "Projection matches found", "{match}"},
		{&pm.nodesScanned, metricNodesScanned, "Syntax nodes visited by the scanner", "{node}"},
		{&pm.bytesScanned, metricBytesScanned, "Source bytes scanned", "By"},
	}

	for _, c := range counters {
		*c.dst, err = mt.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", c.name, err)
		}
	}

	pm.scanDuration, err = mt.Float64Histogram(metricScanDuration,
		metric.WithDescription("Scan duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricScanDuration, err)
	}

	return &pm, nil
}

// RecordCompiled counts n patterns compiled for a package.
func (pm *ProjectionMetrics) RecordCompiled(ctx context.Context, pkg string, n int) {
	if pm == nil {
		return
	}

	pm.patternsCompiled.Add(ctx, int64(n), metric.WithAttributes(attribute.String(attrPackage, pkg)))
}

// RecordExtension counts applied and rejected descriptors for a package.
func (pm *ProjectionMetrics) RecordExtension(ctx context.Context, pkg string, applied, rejected int) {
	if pm == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrPackage, pkg))
	pm.extensionsApplied.Add(ctx, int64(applied), attrs)
	pm.extensionsRejected.Add(ctx, int64(rejected), attrs)
}

// RecordScan records one finished scan.
func (pm *ProjectionMetrics) RecordScan(ctx context.Context, stats ScanStats) {
	if pm == nil {
		return
	}

	lang := attribute.String(attrLanguage, stats.Language)
	attrs := metric.WithAttributes(lang)

	pm.nodesScanned.Add(ctx, int64(stats.Nodes), attrs)
	pm.bytesScanned.Add(ctx, int64(stats.Bytes), attrs)
	pm.scanDuration.Record(ctx, stats.Duration.Seconds(), attrs)

	for name, count := range stats.Matches {
		pm.matches.Add(ctx, int64(count), metric.WithAttributes(lang, attribute.String(attrProjection, name)))
	}
}
