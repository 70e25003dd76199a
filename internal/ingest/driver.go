package ingest

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsaops/jsaingest/internal/fitsheader"
	"github.com/jsaops/jsaingest/internal/telemetry"
)

// FileResult is one file's disposition within a batch.
type FileResult struct {
	Name     string
	FileID   string
	Errors   []string
	Warnings []string
}

// Result summarizes a batch. Under dry run the counts reflect what a
// real run would have stored and removed.
type Result struct {
	Files               []FileResult
	FilesWithErrors     int
	FilesWithWarnings   int
	ObservationsStored  int
	ObservationsRemoved int
	PlanesRemoved       int
	UnresolvedInputs    int
	EarliestMJD         float64
	EarliestObsID       string
}

// HasErrors reports whether any file was rejected.
func (r *Result) HasErrors() bool { return r.FilesWithErrors > 0 }

// HasWarnings reports whether any file drew warnings.
func (r *Result) HasWarnings() bool { return r.FilesWithWarnings > 0 }

// Run ingests a batch of header files. Files are processed in base
// name order, which places raw-like products ahead of the derived
// products that list them as inputs. Files with errors contribute
// nothing to the archive; the rest are folded into their observations,
// written, and finally the planes their recipe instances obsoleted are
// cleaned up. A non-nil error means a catalog or archive operation
// failed and the batch stopped early.
func (s *Session) Run(ctx context.Context, files []fitsheader.File) (*Result, error) {
	tracer := telemetry.Tracer("jsaingest")
	ctx, span := tracer.Start(ctx, "ingest.run", trace.WithAttributes(
		attribute.String("collection", s.cfg.Collection),
		attribute.Int("batch.files", len(files)),
		attribute.Bool("dry_run", s.cfg.DryRun),
	))
	defer span.End()

	sorted := make([]fitsheader.File, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool {
		if bi, bj := sorted[i].Base(), sorted[j].Base(); bi != bj {
			return bi < bj
		}
		return sorted[i].Path < sorted[j].Path
	})

	s.log.Info("ingesting batch",
		"collection", s.cfg.Collection,
		"files", len(sorted),
		"dry_run", s.cfg.DryRun)

	res := &Result{}
	for _, f := range sorted {
		ck, st, err := s.buildFile(ctx, f)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		res.Files = append(res.Files, FileResult{
			Name:     ck.Name(),
			FileID:   st.fileID,
			Errors:   ck.Errors(),
			Warnings: ck.Warnings(),
		})
		for _, w := range ck.Warnings() {
			s.log.Warn(w, "file", ck.Name())
		}
		for _, e := range ck.Errors() {
			s.log.Error(e, "file", ck.Name())
		}
		if ck.HasWarnings() {
			res.FilesWithWarnings++
		}
		if ck.HasErrors() {
			res.FilesWithErrors++
			continue
		}
		if st.runID != "" {
			if err := s.noteRunID(ctx, st.runID); err != nil {
				span.RecordError(err)
				return nil, err
			}
		}
		s.merge(st)
	}

	unresolved, err := s.checkProvenanceInputs(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	res.UnresolvedInputs = unresolved

	for _, uri := range s.sortedPlannedURIs() {
		removed, err := s.writeObservation(ctx, s.planned[uri])
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		res.PlanesRemoved += removed
		res.ObservationsStored++
	}

	obsRemoved, planesRemoved, err := s.removeObsolete(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	res.ObservationsRemoved = obsRemoved
	res.PlanesRemoved += planesRemoved

	res.EarliestMJD = s.earliestMJD
	res.EarliestObsID = s.earliestObsID

	s.log.Info("batch complete",
		"stored", res.ObservationsStored,
		"files_with_errors", res.FilesWithErrors,
		"files_with_warnings", res.FilesWithWarnings,
		"unresolved_inputs", res.UnresolvedInputs,
		"planes_removed", res.PlanesRemoved,
		"observations_removed", res.ObservationsRemoved)

	s.recordMetrics(ctx, len(sorted), res)
	span.SetAttributes(
		attribute.Int("batch.stored", res.ObservationsStored),
		attribute.Int("batch.errors", res.FilesWithErrors),
	)
	return res, nil
}

func (s *Session) recordMetrics(ctx context.Context, total int, res *Result) {
	meter := telemetry.Meter("jsaingest")
	attrs := metric.WithAttributes(attribute.String("collection", s.cfg.Collection))
	if c, err := meter.Int64Counter("jsaingest.files.ingested"); err == nil {
		c.Add(ctx, int64(total-res.FilesWithErrors), attrs)
	}
	if c, err := meter.Int64Counter("jsaingest.files.rejected"); err == nil {
		c.Add(ctx, int64(res.FilesWithErrors), attrs)
	}
	if c, err := meter.Int64Counter("jsaingest.observations.stored"); err == nil {
		c.Add(ctx, int64(res.ObservationsStored), attrs)
	}
	if c, err := meter.Int64Counter("jsaingest.planes.removed"); err == nil {
		c.Add(ctx, int64(res.PlanesRemoved), attrs)
	}
	if c, err := meter.Int64Counter("jsaingest.inputs.unresolved"); err == nil {
		c.Add(ctx, int64(res.UnresolvedInputs), attrs)
	}
}
