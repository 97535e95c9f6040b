package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/domain/records"
	"github.com/hms/hms/internal/platform/metrics"
)

type Service struct {
	reader           records.SnapshotReader
	logger           zerolog.Logger
	metrics          *metrics.Metrics
	defaultCondition string
	now              func() time.Time
}

// NewService creates a report service. m may be nil to disable metrics.
// defaultCondition fills the condition parameter when a caller leaves it out.
func NewService(reader records.SnapshotReader, logger zerolog.Logger, m *metrics.Metrics, defaultCondition string) *Service {
	return &Service{
		reader:           reader,
		logger:           logger,
		metrics:          m,
		defaultCondition: defaultCondition,
		now:              time.Now,
	}
}

// List returns every report definition.
func (s *Service) List() []Definition {
	return Catalog
}

// Run reads a fresh snapshot and evaluates report id against it. Parameters
// the report does not declare are ignored.
func (s *Service) Run(ctx context.Context, id string, params map[string]string) (*Report, error) {
	def := FindReport(id)
	if def == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownReport, id)
	}

	resolved, err := s.resolveParams(def, params)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := s.evaluate(ctx, def, resolved)
	elapsed := time.Since(start)
	s.metrics.ObserveReport(def.ID, err, elapsed, len(rows))

	if err != nil {
		s.logger.Error().
			Err(err).
			Str("report", def.ID).
			Interface("parameters", resolved).
			Dur("latency", elapsed).
			Msg("report failed")
		return nil, err
	}

	s.logger.Info().
		Str("report", def.ID).
		Interface("parameters", resolved).
		Int("rows", len(rows)).
		Dur("latency", elapsed).
		Msg("report evaluated")

	return &Report{
		ReportID:    def.ID,
		ReportName:  def.Name,
		GeneratedAt: s.now().UTC(),
		Parameters:  resolved,
		RowCount:    len(rows),
		Results:     rows,
	}, nil
}

func (s *Service) evaluate(ctx context.Context, def *Definition, params map[string]string) ([]Row, error) {
	snap, err := s.reader.ReadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	return def.Evaluate(snap, params)
}

func (s *Service) resolveParams(def *Definition, params map[string]string) (map[string]string, error) {
	resolved := make(map[string]string, len(def.Parameters))
	for _, name := range def.Parameters {
		v := params[name]
		if v == "" && name == ParamCondition {
			v = s.defaultCondition
		}
		if v == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingParameter, name)
		}
		resolved[name] = v
	}
	return resolved, nil
}
