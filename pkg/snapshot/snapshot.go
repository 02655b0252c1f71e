// Package snapshot writes per-stage CSV artifacts of a pipeline run so
// results can be diffed and replayed outside the process.
package snapshot

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gregtusar/ctdbasis/pkg/models"
	"github.com/sirupsen/logrus"
)

type Writer struct {
	dir    string
	logger *logrus.Logger
}

func NewWriter(dir string, logger *logrus.Logger) *Writer {
	return &Writer{dir: dir, logger: logger}
}

func (w *Writer) write(name string, header []string, rows [][]string) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}
	path := filepath.Join(w.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating snapshot %s: %w", name, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	w.logger.WithFields(logrus.Fields{"path": path, "rows": len(rows)}).Info("Wrote snapshot")
	return nil
}

func f64(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func metric(m models.Metric) string {
	if !m.Valid {
		return ""
	}
	return f64(m.Value)
}

// WriteCTDResults snapshots the selector stage.
func (w *Writer) WriteCTDResults(results []models.CTDResult) error {
	header := []string{
		"ticker", "fut_conid", "fut_price", "fut_volume", "ctd_conid", "ctd_cusip",
		"conversion_factor", "dirty_price", "gross_basis", "implied_repo", "carry",
	}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.Contract.Ticker, r.Contract.ConID, f64(r.Contract.Price), f64(r.Contract.Volume),
			r.Bond.ConID, r.Bond.CUSIP, f64(r.Bond.ConversionFactor),
			f64(r.DirtyPrice), f64(r.GrossBasis), f64(r.ImpliedRepo), f64(r.Carry),
		})
	}
	return w.write("ctd_results.csv", header, rows)
}

func legColumns(prefix string) []string {
	return []string{
		prefix + "_ticker", prefix + "_fut_conid", prefix + "_ctd_conid",
		prefix + "_quantity", prefix + "_lots", prefix + "_days",
		prefix + "_accrued_interest", prefix + "_carry", prefix + "_net_basis",
		prefix + "_fut_dv01",
	}
}

func legValues(leg models.Leg) []string {
	return []string{
		leg.Contract.Ticker, leg.Contract.ConID, leg.Bond.ConID,
		strconv.Itoa(leg.Quantity), strconv.Itoa(leg.Lots), strconv.Itoa(leg.Days),
		f64(leg.AccruedInterest), metric(leg.Carry), metric(leg.NetBasis),
		metric(leg.Analytics.FutDV01),
	}
}

// WriteRankedPairs snapshots the ranker stage output.
func (w *Writer) WriteRankedPairs(pairs []models.HedgePair) error {
	header := append(append([]string{}, legColumns("a")...), legColumns("b")...)
	header = append(header, "position_net_basis", "volume_weight", "score")

	rows := make([][]string, 0, len(pairs))
	for _, p := range pairs {
		row := append(append([]string{}, legValues(p.A)...), legValues(p.B)...)
		row = append(row, metric(p.PositionNetBasis), metric(p.VolumeWeight), metric(p.Score))
		rows = append(rows, row)
	}
	return w.write("ranked_pairs.csv", header, rows)
}

// WriteCandidates snapshots the risk stage: one row per candidate and
// risk metric, with its gate result.
func (w *Writer) WriteCandidates(candidates []models.OrderCandidate) error {
	header := []string{"candidate", "group", "metric", "value", "valid", "passed"}
	var rows [][]string
	for i, cand := range candidates {
		groups := []struct {
			name    string
			metrics []models.RiskMetric
		}{
			{"scenario", cand.Scenarios},
			{"overlay", cand.Overlays},
			{"equity_delta", cand.EquityDeltas},
		}
		for _, g := range groups {
			for _, m := range g.metrics {
				rows = append(rows, []string{
					strconv.Itoa(i), g.name, m.Name, f64(m.Value),
					strconv.FormatBool(m.Valid), strconv.FormatBool(m.Passed),
				})
			}
		}
	}
	return w.write("risk_candidates.csv", header, rows)
}
