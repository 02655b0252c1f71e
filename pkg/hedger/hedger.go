// Package hedger orchestrates one analysis run: ingest the bond basket
// and futures quotes, select CTDs, build and rank hedge pairs, screen
// the candidates, and retain the result for the API layer.
package hedger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gregtusar/ctdbasis/internal/config"
	"github.com/gregtusar/ctdbasis/pkg/account"
	"github.com/gregtusar/ctdbasis/pkg/ctd"
	"github.com/gregtusar/ctdbasis/pkg/fincalc"
	"github.com/gregtusar/ctdbasis/pkg/ingest"
	"github.com/gregtusar/ctdbasis/pkg/models"
	"github.com/gregtusar/ctdbasis/pkg/pairing"
	"github.com/gregtusar/ctdbasis/pkg/ranker"
	"github.com/gregtusar/ctdbasis/pkg/risk"
	"github.com/gregtusar/ctdbasis/pkg/snapshot"
	"github.com/sirupsen/logrus"
)

// Result is the complete output of one pipeline run.
type Result struct {
	RunAt          time.Time               `json:"run_at"`
	SettlementDate string                  `json:"settlement_date"`
	NetLiquidation float64                 `json:"net_liquidation"`
	SMA            float64                 `json:"sma"`
	CTDResults     []models.CTDResult      `json:"ctd_results"`
	RankedPairs    []models.HedgePair      `json:"ranked_pairs"`
	Candidates     []models.OrderCandidate `json:"candidates"`
	Order          *models.OrderCandidate  `json:"order,omitempty"`
}

type Hedger struct {
	cfg       *config.Config
	gateway   account.Gateway
	snapshots *snapshot.Writer
	logger    *logrus.Logger

	mu   sync.RWMutex
	last *Result
}

// New wires the pipeline. snapshots may be nil to disable artifacts.
func New(cfg *config.Config, gateway account.Gateway, snapshots *snapshot.Writer, logger *logrus.Logger) *Hedger {
	return &Hedger{
		cfg:       cfg,
		gateway:   gateway,
		snapshots: snapshots,
		logger:    logger,
	}
}

// Run executes the pipeline once. Configuration is read at entry, so a
// run is unaffected by later config changes. Contract-level skips are
// tolerated; a missing input column or an unreachable gateway fails
// the whole run.
func (h *Hedger) Run(ctx context.Context, now time.Time) (*Result, error) {
	cfg := *h.cfg
	h.logger.WithField("run_at", now).Info("Starting hedge analysis run")

	basketRecords, err := ingest.ReadCSV(cfg.Data.BondBasketPath)
	if err != nil {
		return nil, fmt.Errorf("reading bond basket: %w", err)
	}
	bonds, dropped, err := ingest.ParseBondBasket(basketRecords)
	if err != nil {
		return nil, fmt.Errorf("parsing bond basket: %w", err)
	}
	if dropped > 0 {
		h.logger.WithField("dropped", dropped).Warn("Dropped incomplete bond basket rows")
	}

	quoteRecords, err := ingest.ReadCSV(cfg.Data.FuturesQuotesPath)
	if err != nil {
		return nil, fmt.Errorf("reading futures quotes: %w", err)
	}
	futures, err := ingest.ExpandFuturesQuotes(quoteRecords)
	if err != nil {
		return nil, fmt.Errorf("parsing futures quotes: %w", err)
	}
	h.logger.WithFields(logrus.Fields{
		"bonds":   len(bonds),
		"futures": len(futures),
	}).Info("Ingested market data")

	settle := fincalc.SettlementDate(now, cfg.Trading.SettlementLagDays).Format("20060102")
	selector := ctd.NewSelector(nil, settle, h.logger)
	ctdResults := selector.SelectAll(futures, bonds)

	combinator := pairing.NewCombinator(cfg.Trading.MaxDeferralDays, cfg.Trading.DaysInYear)
	pairs := combinator.BuildPairs(ctdResults)
	h.logger.WithFields(logrus.Fields{
		"ctd_results": len(ctdResults),
		"pairs":       len(pairs),
	}).Info("Built hedge pair universe")

	nlv, err := h.gateway.NetLiquidationValue(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching net liquidation value: %w", err)
	}

	rk := ranker.NewRanker(ranker.Params{
		Leverage:              cfg.Trading.Leverage,
		SMAThreshold:          cfg.Trading.SMAThreshold,
		VolumeScale:           cfg.Trading.VolumeScale,
		LongEligibilityYears:  cfg.Trading.LongEligibilityDays / float64(cfg.Trading.DaysInYear),
		ShortEligibilityYears: cfg.Trading.ShortEligibilityDays / float64(cfg.Trading.DaysInYear),
	}, h.logger)
	ranked, sma := rk.Rank(pairs, nlv, now)

	screener := risk.NewScreener(risk.Limits{
		LegDelta:         cfg.Risk.LegDelta,
		ScenarioLimit:    cfg.Risk.ScenarioLimit,
		OverlayLimit:     cfg.Risk.OverlayLimit,
		EquityDeltaLimit: cfg.Risk.EquityDeltaLimit,
		MaxCandidates:    cfg.Risk.MaxCandidates,
	}, h.logger)
	order, candidates := screener.Screen(ranked)

	result := &Result{
		RunAt:          now,
		SettlementDate: settle,
		NetLiquidation: nlv,
		SMA:            sma,
		CTDResults:     ctdResults,
		RankedPairs:    ranked,
		Candidates:     candidates,
		Order:          order,
	}

	if h.snapshots != nil {
		if err := h.writeSnapshots(result); err != nil {
			h.logger.WithError(err).Warn("Failed to write run snapshots")
		}
	}

	h.mu.Lock()
	h.last = result
	h.mu.Unlock()

	if order != nil {
		h.logger.WithFields(logrus.Fields{
			"a_ticker": order.Pair.A.Contract.Ticker,
			"b_ticker": order.Pair.B.Contract.Ticker,
			"a_lots":   order.Pair.A.Lots,
			"b_lots":   order.Pair.B.Lots,
		}).Info("Run produced an executable order")
	} else {
		h.logger.Info("Run produced no executable order")
	}
	return result, nil
}

func (h *Hedger) writeSnapshots(res *Result) error {
	if err := h.snapshots.WriteCTDResults(res.CTDResults); err != nil {
		return err
	}
	if err := h.snapshots.WriteRankedPairs(res.RankedPairs); err != nil {
		return err
	}
	return h.snapshots.WriteCandidates(res.Candidates)
}

// LastRun returns the most recent result, or nil before the first run.
func (h *Hedger) LastRun() *Result {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last
}
