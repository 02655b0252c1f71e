package hedger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gregtusar/ctdbasis/internal/config"
	"github.com/gregtusar/ctdbasis/pkg/account"
	"github.com/gregtusar/ctdbasis/pkg/snapshot"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const basketCSV = `conid,cusip,coupon,years_to_maturity,original_maturity,conversion_factor,prev_coupon,next_coupon,maturity_date,yield
201,91282AAA1,4.5,2.0,2.1,0.92,20250215,20250815,20270615,4.4
202,91282BBB2,4.25,2.3,2.4,0.91,20250315,20250915,20270915,4.5
`

const quotesCSV = `conid,ticker,year_to_maturity,multiplier,expiry,volume,bid_price,ask_price,bid_yield,ask_yield,last_price
101,ZTU5,0.2,2000,20250930,50000,,,,,103.5
102,ZTZ5,0.45,2000,20251231,40000,,,,,103.25
`

func writeFixtures(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	basketPath := filepath.Join(dir, "basket.csv")
	quotesPath := filepath.Join(dir, "quotes.csv")
	require.NoError(t, os.WriteFile(basketPath, []byte(basketCSV), 0o644))
	require.NoError(t, os.WriteFile(quotesPath, []byte(quotesCSV), 0o644))

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Data.BondBasketPath = basketPath
	cfg.Data.FuturesQuotesPath = quotesPath
	cfg.Snapshot.Dir = filepath.Join(dir, "snapshots")
	return cfg
}

func newTestHedger(t *testing.T, cfg *config.Config, nlv float64) *Hedger {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	snaps := snapshot.NewWriter(cfg.Snapshot.Dir, logger)
	return New(cfg, account.StaticGateway{Value: nlv}, snaps, logger)
}

func TestRunPipeline(t *testing.T) {
	cfg := writeFixtures(t)
	h := newTestHedger(t, cfg, 1000)

	// Monday trade date, so T+1 settlement lands on Tuesday.
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	res, err := h.Run(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, "20250603", res.SettlementDate)
	assert.InDelta(t, 1000.0, res.NetLiquidation, 1e-9)
	assert.InDelta(t, 4000.0, res.SMA, 1e-9)

	// Each contract finds its CTD inside its own delivery window.
	require.Len(t, res.CTDResults, 2)
	assert.Equal(t, "201", res.CTDResults[0].Bond.ConID)
	assert.Equal(t, "202", res.CTDResults[1].Bond.ConID)

	// One eligible ordering degrades into six selection slots.
	require.Len(t, res.RankedPairs, 6)
	assert.Equal(t, "ZTU5", res.RankedPairs[0].A.Contract.Ticker)
	assert.Equal(t, "ZTZ5", res.RankedPairs[0].B.Contract.Ticker)
	assert.Len(t, res.Candidates, 6)

	assert.Same(t, res, h.LastRun())

	for _, name := range []string{"ctd_results.csv", "ranked_pairs.csv", "risk_candidates.csv"} {
		_, err := os.Stat(filepath.Join(cfg.Snapshot.Dir, name))
		assert.NoError(t, err, name)
	}
}

func TestRunKeepsRepeatedFuturesQuotes(t *testing.T) {
	cfg := writeFixtures(t)
	// A second quote row for conid 101 stays a separate contract row;
	// only the bond basket is averaged per conid.
	repeated := quotesCSV + `101,ZTU5,0.2,2000,20250930,50000,,,,,103.4
`
	require.NoError(t, os.WriteFile(cfg.Data.FuturesQuotesPath, []byte(repeated), 0o644))

	h := newTestHedger(t, cfg, 1000)
	res, err := h.Run(context.Background(), time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, res.CTDResults, 3)

	var prices []float64
	for _, r := range res.CTDResults {
		if r.Contract.ConID == "101" {
			prices = append(prices, r.Contract.Price)
		}
	}
	assert.ElementsMatch(t, []float64{103.5, 103.4}, prices)
}

func TestRunFailsOnMissingColumn(t *testing.T) {
	cfg := writeFixtures(t)
	// Strip the volume column from the quotes file.
	broken := `conid,ticker,year_to_maturity,multiplier,expiry,bid_price,ask_price,last_price
101,ZTU5,0.2,2000,20250930,,,103.5
`
	require.NoError(t, os.WriteFile(cfg.Data.FuturesQuotesPath, []byte(broken), 0o644))

	h := newTestHedger(t, cfg, 1000)
	_, err := h.Run(context.Background(), time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "volume")
}

func TestLastRunNilBeforeFirstRun(t *testing.T) {
	cfg := writeFixtures(t)
	h := newTestHedger(t, cfg, 1000)
	assert.Nil(t, h.LastRun())
}
