package ctd

import (
	"testing"

	"github.com/gregtusar/ctdbasis/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBond(conid string, ytm, coupon, yield float64) models.DeliverableBond {
	return models.DeliverableBond{
		ConID:            conid,
		CUSIP:            "CUSIP" + conid,
		Coupon:           coupon,
		MaturityDate:     "20270815",
		PrevCoupon:       "20250215",
		NextCoupon:       "20250815",
		YearsToMaturity:  ytm,
		OriginalMaturity: 2.0,
		ConversionFactor: 0.92,
		Yield:            yield,
	}
}

func testContract(ticker string, ytm float64) models.FuturesContract {
	return models.FuturesContract{
		ConID: "F-" + ticker, Ticker: ticker, Expiry: "20250930",
		YearsToMaturity: ytm, Multiplier: 2000, Price: 103.5,
		Volume: 50000, Source: models.QuoteBid,
	}
}

func newTestSelector() *Selector {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewSelector(nil, "20250601", logger)
}

func TestSelectPicksMinimumImpliedRepo(t *testing.T) {
	s := newTestSelector()
	fut := testContract("ZTU5", 0.1)

	// All within the ZT window [0.1+1.72, 0.1+2.03], same maturity.
	// A lower yield means a higher dirty price and a more negative
	// basis-over-price ratio, so the lowest-yield bond has minimum IRR.
	basket := []models.DeliverableBond{
		testBond("1", 1.9, 4.5, 0.050),
		testBond("2", 1.9, 4.5, 0.040),
		testBond("3", 1.9, 4.5, 0.045),
	}

	res, ok := s.Select(fut, basket)
	require.True(t, ok)
	assert.Equal(t, "2", res.Bond.ConID)

	// Deterministic across repeated runs and ties break to the first
	// encountered candidate.
	for i := 0; i < 5; i++ {
		again, ok := s.Select(fut, basket)
		require.True(t, ok)
		assert.Equal(t, res.Bond.ConID, again.Bond.ConID)
	}

	dup := testBond("dup", 1.9, 4.5, 0.040)
	res, ok = s.Select(fut, append([]models.DeliverableBond{dup}, basket...))
	require.True(t, ok)
	assert.Equal(t, "dup", res.Bond.ConID)
}

func TestSelectFiltersWindowAndOriginalMaturity(t *testing.T) {
	s := newTestSelector()
	fut := testContract("ZTU5", 0.1)

	tooShort := testBond("short", 1.0, 4.5, 0.04)
	tooLong := testBond("long", 3.0, 4.5, 0.04)
	tooOld := testBond("old", 1.9, 4.5, 0.04)
	tooOld.OriginalMaturity = 30.0
	eligible := testBond("ok", 1.9, 4.5, 0.04)

	res, ok := s.Select(fut, []models.DeliverableBond{tooShort, tooLong, tooOld, eligible})
	require.True(t, ok)
	assert.Equal(t, "ok", res.Bond.ConID)
}

func TestSelectSkipsUnknownProduct(t *testing.T) {
	s := newTestSelector()
	_, ok := s.Select(testContract("XX99", 0.1), []models.DeliverableBond{testBond("1", 1.9, 4.5, 0.04)})
	assert.False(t, ok)
}

func TestSelectSkipsEmptyPool(t *testing.T) {
	s := newTestSelector()
	_, ok := s.Select(testContract("ZTU5", 0.1), nil)
	assert.False(t, ok)
}

func TestSelectAllSkipsWithoutFailing(t *testing.T) {
	s := newTestSelector()
	basket := []models.DeliverableBond{testBond("1", 1.9, 4.5, 0.04)}
	results := s.SelectAll([]models.FuturesContract{
		testContract("ZTU5", 0.1),
		testContract("XX99", 0.1), // unknown prefix, skipped
		testContract("TNM5", 0.2), // empty pool, skipped
	}, basket)
	require.Len(t, results, 1)
	assert.Equal(t, "ZTU5", results[0].Contract.Ticker)
}

func TestGrossBasisDefinition(t *testing.T) {
	s := newTestSelector()
	fut := testContract("ZTU5", 0.1)
	bond := testBond("1", 1.9, 4.5, 0.04)

	res, ok := s.Select(fut, []models.DeliverableBond{bond})
	require.True(t, ok)
	assert.InDelta(t, fut.Price*bond.ConversionFactor-res.DirtyPrice, res.GrossBasis, 1e-9)
}
