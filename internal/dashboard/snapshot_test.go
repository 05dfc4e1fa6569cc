package dashboard

import (
	"testing"

	"marketmaker/internal/book"
	"marketmaker/internal/config"
	"marketmaker/internal/risk"
	"marketmaker/pkg/decimal"
	"marketmaker/pkg/types"
)

func emptyDashboardConfig() config.DashboardConfig {
	return config.DashboardConfig{}
}

type fakeProvider struct {
	symbol   string
	snapshot book.Snapshot
	mid      decimal.Decimal
	haveMid  bool
	rsi      decimal.Decimal
	haveRSI  bool
	position types.Position
	pending  []types.Order
	risk     risk.Snapshot
}

func (p *fakeProvider) Symbol() string                { return p.symbol }
func (p *fakeProvider) BookSnapshot() book.Snapshot    { return p.snapshot }
func (p *fakeProvider) MidPrice() (decimal.Decimal, bool) { return p.mid, p.haveMid }
func (p *fakeProvider) Indicator(name string) (decimal.Decimal, bool) {
	if name == "rsi" {
		return p.rsi, p.haveRSI
	}
	return decimal.Zero, false
}
func (p *fakeProvider) Position() types.Position      { return p.position }
func (p *fakeProvider) PendingOrders() []types.Order  { return p.pending }
func (p *fakeProvider) RiskSnapshot() risk.Snapshot   { return p.risk }

func TestBuildSnapshotIncludesBookMidAndPending(t *testing.T) {
	t.Parallel()
	p := &fakeProvider{
		symbol: "BTCUSD",
		snapshot: book.Snapshot{
			Bids: []types.PriceLevel{{Price: decimal.MustParse("99"), Size: decimal.MustParse("1")}},
			Asks: []types.PriceLevel{{Price: decimal.MustParse("101"), Size: decimal.MustParse("1")}},
		},
		mid: decimal.MustParse("100"), haveMid: true,
		pending: []types.Order{{OID: 1, Symbol: "BTCUSD", Side: types.Bid, Price: decimal.MustParse("99"), Size: decimal.MustParse("1")}},
		risk:    risk.Snapshot{PositionSize: decimal.Zero, MaxPositionSize: decimal.MustParse("10")},
	}

	snap := BuildSnapshot(p)

	if snap.Symbol != "BTCUSD" || snap.MidPrice != "100.000000" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.BestBid == nil || snap.BestBid.Price != "99.000000" {
		t.Fatalf("unexpected best bid: %+v", snap.BestBid)
	}
	if len(snap.Pending) != 1 || snap.Pending[0].OID != 1 {
		t.Fatalf("unexpected pending orders: %+v", snap.Pending)
	}
}

func TestBuildSnapshotFlatPositionOmitsFields(t *testing.T) {
	t.Parallel()
	p := &fakeProvider{symbol: "BTCUSD"}
	snap := BuildSnapshot(p)
	if snap.Position.Open {
		t.Fatalf("expected flat position, got %+v", snap.Position)
	}
}

func TestIsOriginAllowedLocalhostDefault(t *testing.T) {
	t.Parallel()
	cfg := emptyDashboardConfig()
	if !isOriginAllowed("http://localhost:3000", cfg, "example.com:8080") {
		t.Fatal("expected localhost origin to be allowed by default")
	}
}

func TestIsOriginAllowedRejectsUnlistedOrigin(t *testing.T) {
	t.Parallel()
	cfg := emptyDashboardConfig()
	cfg.AllowedOrigins = []string{"https://dashboard.example.com"}
	if isOriginAllowed("https://evil.example.com", cfg, "dashboard.example.com") {
		t.Fatal("expected unlisted origin to be rejected")
	}
	if !isOriginAllowed("https://dashboard.example.com", cfg, "dashboard.example.com") {
		t.Fatal("expected listed origin to be allowed")
	}
}
