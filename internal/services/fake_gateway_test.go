package services

import (
	"context"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Arden28/flygasal-api/pkg/pkfare"
)

// fakeGateway records calls and answers from canned responses
type fakeGateway struct {
	mu    sync.Mutex
	calls []string

	searchData     *pkfare.SearchData
	searchErr      error
	lastSearch     pkfare.SearchRequest
	pricingData    *pkfare.PricingData
	pricingErr     error
	lastPricing    pkfare.PricingRequest
	bookingData    *pkfare.BookingData
	bookingErr     error
	lastBooking    pkfare.BookingRequest
	orderPricing   error
	ticketingErr   error
	lastTicketing  pkfare.TicketingRequest
	cancelErr      error
	lastCancelPNR  string
	orderDetails   map[string]*pkfare.OrderDetailData
	orderDetailErr error
}

var _ pkfare.Gateway = (*fakeGateway)(nil)

func (g *fakeGateway) record(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, name)
}

func (g *fakeGateway) called(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (g *fakeGateway) Search(ctx context.Context, req pkfare.SearchRequest) (*pkfare.SearchData, error) {
	g.record("search")
	g.lastSearch = req
	return g.searchData, g.searchErr
}

func (g *fakeGateway) PrecisePricing(ctx context.Context, req pkfare.PricingRequest) (*pkfare.PricingData, error) {
	g.record("precise_pricing")
	g.lastPricing = req
	return g.pricingData, g.pricingErr
}

func (g *fakeGateway) CreateBooking(ctx context.Context, req pkfare.BookingRequest) (*pkfare.BookingData, error) {
	g.record("booking")
	g.lastBooking = req
	return g.bookingData, g.bookingErr
}

func (g *fakeGateway) OrderPricing(ctx context.Context, orderNum string) (*pkfare.OrderPricingData, error) {
	g.record("order_pricing")
	if g.orderPricing != nil {
		return nil, g.orderPricing
	}
	return &pkfare.OrderPricingData{OrderNum: orderNum}, nil
}

func (g *fakeGateway) Ticketing(ctx context.Context, req pkfare.TicketingRequest) (*pkfare.TicketingData, error) {
	g.record("ticketing")
	g.lastTicketing = req
	if g.ticketingErr != nil {
		return nil, g.ticketingErr
	}
	return &pkfare.TicketingData{OrderNum: req.OrderNum, Status: "ISS_PRC"}, nil
}

func (g *fakeGateway) Cancel(ctx context.Context, orderNum, virtualPnr string) error {
	g.record("cancel")
	g.lastCancelPNR = virtualPnr
	return g.cancelErr
}

func (g *fakeGateway) OrderDetail(ctx context.Context, orderNum string) (*pkfare.OrderDetailData, error) {
	g.record("order_detail")
	if g.orderDetailErr != nil {
		return nil, g.orderDetailErr
	}
	if d, ok := g.orderDetails[orderNum]; ok {
		return d, nil
	}
	return nil, pkfare.NewProviderError(pkfare.EndpointOrderDetail, "B037", "")
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
