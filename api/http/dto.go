package http

import (
	"fmt"

	"github.com/shopspring/decimal"

	"hermes/domain/market"
)

// Monetary values cross the API as decimal strings and live inside the
// engine as int64 fixed point. The conversion happens here and nowhere else.

var scale = decimal.NewFromInt(market.Scale)

func parseFixed(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid decimal %q", s)
	}
	if d.Sign() <= 0 {
		return 0, fmt.Errorf("value must be positive")
	}
	v := d.Mul(scale)
	if !v.IsInteger() {
		return 0, fmt.Errorf("value %q exceeds 8 decimal places", s)
	}
	return v.IntPart(), nil
}

func formatFixed(v int64) string {
	return decimal.New(v, -8).String()
}

func parseSide(s string) (market.Side, error) {
	switch s {
	case "buy":
		return market.Buy, nil
	case "sell":
		return market.Sell, nil
	default:
		return 0, fmt.Errorf("invalid side %q", s)
	}
}

func parseOrderType(s string) (market.OrderType, error) {
	switch s {
	case "market":
		return market.OrderTypeMarket, nil
	case "limit":
		return market.OrderTypeLimit, nil
	case "stop_limit":
		return market.OrderTypeStopLimit, nil
	default:
		return 0, fmt.Errorf("invalid order type %q", s)
	}
}

type placeOrderRequest struct {
	Coin    int32  `json:"coin"`
	Base    int32  `json:"base"`
	Side    string `json:"side" binding:"required"`
	Type    string `json:"type" binding:"required"`
	UserID  int64  `json:"user_id" binding:"required"`
	Amount  string `json:"amount" binding:"required"`
	Price   string `json:"price"`
	Trigger string `json:"trigger"`
}

type cancelOrderRequest struct {
	Coin    int32  `json:"coin"`
	Base    int32  `json:"base"`
	Side    string `json:"side" binding:"required"`
	Type    string `json:"type" binding:"required"`
	OrderID int64  `json:"order_id" binding:"required"`
	Price   string `json:"price" binding:"required"`
}

type cancelAllRequest struct {
	Coin   int32 `json:"coin"`
	Base   int32 `json:"base"`
	UserID int64 `json:"user_id" binding:"required"`
}

type createMarketRequest struct {
	Coin               int32   `json:"coin"`
	Base               int32   `json:"base"`
	FeePercent         float64 `json:"fee_percent" binding:"required"`
	MaxOpenLimitOrders int32   `json:"max_open_limit_orders" binding:"required"`
	MaxOpenStopOrders  int32   `json:"max_open_stop_orders" binding:"required"`
}

type fundsRequest struct {
	AssetID int32  `json:"asset_id"`
	UserID  int64  `json:"user_id" binding:"required"`
	Amount  string `json:"amount" binding:"required"`
}

type eventResponse struct {
	Type        string `json:"type"`
	TradeID     int64  `json:"trade_id,omitempty"`
	BuyOrderID  int64  `json:"buy_order_id,omitempty"`
	SellOrderID int64  `json:"sell_order_id,omitempty"`
	OrderID     int64  `json:"order_id,omitempty"`
	UserID      int64  `json:"user_id,omitempty"`
	Side        string `json:"side,omitempty"`
	OrderType   string `json:"order_type,omitempty"`
	Amount      string `json:"amount,omitempty"`
	Filled      string `json:"filled,omitempty"`
	Price       string `json:"price,omitempty"`
	Trigger     string `json:"trigger,omitempty"`
	BuyFee      string `json:"buy_fee,omitempty"`
	SellFee     string `json:"sell_fee,omitempty"`
}

func toEventResponses(events []market.Event) []eventResponse {
	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		r := eventResponse{Type: e.Type.String()}
		switch e.Type {
		case market.EventNewTrade:
			r.TradeID = e.TradeID
			r.BuyOrderID = e.BuyOrderID
			r.SellOrderID = e.SellOrderID
			r.Amount = formatFixed(e.Amount)
			r.Price = formatFixed(e.Price)
			r.BuyFee = formatFixed(e.Fees.Buy)
			r.SellFee = formatFixed(e.Fees.Sell)
		case market.EventOrderFilled:
			r.OrderID = e.OrderID
		case market.EventPartialFill:
			r.OrderID = e.OrderID
			r.Amount = formatFixed(e.Amount)
		case market.EventNewOpenOrder, market.EventNewFilledOrder:
			r.OrderID = e.OrderID
			r.UserID = e.UserID
			r.Side = e.Side.String()
			r.OrderType = e.OrderType.String()
			r.Amount = formatFixed(e.Amount)
			r.Filled = formatFixed(e.Filled)
			r.Price = formatFixed(e.Price)
			if e.Trigger != 0 {
				r.Trigger = formatFixed(e.Trigger)
			}
		case market.EventStopLimitTriggered:
			r.OrderID = e.OrderID
			r.TradeID = e.TradeID
		}
		out = append(out, r)
	}
	return out
}

type bookEntryResponse struct {
	Price   string `json:"price"`
	OrderID int64  `json:"order_id"`
	UserID  int64  `json:"user_id"`
	Amount  string `json:"amount"`
	Filled  string `json:"filled"`
}

func toBookResponse(entries []market.BookEntry) []bookEntryResponse {
	out := make([]bookEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, bookEntryResponse{
			Price:   formatFixed(e.Price),
			OrderID: e.Order.ID,
			UserID:  e.Order.UserID,
			Amount:  formatFixed(e.Order.Amount),
			Filled:  formatFixed(e.Order.Filled),
		})
	}
	return out
}
