package market

import "errors"

// ErrorKind classifies a rejection so callers can react without parsing
// messages.
type ErrorKind uint8

const (
	KindInternal ErrorKind = iota
	KindTradeSameUser
	KindInvalidIDPrice
	KindInsufficientFunds
	KindNoOrdersForStopLimit
	KindStopPriceOutOfRange
	KindMarketOrderUnfilled
	KindIncompatibleOrders
	KindTooManyOpenOrders
	KindSameAssetPair
)

func (k ErrorKind) String() string {
	switch k {
	case KindTradeSameUser:
		return "trade_same_user"
	case KindInvalidIDPrice:
		return "invalid_id_price"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindNoOrdersForStopLimit:
		return "no_orders_for_stop_limit"
	case KindStopPriceOutOfRange:
		return "stop_price_out_of_range"
	case KindMarketOrderUnfilled:
		return "market_order_unfilled"
	case KindIncompatibleOrders:
		return "incompatible_orders"
	case KindTooManyOpenOrders:
		return "too_many_open_orders"
	case KindSameAssetPair:
		return "same_asset_pair"
	default:
		return "internal"
	}
}

// Error is a command rejection. The market never commits partial state when
// returning one.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// IsKind reports whether err is a market rejection of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var me *Error
	return errors.As(err, &me) && me.Kind == kind
}
