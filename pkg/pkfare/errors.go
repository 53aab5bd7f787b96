package pkfare

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownOutcome marks a call whose result was never received (timeout,
	// dropped connection). The provider may still have applied the side effect.
	ErrUnknownOutcome = errors.New("provider call outcome unknown")

	// ErrProviderUnavailable means the call was not attempted because the
	// circuit breaker is open.
	ErrProviderUnavailable = errors.New("provider temporarily unavailable")
)

// Endpoint names a provider operation. Error codes are interpreted per endpoint.
type Endpoint string

const (
	EndpointSearch         Endpoint = "search"
	EndpointPrecisePricing Endpoint = "precise_pricing"
	EndpointBooking        Endpoint = "booking"
	EndpointOrderPricing   Endpoint = "order_pricing"
	EndpointTicketing      Endpoint = "ticketing"
	EndpointCancel         Endpoint = "cancel"
	EndpointOrderDetail    Endpoint = "order_detail"
)

// changesOrder reports whether a call to e creates or advances a provider order
func (e Endpoint) changesOrder() bool {
	return e == EndpointBooking || e == EndpointTicketing || e == EndpointCancel
}

// ErrorKind enumerates the provider business errors this service understands.
type ErrorKind int

const (
	KindUnmapped ErrorKind = iota
	KindSystemError
	KindRequestTimeout
	KindPartnerNotFound
	KindInvalidSignature
	KindTooManyRequests
	KindInvalidInput
	KindMissingFields
	KindInvalidParameters
	KindSeatsUnavailable
	KindPricingExpired
	KindSegmentInvalid
	KindFlightChanged
	KindOrderStatusInvalid
	KindOrderNumberNotFound
	KindFareUnavailable
	KindPriceChanged
	KindTicketingWindowExpiring
	KindDuplicateReservation
	KindOrderNotFound
	KindOrderAlreadyCancelled
	KindBuyerMismatch
	KindSegmentMismatch
	KindAlreadyPaid
)

func (k ErrorKind) String() string {
	switch k {
	case KindSystemError:
		return "system_error"
	case KindRequestTimeout:
		return "request_timeout"
	case KindPartnerNotFound:
		return "partner_not_found"
	case KindInvalidSignature:
		return "invalid_signature"
	case KindTooManyRequests:
		return "too_many_requests"
	case KindInvalidInput:
		return "invalid_input"
	case KindMissingFields:
		return "missing_fields"
	case KindInvalidParameters:
		return "invalid_parameters"
	case KindSeatsUnavailable:
		return "seats_unavailable"
	case KindPricingExpired:
		return "pricing_expired"
	case KindSegmentInvalid:
		return "segment_invalid"
	case KindFlightChanged:
		return "flight_changed"
	case KindOrderStatusInvalid:
		return "order_status_invalid"
	case KindOrderNumberNotFound:
		return "order_number_not_found"
	case KindFareUnavailable:
		return "fare_unavailable"
	case KindPriceChanged:
		return "price_changed"
	case KindTicketingWindowExpiring:
		return "ticketing_window_expiring"
	case KindDuplicateReservation:
		return "duplicate_reservation"
	case KindOrderNotFound:
		return "order_not_found"
	case KindOrderAlreadyCancelled:
		return "order_already_cancelled"
	case KindBuyerMismatch:
		return "buyer_mismatch"
	case KindSegmentMismatch:
		return "segment_mismatch"
	case KindAlreadyPaid:
		return "already_paid"
	default:
		return "unmapped"
	}
}

// codeKinds is the single code -> kind table. Codes mean the same thing on
// every endpoint; what differs is which codes an endpoint can return and the
// wording shown to users.
var codeKinds = map[string]ErrorKind{
	"S001": KindSystemError,
	"S002": KindRequestTimeout,
	"B002": KindPartnerNotFound,
	"B003": KindInvalidSignature,
	"B035": KindTooManyRequests,
	"P001": KindInvalidInput,
	"P002": KindMissingFields,
	"P006": KindInvalidParameters,
	"0307": KindSeatsUnavailable,
	"B005": KindPricingExpired,
	"B007": KindSegmentInvalid,
	"B008": KindFlightChanged,
	"B009": KindOrderStatusInvalid,
	"B010": KindOrderNumberNotFound,
	"B011": KindFareUnavailable,
	"B017": KindPriceChanged,
	"B026": KindTicketingWindowExpiring,
	"B029": KindDuplicateReservation,
	"B037": KindOrderNotFound,
	"B041": KindOrderAlreadyCancelled,
	"B048": KindBuyerMismatch,
	"B068": KindSegmentMismatch,
	"B112": KindAlreadyPaid,
}

// endpointMessages lists, per endpoint, the kinds it documents and their
// user-facing wording.
var endpointMessages = map[Endpoint]map[ErrorKind]string{
	EndpointSearch: {
		KindSystemError:       "System error.",
		KindPartnerNotFound:   "Partner ID does not exist.",
		KindInvalidSignature:  "Invalid signature. Please contact support.",
		KindTooManyRequests:   "Too many requests. Please try again later.",
		KindInvalidInput:      "Invalid search criteria.",
		KindInvalidParameters: "Invalid parameters.",
	},
	EndpointPrecisePricing: {
		KindSystemError:       "System error.",
		KindPartnerNotFound:   "Partner ID does not exist.",
		KindInvalidSignature:  "Invalid signature. Please contact support.",
		KindInvalidInput:      "Invalid input data.",
		KindPricingExpired:    "Pricing expired. Please search again.",
		KindSegmentInvalid:    "Flight segment is no longer valid.",
		KindFareUnavailable:   "Fare is unavailable.",
		KindPriceChanged:      "Price has changed.",
		KindSeatsUnavailable:  "Seats are no longer available.",
		KindInvalidParameters: "Invalid parameters.",
	},
	EndpointBooking: {
		KindSystemError:          "System error.",
		KindPartnerNotFound:      "Partner ID does not exist.",
		KindInvalidSignature:     "Invalid signature. Please contact support.",
		KindTooManyRequests:      "Too many requests. Please try again later.",
		KindInvalidInput:         "Invalid input data.",
		KindMissingFields:        "Missing required fields.",
		KindInvalidParameters:    "Invalid parameters.",
		KindSeatsUnavailable:     "Seats are no longer available.",
		KindPricingExpired:       "Pricing expired. Please search again.",
		KindSegmentInvalid:       "Flight segment is no longer valid.",
		KindFlightChanged:        "Flight changed. Please reselect.",
		KindFareUnavailable:      "Fare is unavailable.",
		KindPriceChanged:         "Price has changed.",
		KindDuplicateReservation: "Duplicate reservation found.",
		KindSegmentMismatch:      "Flight segment mismatch.",
	},
	EndpointOrderPricing: {
		KindSystemError:             "System error.",
		KindPartnerNotFound:         "Partner ID does not exist.",
		KindInvalidSignature:        "Illegal sign. Please check your signature.",
		KindInvalidInput:            "Parameter is illegal.",
		KindPricingExpired:          "Pricing expired. Please search again.",
		KindOrderStatusInvalid:      "Order status does not allow pricing.",
		KindOrderNotFound:           "Order does not exist.",
		KindPriceChanged:            "Price has changed.",
		KindTicketingWindowExpiring: "Ticketing time limit is about to expire.",
		KindAlreadyPaid:             "The order has already been paid.",
	},
	EndpointTicketing: {
		KindSystemError:             "System error.",
		KindPartnerNotFound:         "Partner ID does not exist.",
		KindInvalidSignature:        "Illegal sign. Please check your signature.",
		KindInvalidInput:            "Parameter is illegal.",
		KindPricingExpired:          "Pricing expired. Please search again.",
		KindOrderStatusInvalid:      "Order status does not allow ticketing.",
		KindOrderNotFound:           "Order does not exist.",
		KindPriceChanged:            "Price has changed.",
		KindTicketingWindowExpiring: "Ticketing time limit is about to expire.",
		KindAlreadyPaid:             "The order has already been paid.",
	},
	EndpointCancel: {
		KindSystemError:           "System error.",
		KindInvalidInput:          "Wrong parameter.",
		KindPartnerNotFound:       "Partner does not exist.",
		KindInvalidSignature:      "Illegal sign. Please check your signature.",
		KindOrderStatusInvalid:    `Order status is invalid. Order status must be "to_be_paid".`,
		KindOrderNumberNotFound:   "Order number does not exist.",
		KindOrderNotFound:         "Order does not exist.",
		KindOrderAlreadyCancelled: "The order has been cancelled.",
	},
	EndpointOrderDetail: {
		KindSystemError:      "System error.",
		KindRequestTimeout:   "Request timeout.",
		KindInvalidInput:     "Parameter is illegal.",
		KindPartnerNotFound:  "PartnerID does not exist.",
		KindInvalidSignature: "Illegal sign. Please check your signature.",
		KindBuyerMismatch:    "Request buyer is not matched with order.",
		KindOrderNotFound:    "Order does not exist.",
	},
}

var fallbackMessages = map[Endpoint]string{
	EndpointSearch:         "Flight search failed.",
	EndpointPrecisePricing: "Pricing failed.",
	EndpointBooking:        "Booking failed.",
	EndpointOrderPricing:   "Order pricing failed.",
	EndpointTicketing:      "Ticketing failed.",
	EndpointCancel:         "Cancellation failed.",
	EndpointOrderDetail:    "Failed to fetch booking details.",
}

// ProviderError is a non-zero errorCode answer from the provider.
type ProviderError struct {
	Endpoint Endpoint
	Code     string
	Kind     ErrorKind
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("pkfare %s failed [%s]: %s", e.Endpoint, e.Code, e.Message)
}

// Is lets errors.Is match on endpoint and kind using a template error.
func (e *ProviderError) Is(target error) bool {
	t, ok := target.(*ProviderError)
	if !ok {
		return false
	}
	return (t.Endpoint == "" || t.Endpoint == e.Endpoint) && t.Kind == e.Kind
}

// NewProviderError classifies a provider error code for the given endpoint.
// A code known globally but not documented for the endpoint keeps its kind
// and falls back to the provider's own message.
func NewProviderError(endpoint Endpoint, code, providerMsg string) *ProviderError {
	kind, known := codeKinds[code]
	if !known {
		kind = KindUnmapped
	}

	message := ""
	if known {
		message = endpointMessages[endpoint][kind]
	}
	if message == "" {
		message = providerMsg
	}
	if message == "" {
		message = fallbackMessages[endpoint]
	}
	if message == "" {
		message = "Provider request failed."
	}

	return &ProviderError{
		Endpoint: endpoint,
		Code:     code,
		Kind:     kind,
		Message:  message,
	}
}

// AsProviderError unwraps err into a *ProviderError.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// UnknownOutcomeError carries the endpoint and cause of an unanswered call.
type UnknownOutcomeError struct {
	Endpoint Endpoint
	Err      error
}

func (e *UnknownOutcomeError) Error() string {
	return fmt.Sprintf("pkfare %s: outcome unknown: %v", e.Endpoint, e.Err)
}

// Unwrap exposes both the sentinel and the transport cause.
func (e *UnknownOutcomeError) Unwrap() []error {
	return []error{ErrUnknownOutcome, e.Err}
}
