package schema

// Gateway error codes that affect control flow. The full broker taxonomy is
// not reproduced; everything not listed here is logged and ignored.
const (
	CodeOrderRejected    = 201
	CodeOrderCancelled   = 202
	CodeCancelConfirmed  = 206
	CodeAfterHoursWarn   = 399
	CodeConnectivityLost = 1100
	CodeConnectivityOK   = 2104
	CodeHMDSFarmOK       = 2106
	CodeFarmInactive     = 2137
	CodeSecDefFarmOK     = 2158
)

// ErrorSeverity classifies an error notification for control flow.
type ErrorSeverity uint8

const (
	// SeverityInfo codes are connectivity confirmations and similar; they
	// never alter control flow.
	SeverityInfo ErrorSeverity = iota
	// SeverityWarn codes are logged with weight but tolerated.
	SeverityWarn
	// SeverityFatal codes terminate the process immediately. Continuing
	// after them risks placing further orders against an inconsistent
	// broker-side order book.
	SeverityFatal
)

// Severity classifies a gateway error code.
func (e GatewayError) Severity() ErrorSeverity {
	switch e.Code {
	case CodeOrderRejected, CodeConnectivityLost:
		return SeverityFatal
	case CodeAfterHoursWarn, CodeFarmInactive:
		return SeverityWarn
	case CodeOrderCancelled, CodeCancelConfirmed, CodeConnectivityOK, CodeHMDSFarmOK, CodeSecDefFarmOK:
		return SeverityInfo
	default:
		return SeverityWarn
	}
}
