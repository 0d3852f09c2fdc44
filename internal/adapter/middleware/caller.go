package middleware

import (
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"loanledger/internal/domain/fault"
)

const (
	HeaderCaller = "Ax-Caller"
	HeaderValue  = "Ax-Value"

	callerKey = "ax.caller"
)

// Caller resolves the Ax-Caller header into the request's sender address.
// Authentication happens upstream; an absent header leaves the null address,
// which no role matches.
func Caller() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !routed(c) {
				return next(c)
			}
			raw := strings.TrimSpace(c.Request().Header.Get(HeaderCaller))
			var caller common.Address
			if raw != "" {
				if !common.IsHexAddress(raw) {
					return errorJSON(c, http.StatusUnprocessableEntity, fault.ReasonMalformedInput, "invalid "+HeaderCaller)
				}
				caller = common.HexToAddress(raw)
			}
			c.Set(callerKey, caller)
			return next(c)
		}
	}
}

// CallerFrom returns the address set by Caller, or the null address.
func CallerFrom(c echo.Context) common.Address {
	if v, ok := c.Get(callerKey).(common.Address); ok {
		return v
	}
	return common.Address{}
}

// RejectValue fails every request that tries to transfer value along with
// the call. No entry point accepts it.
func RejectValue() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := strings.TrimSpace(c.Request().Header.Get(HeaderValue))
			if raw == "" {
				return next(c)
			}
			v, err := decimal.NewFromString(raw)
			if err != nil || !v.IsZero() {
				return errorJSON(c, http.StatusMethodNotAllowed, fault.ReasonUnknownOperation, "value transfer not accepted")
			}
			return next(c)
		}
	}
}
