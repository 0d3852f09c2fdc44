package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"loanledger/internal/domain/fault"
)

var statusByReason = map[string]int{
	fault.ReasonUnauthorized:              http.StatusForbidden,
	fault.ReasonInvalidTransition:         http.StatusConflict,
	fault.ReasonDuplicateID:               http.StatusConflict,
	fault.ReasonInstallmentAlreadyPaid:    http.StatusConflict,
	fault.ReasonMissingSettlementEvidence: http.StatusPreconditionFailed,
	fault.ReasonMalformedInput:            http.StatusUnprocessableEntity,
	fault.ReasonUnknownOperation:          http.StatusMethodNotAllowed,
	fault.ReasonNotFound:                  http.StatusNotFound,
}

// writeError maps a usecase or binding error onto its status code and reason
// tag.
func writeError(c echo.Context, err error) error {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Reason:  fault.ReasonMalformedInput,
			Details: ToFieldErrors(ve),
		})
	}
	reason := fault.Reason(err)
	code, ok := statusByReason[reason]
	if !ok {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error", Reason: reason})
	}
	return c.JSON(code, ErrorResponse{Error: err.Error(), Reason: reason})
}

// bindValid binds path params and the JSON body into req and runs its
// validation tags.
func bindValid(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return fmt.Errorf("%w: invalid body", fault.ErrMalformedInput)
	}
	return c.Validate(req)
}

func addressParam(c echo.Context, name string) (common.Address, error) {
	raw := c.Param(name)
	if len(raw) != 42 || !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%w: %s %q is not an address", fault.ErrMalformedInput, name, raw)
	}
	return common.HexToAddress(raw), nil
}

func indexParam(c echo.Context, name string) (int, error) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s %q is not an index", fault.ErrMalformedInput, name, c.Param(name))
	}
	return n, nil
}

// pageQuery reads ?after_seq and ?limit.
func pageQuery(c echo.Context) (uint64, int, error) {
	var after uint64
	if s := c.QueryParam("after_seq"); s != "" {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: after_seq %q", fault.ErrMalformedInput, s)
		}
		after = v
	}
	limit := 0
	if s := c.QueryParam("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			return 0, 0, fmt.Errorf("%w: limit %q", fault.ErrMalformedInput, s)
		}
		limit = v
	}
	return after, limit, nil
}

// amount parses a value that already passed the uintstr tag.
func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
