package http

import (
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"

	"loanledger/internal/adapter/middleware"
	"loanledger/internal/domain/fault"
	"loanledger/internal/usecase/factory"
)

type FactoryHandler struct{ uc *factory.Usecase }

func NewFactoryHandler(uc *factory.Usecase) *FactoryHandler { return &FactoryHandler{uc: uc} }

type createLoanReq struct {
	ID               string `json:"id"                validate:"required,max=32"`
	Market           string `json:"market"            validate:"required,max=32"`
	PrincipalAmount  string `json:"principal_amount"  validate:"required,uintstr"`
	CollateralAmount string `json:"collateral_amount" validate:"required,uintstr"`
	Meta             string `json:"meta"`
	Timestamp        int64  `json:"timestamp"         validate:"gte=0"`
}

type changeLeadtimeReq struct {
	Market       string `json:"market"         validate:"required,max=32"`
	LeadTimeType string `json:"lead_time_type" validate:"required,max=32"`
	LeadTime     uint64 `json:"lead_time"`
	Timestamp    int64  `json:"timestamp"      validate:"gte=0"`
}

type roleReq struct {
	Address string `json:"address" validate:"required,address"`
}

func (h *FactoryHandler) Get(c echo.Context) error {
	dto, err := h.uc.Get(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *FactoryHandler) Events(c echo.Context) error {
	after, limit, err := pageQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	dto, err := h.uc.Events(c.Request().Context(), after, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *FactoryHandler) LoanAt(c echo.Context) error {
	idx, err := strconv.ParseUint(c.Param("index"), 10, 64)
	if err != nil {
		return writeError(c, fault.ErrMalformedInput)
	}
	dto, err := h.uc.LoanAt(c.Request().Context(), idx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *FactoryHandler) LoanByID(c echo.Context) error {
	dto, err := h.uc.LoanByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *FactoryHandler) LeadTime(c echo.Context) error {
	dto, err := h.uc.LeadTime(c.Request().Context(), c.Param("market"), c.Param("type"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *FactoryHandler) CreateLoan(c echo.Context) error {
	var req createLoanReq
	if err := bindValid(c, &req); err != nil {
		return writeError(c, err)
	}
	dto, err := h.uc.CreateLoan(c.Request().Context(), middleware.CallerFrom(c), factory.CreateLoanInput{
		ID:               req.ID,
		Market:           req.Market,
		PrincipalAmount:  amount(req.PrincipalAmount),
		CollateralAmount: amount(req.CollateralAmount),
		Meta:             req.Meta,
		Timestamp:        req.Timestamp,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *FactoryHandler) ChangeLeadtime(c echo.Context) error {
	var req changeLeadtimeReq
	if err := bindValid(c, &req); err != nil {
		return writeError(c, err)
	}
	err := h.uc.ChangeLeadtime(c.Request().Context(), middleware.CallerFrom(c), factory.ChangeLeadtimeInput(req))
	if err != nil {
		return writeError(c, err)
	}
	return h.Get(c)
}

func (h *FactoryHandler) ChangeOwner(c echo.Context) error {
	var req roleReq
	if err := bindValid(c, &req); err != nil {
		return writeError(c, err)
	}
	if err := h.uc.ChangeOwner(c.Request().Context(), middleware.CallerFrom(c), common.HexToAddress(req.Address)); err != nil {
		return writeError(c, err)
	}
	return h.Get(c)
}

func (h *FactoryHandler) AcceptOwner(c echo.Context) error {
	if err := h.uc.AcceptOwner(c.Request().Context(), middleware.CallerFrom(c)); err != nil {
		return writeError(c, err)
	}
	return h.Get(c)
}

func (h *FactoryHandler) ChangeWorker(c echo.Context) error {
	var req roleReq
	if err := bindValid(c, &req); err != nil {
		return writeError(c, err)
	}
	if err := h.uc.ChangeWorker(c.Request().Context(), middleware.CallerFrom(c), common.HexToAddress(req.Address)); err != nil {
		return writeError(c, err)
	}
	return h.Get(c)
}
