package http

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"

	"loanledger/internal/adapter/middleware"
	domain "loanledger/internal/domain/loan"
	"loanledger/internal/usecase/loan"
)

type LoanHandler struct{ uc *loan.Usecase }

func NewLoanHandler(uc *loan.Usecase) *LoanHandler { return &LoanHandler{uc: uc} }

type lenderReq struct {
	ID           string `json:"id"             validate:"required,bytes32"`
	OrderID      string `json:"order_id"       validate:"required,bytes32"`
	LenderUserID string `json:"lender_user_id" validate:"required,bytes32"`
	Amount       string `json:"amount"         validate:"required,uintstr"`
	AmountWeight string `json:"amount_weight"  validate:"required,uintstr"`
	RateWeight   string `json:"rate_weight"    validate:"required,uintstr"`
}

type addLendersReq struct {
	Lenders []lenderReq `json:"lenders" validate:"dive"`
}

type interestReq struct {
	PaymentTime int64  `json:"payment_time" validate:"gte=0"`
	Amount      string `json:"amount"       validate:"required,uintstr"`
}

type addInterestReq struct {
	Interests []interestReq `json:"interests" validate:"dive"`
}

type transferReq struct {
	From      string `json:"from"      validate:"required,max=32"`
	To        string `json:"to"        validate:"required,max=32"`
	Amount    string `json:"amount"    validate:"required,uintstr"`
	Currency  string `json:"currency"  validate:"required,max=32"`
	Reason    string `json:"reason"`
	TxID      string `json:"tx_id"`
	Timestamp int64  `json:"timestamp" validate:"gte=0"`
}

type outcomesReq struct {
	Hashes []string `json:"hashes" validate:"dive,bytes32"`
}

type changeStatusReq struct {
	Status    string `json:"status"    validate:"required"`
	Timestamp int64  `json:"timestamp" validate:"gte=0"`
}

type changeInterestReq struct {
	PaymentTime int64  `json:"payment_time" validate:"gte=0"`
	Amount      string `json:"amount"       validate:"required,uintstr"`
	Paid        bool   `json:"paid"`
	Timestamp   int64  `json:"timestamp"    validate:"gte=0"`
}

type updateMetaReq struct {
	Meta string `json:"meta"`
}

func (h *LoanHandler) Get(c echo.Context) error {
	addr, err := addressParam(c, "address")
	if err != nil {
		return writeError(c, err)
	}
	dto, err := h.uc.Get(c.Request().Context(), addr)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) Events(c echo.Context) error {
	addr, err := addressParam(c, "address")
	if err != nil {
		return writeError(c, err)
	}
	after, limit, err := pageQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	dto, err := h.uc.Events(c.Request().Context(), addr, after, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) Distribution(c echo.Context) error {
	addr, err := addressParam(c, "address")
	if err != nil {
		return writeError(c, err)
	}
	i, err := indexParam(c, "index")
	if err != nil {
		return writeError(c, err)
	}
	dto, err := h.uc.Distribution(c.Request().Context(), addr, i)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// mutation resolves the loan address and caller, runs op and answers with the
// resulting loan.
func (h *LoanHandler) mutation(c echo.Context, op func(addr, caller common.Address) (*loan.LoanDTO, error)) error {
	addr, err := addressParam(c, "address")
	if err != nil {
		return writeError(c, err)
	}
	dto, err := op(addr, middleware.CallerFrom(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) AddLenders(c echo.Context) error {
	var req addLendersReq
	if err := bindValid(c, &req); err != nil {
		return writeError(c, err)
	}
	in := make([]loan.LenderInput, len(req.Lenders))
	for i, r := range req.Lenders {
		in[i] = loan.LenderInput{
			ID:           common.HexToHash(r.ID),
			OrderID:      common.HexToHash(r.OrderID),
			LenderUserID: common.HexToHash(r.LenderUserID),
			Amount:       amount(r.Amount),
			AmountWeight: amount(r.AmountWeight),
			RateWeight:   amount(r.RateWeight),
		}
	}
	return h.mutation(c, func(addr, caller common.Address) (*loan.LoanDTO, error) {
		return h.uc.AddLenders(c.Request().Context(), addr, caller, in)
	})
}

func (h *LoanHandler) AddInterest(c echo.Context) error {
	var req addInterestReq
	if err := bindValid(c, &req); err != nil {
		return writeError(c, err)
	}
	in := make([]loan.InterestInput, len(req.Interests))
	for i, r := range req.Interests {
		in[i] = loan.InterestInput{PaymentTime: r.PaymentTime, Amount: amount(r.Amount)}
	}
	return h.mutation(c, func(addr, caller common.Address) (*loan.LoanDTO, error) {
		return h.uc.AddInterest(c.Request().Context(), addr, caller, in)
	})
}

func (h *LoanHandler) Start(c echo.Context) error {
	return h.mutation(c, func(addr, caller common.Address) (*loan.LoanDTO, error) {
		return h.uc.Start(c.Request().Context(), addr, caller)
	})
}

func (h *LoanHandler) bindTransfer(c echo.Context) (domain.TransferInput, error) {
	var req transferReq
	if err := bindValid(c, &req); err != nil {
		return domain.TransferInput{}, err
	}
	return domain.TransferInput{
		From:      req.From,
		To:        req.To,
		Amount:    amount(req.Amount),
		Currency:  req.Currency,
		Reason:    req.Reason,
		TxID:      req.TxID,
		Timestamp: req.Timestamp,
	}, nil
}

func (h *LoanHandler) ExpectTransfer(c echo.Context) error {
	in, err := h.bindTransfer(c)
	if err != nil {
		return writeError(c, err)
	}
	return h.mutation(c, func(addr, caller common.Address) (*loan.LoanDTO, error) {
		return h.uc.ExpectTransfer(c.Request().Context(), addr, caller, in)
	})
}

func (h *LoanHandler) ObserveTransfer(c echo.Context) error {
	in, err := h.bindTransfer(c)
	if err != nil {
		return writeError(c, err)
	}
	return h.mutation(c, func(addr, caller common.Address) (*loan.LoanDTO, error) {
		return h.uc.ObserveTransfer(c.Request().Context(), addr, caller, in)
	})
}

func (h *LoanHandler) AddTransferOutcomeRecords(c echo.Context) error {
	var req outcomesReq
	if err := bindValid(c, &req); err != nil {
		return writeError(c, err)
	}
	hashes := make([]common.Hash, len(req.Hashes))
	for i, s := range req.Hashes {
		hashes[i] = common.HexToHash(s)
	}
	return h.mutation(c, func(addr, caller common.Address) (*loan.LoanDTO, error) {
		return h.uc.AddTransferOutcomeRecords(c.Request().Context(), addr, caller, hashes)
	})
}

func (h *LoanHandler) PayInterest(c echo.Context) error {
	i, err := indexParam(c, "index")
	if err != nil {
		return writeError(c, err)
	}
	return h.mutation(c, func(addr, caller common.Address) (*loan.LoanDTO, error) {
		return h.uc.PayInterest(c.Request().Context(), addr, caller, i)
	})
}

func (h *LoanHandler) InterestPaid(c echo.Context) error {
	i, err := indexParam(c, "index")
	if err != nil {
		return writeError(c, err)
	}
	return h.mutation(c, func(addr, caller common.Address) (*loan.LoanDTO, error) {
		return h.uc.InterestPaid(c.Request().Context(), addr, caller, i)
	})
}

func (h *LoanHandler) Mature(c echo.Context) error {
	return h.mutation(c, func(addr, caller common.Address) (*loan.LoanDTO, error) {
		return h.uc.Mature(c.Request().Context(), addr, caller)
	})
}

func (h *LoanHandler) ChangeStatus(c echo.Context) error {
	var req changeStatusReq
	if err := bindValid(c, &req); err != nil {
		return writeError(c, err)
	}
	return h.mutation(c, func(addr, caller common.Address) (*loan.LoanDTO, error) {
		return h.uc.ChangeStatus(c.Request().Context(), addr, caller, req.Status, req.Timestamp)
	})
}

func (h *LoanHandler) ChangeInterest(c echo.Context) error {
	i, err := indexParam(c, "index")
	if err != nil {
		return writeError(c, err)
	}
	var req changeInterestReq
	if err := bindValid(c, &req); err != nil {
		return writeError(c, err)
	}
	in := loan.ChangeInterestInput{Index: i, PaymentTime: req.PaymentTime, Amount: amount(req.Amount), Paid: req.Paid, Timestamp: req.Timestamp}
	return h.mutation(c, func(addr, caller common.Address) (*loan.LoanDTO, error) {
		return h.uc.ChangeInterest(c.Request().Context(), addr, caller, in)
	})
}

func (h *LoanHandler) UpdateMeta(c echo.Context) error {
	var req updateMetaReq
	if err := bindValid(c, &req); err != nil {
		return writeError(c, err)
	}
	return h.mutation(c, func(addr, caller common.Address) (*loan.LoanDTO, error) {
		return h.uc.UpdateMeta(c.Request().Context(), addr, caller, req.Meta)
	})
}
