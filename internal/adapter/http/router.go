package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"loanledger/internal/domain/fault"
)

// Register mounts every ledger entry point on e.
func Register(e *echo.Echo, h *Handler, fh *FactoryHandler, lh *LoanHandler) {
	e.GET("/health", h.Health)
	e.GET("/metrics", h.Metrics)

	f := e.Group("/factory")
	f.GET("", fh.Get)
	f.GET("/events", fh.Events)
	f.GET("/loans/:index", fh.LoanAt)
	f.GET("/loans/by-id/:id", fh.LoanByID)
	f.GET("/leadtimes/:market/:type", fh.LeadTime)
	f.POST("/loans", fh.CreateLoan)
	f.PUT("/leadtimes", fh.ChangeLeadtime)
	f.POST("/owner", fh.ChangeOwner)
	f.POST("/owner/accept", fh.AcceptOwner)
	f.POST("/worker", fh.ChangeWorker)

	l := e.Group("/loans/:address")
	l.GET("", lh.Get)
	l.GET("/events", lh.Events)
	l.GET("/interests/:index/distribution", lh.Distribution)
	l.POST("/lenders", lh.AddLenders)
	l.POST("/interests", lh.AddInterest)
	l.POST("/start", lh.Start)
	l.POST("/transfers/expected", lh.ExpectTransfer)
	l.POST("/transfers/observed", lh.ObserveTransfer)
	l.POST("/transfer-outcomes", lh.AddTransferOutcomeRecords)
	l.POST("/interests/:index/pay", lh.PayInterest)
	l.POST("/interests/:index/paid", lh.InterestPaid)
	l.POST("/mature", lh.Mature)
	l.PUT("/status", lh.ChangeStatus)
	l.PUT("/interests/:index", lh.ChangeInterest)
	l.PUT("/meta", lh.UpdateMeta)
}

// ErrorHandler answers unknown routes and methods with unknown_operation and
// everything else echo raises with the matching reason.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		switch he.Code {
		case http.StatusNotFound, http.StatusMethodNotAllowed:
			err = fault.ErrUnknownOperation
		case http.StatusBadRequest, http.StatusUnsupportedMediaType, http.StatusRequestEntityTooLarge:
			err = fault.ErrMalformedInput
		}
	}
	_ = writeError(c, err)
}
