package api

import (
	"net/http"

	"StockSentinel/internal/model"
	"StockSentinel/internal/service"

	"github.com/gin-gonic/gin"
)

// Handler serves the HTTP routes on top of a Service.
type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

type barsRequest struct {
	Code       string `json:"code"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	AdjustFlag string `json:"adjustflag"`
}

type kdjRequest struct {
	Code string `json:"code"`
}

type kdjHistoryResponse struct {
	Code   string              `json:"code"`
	Points []model.KDJSnapshot `json:"points"`
}

// Health returns the service status.
// GET /health
func (h *Handler) Health(c *gin.Context) {
	status, err := h.svc.Health(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Bars returns a handler for one bar period.
// POST /candlestick/{daily,weekly,monthly}
func (h *Handler) Bars(period model.Period) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req barsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, &service.ErrorReport{Kind: service.KindInvalidRequest, Message: "invalid request body: " + err.Error()})
			return
		}
		series, err := h.svc.GetBars(c.Request.Context(), service.BarsRequest{
			Code:      req.Code,
			StartDate: req.StartDate,
			EndDate:   req.EndDate,
			Period:    period,
			Adjust:    model.AdjustMode(req.AdjustFlag),
		})
		if err != nil {
			abort(c, err)
			return
		}
		c.JSON(http.StatusOK, series)
	}
}

// WeeklyKDJ returns the latest weekly KDJ point.
// POST /indicator/kdj/weekly
func (h *Handler) WeeklyKDJ(c *gin.Context) {
	var req kdjRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, &service.ErrorReport{Kind: service.KindInvalidRequest, Message: "invalid request body: " + err.Error()})
		return
	}
	snap, err := h.svc.GetWeeklyKDJ(c.Request.Context(), req.Code)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// WeeklyKDJHistory returns the full weekly KDJ series in the lookback window.
// POST /indicator/kdj/weekly/history
func (h *Handler) WeeklyKDJHistory(c *gin.Context) {
	var req kdjRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, &service.ErrorReport{Kind: service.KindInvalidRequest, Message: "invalid request body: " + err.Error()})
		return
	}
	points, err := h.svc.WeeklyKDJHistory(c.Request.Context(), req.Code)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, kdjHistoryResponse{Code: req.Code, Points: points})
}
