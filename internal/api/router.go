// Package api is the HTTP surface: a gin engine with thin handlers over the
// service package.
package api

import (
	"log/slog"
	"net/http"

	"StockSentinel/internal/model"
	"StockSentinel/internal/service"

	"github.com/gin-gonic/gin"
)

// MetricsSource provides request counting and the exposition handler.
type MetricsSource interface {
	RequestCounter
	Handler() http.Handler
}

// NewRouter builds the engine with every route registered. m may be nil.
func NewRouter(svc *service.Service, m MetricsSource, log *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), AccessLog(log))
	if m != nil {
		router.Use(CountRequests(m))
	}

	h := NewHandler(svc)
	router.GET("/health", h.Health)

	candles := router.Group("/candlestick")
	{
		candles.POST("/daily", h.Bars(model.Daily))
		candles.POST("/weekly", h.Bars(model.Weekly))
		candles.POST("/monthly", h.Bars(model.Monthly))
	}

	kdj := router.Group("/indicator/kdj")
	{
		kdj.POST("/weekly", h.WeeklyKDJ)
		kdj.POST("/weekly/history", h.WeeklyKDJHistory)
	}

	if m != nil {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}
	return router
}
