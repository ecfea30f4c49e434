package jobs

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"LIBRA-backend/internal/loans"
	"LIBRA-backend/internal/notifications"
	"LIBRA-backend/internal/platform/apperr"
)

// HTTP trigger endpoints for an external cron.
type Handler struct {
	loans         *loans.Service
	notifications *notifications.Service
}

func RegisterRoutes(r gin.IRoutes, loanSvc *loans.Service, notifSvc *notifications.Service) {
	h := &Handler{loans: loanSvc, notifications: notifSvc}

	r.POST("/jobs/overdue-scan", h.OverdueScan)
	r.POST("/jobs/dispatch", h.Dispatch)
}

// POST /jobs/overdue-scan
func (h *Handler) OverdueScan(c *gin.Context) {
	report, err := h.loans.MarkOverdueSweep(c.Request.Context())
	if err != nil {
		apperr.AbortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// POST /jobs/dispatch
func (h *Handler) Dispatch(c *gin.Context) {
	report, err := h.notifications.DispatchPending(c.Request.Context())
	if err != nil {
		apperr.AbortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
