package loans

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"LIBRA-backend/internal/platform/apperr"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.POST("/loans/borrow", h.Borrow)
	r.POST("/loans/:loan_id/return", h.Return)
	r.GET("/loans", h.List)
	r.GET("/loans/stats", h.Stats)
}

// POST /loans/borrow
func (h *Handler) Borrow(c *gin.Context) {
	var req BorrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}

	res, err := h.svc.Borrow(c.Request.Context(), req)
	if err != nil {
		apperr.AbortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// POST /loans/:loan_id/return
func (h *Handler) Return(c *gin.Context) {
	loanID, err := strconv.ParseInt(c.Param("loan_id"), 10, 64)
	if err != nil || loanID <= 0 {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid loan_id"))
		return
	}

	// ContentLength 0 はボディ省略。チャンク転送（-1）はボディ有りとして読む。
	var req ReturnRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid json"))
			return
		}
	}

	if err := h.svc.Return(c.Request.Context(), loanID, req); err != nil {
		apperr.AbortWith(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /loans
func (h *Handler) List(c *gin.Context) {
	res, err := h.svc.List(c.Request.Context(),
		c.Query("q"),
		c.Query("status"),
		parseIntDefault(c.Query("page"), 0),
		parseIntDefault(c.Query("size"), 10),
	)
	if err != nil {
		apperr.AbortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /loans/stats
func (h *Handler) Stats(c *gin.Context) {
	res, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		apperr.AbortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func parseIntDefault(s string, d int) int {
	if s == "" {
		return d
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}
