package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"aidchain/internal/expense"
)

type ExpenseHandler struct {
	expenses *expense.Manager
	log      *logrus.Logger
}

func NewExpenseHandler(expenses *expense.Manager, log *logrus.Logger) *ExpenseHandler {
	return &ExpenseHandler{
		expenses: expenses,
		log:      log,
	}
}

// Record runs one disbursement: ledger payment, on-chain mirror with
// the previous link, local record.
func (h *ExpenseHandler) Record(c *gin.Context) {
	var input struct {
		CampaignID string          `json:"campaignId" binding:"required"`
		Recipient  string          `json:"recipientPublicKey" binding:"required"`
		Amount     decimal.Decimal `json:"amount" binding:"required"`
		ProofCID   string          `json:"proofCid" binding:"required"`
		Metadata   string          `json:"metadata"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.expenses.Record(c.Request.Context(),
		input.CampaignID, input.Recipient, input.Amount, input.ProofCID, input.Metadata)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

// PreviousLink returns the chain reference the next expense will embed;
// an empty string for a campaign with no expenses yet.
func (h *ExpenseHandler) PreviousLink(c *gin.Context) {
	prev, err := h.expenses.PreviousLink(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"prevTxn": prev})
}

// VerifyChain re-walks the campaign's audit chain and reports whether
// every link matches its predecessor.
func (h *ExpenseHandler) VerifyChain(c *gin.Context) {
	if err := h.expenses.VerifyChain(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusConflict, gin.H{"valid": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": true})
}
