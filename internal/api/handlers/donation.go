package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"aidchain/internal/donation"
)

type DonationHandler struct {
	recorder *donation.Recorder
	log      *logrus.Logger
}

func NewDonationHandler(recorder *donation.Recorder, log *logrus.Logger) *DonationHandler {
	return &DonationHandler{
		recorder: recorder,
		log:      log,
	}
}

// Record verifies a client-claimed donation transfer on the ledger and
// stores it. Retried confirmations return the already-recorded row with
// 200 instead of 201; nothing new is written.
func (h *DonationHandler) Record(c *gin.Context) {
	var input struct {
		TransactionID string          `json:"transactionId" binding:"required"`
		CampaignID    string          `json:"campaignId" binding:"required"`
		Amount        decimal.Decimal `json:"amount" binding:"required"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, alreadyExisted, err := h.recorder.VerifyAndRecord(
		c.Request.Context(), input.TransactionID, input.CampaignID, input.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if alreadyExisted {
		status = http.StatusOK
	}

	c.JSON(status, gin.H{
		"donation":       record,
		"alreadyExisted": alreadyExisted,
	})
}
