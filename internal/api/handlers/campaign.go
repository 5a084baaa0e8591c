package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"aidchain/internal/campaign"
)

type CampaignHandler struct {
	campaigns *campaign.Service
	log       *logrus.Logger
}

func NewCampaignHandler(campaigns *campaign.Service, log *logrus.Logger) *CampaignHandler {
	return &CampaignHandler{
		campaigns: campaigns,
		log:       log,
	}
}

func (h *CampaignHandler) Create(c *gin.Context) {
	var input struct {
		OrgID       string `json:"orgId" binding:"required"`
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
		Location    string `json:"location"`
		ProofCID    string `json:"proofCid"`
		Goal        int64  `json:"goal" binding:"required"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.campaigns.Create(c.Request.Context(),
		input.OrgID, input.Title, input.Description, input.Location, input.ProofCID, input.Goal)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// List returns every campaign with its collected amount, recomputed
// from donation rows at the current rate on each call.
func (h *CampaignHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	campaigns, err := h.campaigns.List(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	type listedCampaign struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Location    string `json:"location"`
		Goal        int64  `json:"goal"`
		Collected   int64  `json:"collected"`
		WalletAddr  string `json:"walletAddr"`
	}

	out := make([]listedCampaign, 0, len(campaigns))
	for _, camp := range campaigns {
		collected, err := h.campaigns.ComputeCollected(ctx, camp.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		out = append(out, listedCampaign{
			ID:          camp.ID,
			Title:       camp.Title,
			Description: camp.Description,
			Location:    camp.Location,
			Goal:        camp.Goal,
			Collected:   collected,
			WalletAddr:  camp.WalletAddr,
		})
	}

	c.JSON(http.StatusOK, out)
}

func (h *CampaignHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	camp, err := h.campaigns.Get(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	collected, err := h.campaigns.ComputeCollected(ctx, camp.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"campaign":  camp,
		"collected": collected,
	})
}

// Collected returns just the recomputed total for one campaign.
func (h *CampaignHandler) Collected(c *gin.Context) {
	collected, err := h.campaigns.ComputeCollected(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"collected": collected})
}

func (h *CampaignHandler) Stats(c *gin.Context) {
	stats, err := h.campaigns.ComputeStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
