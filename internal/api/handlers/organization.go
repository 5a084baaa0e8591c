package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"aidchain/internal/db"
	"aidchain/internal/stellar"
)

type OrganizationHandler struct {
	store    *db.Database
	accounts *stellar.AccountManager
	log      *logrus.Logger
}

func NewOrganizationHandler(store *db.Database, accounts *stellar.AccountManager, log *logrus.Logger) *OrganizationHandler {
	return &OrganizationHandler{
		store:    store,
		accounts: accounts,
		log:      log,
	}
}

// Register creates the NGO's profile together with its funded custodial
// ledger account. The keypair is created first: an organization without
// an account is useless, an unused ledger account is merely idle funds.
func (h *OrganizationHandler) Register(c *gin.Context) {
	var input struct {
		Name        string `json:"name" binding:"required"`
		RegNumber   string `json:"regNumber" binding:"required"`
		Email       string `json:"email" binding:"required,email"`
		Description string `json:"description"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	kp, err := h.accounts.CreateAccount(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	org := db.Organization{
		Name:      input.Name,
		RegNumber: input.RegNumber,
		Email:     input.Email,
		PublicKey: kp.PublicKey(),
		Secret:    kp.Secret(),
	}

	if err := h.store.InsertOrganization(c.Request.Context(), &org); err != nil {
		if err == db.ErrDuplicateOrganization {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":        org.ID,
		"name":      org.Name,
		"publicKey": org.PublicKey,
	})
}

// Deregister offboards an organization: its custodial account is merged
// back into the base funding account and the profile row is removed.
// Refused while the organization still owns campaigns, since their
// donation and expense history must stay attributable.
func (h *OrganizationHandler) Deregister(c *gin.Context) {
	ctx := c.Request.Context()

	org, err := h.store.GetOrganization(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if org == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}

	campaigns, err := h.store.CountCampaignsByOrg(ctx, org.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	if campaigns > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "organization still owns campaigns"})
		return
	}

	if err := h.accounts.CloseAccount(ctx, org.Secret); err != nil {
		respondError(c, err)
		return
	}

	if err := h.store.DeleteOrganization(ctx, org.ID); err != nil {
		respondError(c, err)
		return
	}

	h.log.WithFields(logrus.Fields{
		"organization": org.ID,
		"account":      org.PublicKey,
	}).Info("Organization offboarded")

	c.Status(http.StatusNoContent)
}

// Get returns an organization's public profile. The signing secret
// never crosses this boundary.
func (h *OrganizationHandler) Get(c *gin.Context) {
	org, err := h.store.GetOrganization(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if org == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":        org.ID,
		"name":      org.Name,
		"regNumber": org.RegNumber,
		"email":     org.Email,
		"publicKey": org.PublicKey,
	})
}
