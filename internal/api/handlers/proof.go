package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"aidchain/internal/ipfs"
)

// maxProofSize caps uploaded proof documents at 10 MiB.
const maxProofSize = 10 << 20

type ProofHandler struct {
	store *ipfs.Client
	log   *logrus.Logger
}

func NewProofHandler(store *ipfs.Client, log *logrus.Logger) *ProofHandler {
	return &ProofHandler{
		store: store,
		log:   log,
	}
}

// Upload pins a proof document (bill, receipt) and returns the content
// id that expense records and payment memos will carry.
func (h *ProofHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}
	if fileHeader.Size > maxProofSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "proof document too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cid, err := h.store.Upload(c.Request.Context(), fileHeader.Filename, data)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"cid": cid})
}

// Fetch streams a pinned proof document back by content id.
func (h *ProofHandler) Fetch(c *gin.Context) {
	data, err := h.store.Fetch(c.Request.Context(), c.Param("cid"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/octet-stream", data)
}
