package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"aidchain/internal/api/handlers"
	"aidchain/internal/campaign"
	"aidchain/internal/db"
	"aidchain/internal/donation"
	"aidchain/internal/expense"
	"aidchain/internal/ipfs"
	"aidchain/internal/rates"
	"aidchain/internal/stellar"
)

// Deps bundles everything the API surface needs.
type Deps struct {
	Store     *db.Database
	Accounts  *stellar.AccountManager
	Campaigns *campaign.Service
	Donations *donation.Recorder
	Expenses  *expense.Manager
	Rates     *rates.Cache
	Proofs    *ipfs.Client
	Log       *logrus.Logger
}

func NewRouter(deps Deps) *gin.Engine {
	router := gin.Default()

	orgHandler := handlers.NewOrganizationHandler(deps.Store, deps.Accounts, deps.Log)
	campaignHandler := handlers.NewCampaignHandler(deps.Campaigns, deps.Log)
	donationHandler := handlers.NewDonationHandler(deps.Donations, deps.Log)
	expenseHandler := handlers.NewExpenseHandler(deps.Expenses, deps.Log)
	rateHandler := handlers.NewRateHandler(deps.Rates)
	proofHandler := handlers.NewProofHandler(deps.Proofs, deps.Log)

	v1 := router.Group("/api/v1")
	{
		orgs := v1.Group("/organizations")
		{
			orgs.POST("", orgHandler.Register)
			orgs.GET("/:id", orgHandler.Get)
			orgs.DELETE("/:id", orgHandler.Deregister)
		}

		campaigns := v1.Group("/campaigns")
		{
			campaigns.POST("", campaignHandler.Create)
			campaigns.GET("", campaignHandler.List)
			campaigns.GET("/:id", campaignHandler.Get)
			campaigns.GET("/:id/collected", campaignHandler.Collected)
			campaigns.GET("/:id/expenses/prev", expenseHandler.PreviousLink)
			campaigns.GET("/:id/expenses/verify", expenseHandler.VerifyChain)
		}

		donations := v1.Group("/donations")
		{
			donations.POST("", donationHandler.Record)
		}

		expenses := v1.Group("/expenses")
		{
			expenses.POST("", expenseHandler.Record)
		}

		proofs := v1.Group("/proofs")
		{
			proofs.POST("", proofHandler.Upload)
			proofs.GET("/:cid", proofHandler.Fetch)
		}

		v1.GET("/rates", rateHandler.Current)
		v1.GET("/stats", campaignHandler.Stats)
	}

	return router
}
