// Package campaign exposes fundraising posts together with their
// collected totals. Totals are recomputed from the donation rows on
// every read and priced at the query-time exchange rate.
package campaign

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"aidchain/internal/db"
	"aidchain/internal/errs"
)

// Store is the slice of the document store the service needs.
type Store interface {
	InsertCampaign(ctx context.Context, c *db.Campaign) error
	GetCampaign(ctx context.Context, id string) (*db.Campaign, error)
	GetAllCampaigns(ctx context.Context) ([]db.Campaign, error)
	GetOrganization(ctx context.Context, id string) (*db.Organization, error)
	GetDonationsByCampaign(ctx context.Context, campaignID string) ([]db.Donation, error)
	GetAllDonations(ctx context.Context) ([]db.Donation, error)
	CountOrganizations(ctx context.Context) (int64, error)
}

// RateSource yields the native-asset to display-currency rate.
type RateSource interface {
	GetRate(ctx context.Context) decimal.Decimal
}

// Stats is the platform-wide summary shown on the landing page.
type Stats struct {
	TotalRaised  int64 `json:"totalRaised"`
	ActiveDonors int64 `json:"activeDonors"`
	VerifiedNGOs int64 `json:"verifiedNgos"`
}

type Service struct {
	store Store
	rates RateSource
	log   *logrus.Logger
}

func NewService(store Store, rates RateSource, log *logrus.Logger) *Service {
	return &Service{
		store: store,
		rates: rates,
		log:   log,
	}
}

// Create registers a fundraising post for an organization. The wallet
// address is pinned to the organization's custodial account and is
// immutable afterwards.
func (s *Service) Create(ctx context.Context, orgID, title, description, location, proofCID string, goal int64) (*db.Campaign, error) {
	if title == "" {
		return nil, &errs.ValidationError{Field: "title", Reason: "missing"}
	}
	if goal <= 0 {
		return nil, &errs.ValidationError{Field: "goal", Reason: "must be positive"}
	}

	org, err := s.store.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, &errs.NotFoundError{Kind: "organization", ID: orgID}
	}

	campaign := &db.Campaign{
		OrgID:       org.ID,
		Title:       title,
		Description: description,
		Location:    location,
		ProofCID:    proofCID,
		Goal:        goal,
		WalletAddr:  org.PublicKey,
	}
	if err := s.store.InsertCampaign(ctx, campaign); err != nil {
		return nil, err
	}
	return campaign, nil
}

// Get returns one campaign.
func (s *Service) Get(ctx context.Context, id string) (*db.Campaign, error) {
	campaign, err := s.store.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, &errs.NotFoundError{Kind: "campaign", ID: id}
	}
	return campaign, nil
}

// List returns every campaign, newest first.
func (s *Service) List(ctx context.Context) ([]db.Campaign, error) {
	return s.store.GetAllCampaigns(ctx)
}

// ComputeCollected sums every donation for the campaign (native asset)
// and converts at the current rate, rounded to the display currency's
// smallest unit. O(donations) per call; cheap enough at this scale and
// always consistent with the rows the recorder wrote.
func (s *Service) ComputeCollected(ctx context.Context, campaignID string) (int64, error) {
	donations, err := s.store.GetDonationsByCampaign(ctx, campaignID)
	if err != nil {
		return 0, err
	}

	total := decimal.Zero
	for _, d := range donations {
		total = total.Add(d.Amount)
	}

	rate := s.rates.GetRate(ctx)
	return total.Mul(rate).Round(0).IntPart(), nil
}

// ComputeStats aggregates platform totals: raised amount in display
// currency, distinct donor accounts and registered organizations.
func (s *Service) ComputeStats(ctx context.Context) (*Stats, error) {
	donations, err := s.store.GetAllDonations(ctx)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	donors := make(map[string]struct{}, len(donations))
	for _, d := range donations {
		total = total.Add(d.Amount)
		// Rows written before the donor account was captured count by
		// transaction hash instead.
		donor := d.Donor
		if donor == "" {
			donor = d.TxHash
		}
		donors[donor] = struct{}{}
	}

	orgs, err := s.store.CountOrganizations(ctx)
	if err != nil {
		return nil, err
	}

	rate := s.rates.GetRate(ctx)
	return &Stats{
		TotalRaised:  total.Mul(rate).Round(0).IntPart(),
		ActiveDonors: int64(len(donors)),
		VerifiedNGOs: orgs,
	}, nil
}
