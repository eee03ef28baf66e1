package campaign

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stanstork/sponsordesk-api/internal/apperr"
	"github.com/stanstork/sponsordesk-api/internal/models"
	"github.com/stanstork/sponsordesk-api/internal/repository"
)

// Input is the campaign form payload. Absent fields are nil (or unset dates);
// on create they take defaults, on update they are left unchanged.
type Input struct {
	BrandName                 *string                `json:"brand_name"`
	ContentItems              *[]models.ContentItem  `json:"platform_content_items"`
	Status                    *models.CampaignStatus `json:"status"`
	PaymentAmount             *decimal.Decimal       `json:"payment_amount"`
	Currency                  *string                `json:"currency"`
	AgentCommissionPercentage *decimal.Decimal       `json:"agent_commission_percentage"`
	PaymentTerms              *models.PaymentTerms   `json:"payment_terms"`
	ContractSignDate          models.OptionalDate    `json:"contract_sign_date"`
	PlannedPublishDate        models.OptionalDate    `json:"planned_publish_date"`
	ActualPublishDate         models.OptionalDate    `json:"actual_publish_date"`
	PlannedPaymentDate        models.OptionalDate    `json:"planned_payment_date"`
	PaidDate                  models.OptionalDate    `json:"paid_date"`
	IsPaid                    *bool                  `json:"is_paid"`
	ContractURL               *string                `json:"contract_url"`
	BriefURL                  *string                `json:"brief_url"`
	VideoIdea                 *string                `json:"video_idea"`
	Notes                     *string                `json:"notes"`
	PublishedLink             *string                `json:"published_link"`
}

const (
	DefaultCurrency   = "ILS"
	DefaultTerms      = models.TermsNet30
	defaultCommission = 35
)

var hundred = decimal.NewFromInt(100)

// Validate checks every supplied field. requireBrand is set on create.
func (in Input) Validate(requireBrand bool) error {
	if in.BrandName != nil || requireBrand {
		if in.BrandName == nil || strings.TrimSpace(*in.BrandName) == "" {
			return apperr.Invalid("brand_name", "is required")
		}
	}
	if in.ContentItems != nil {
		if err := validateItems(*in.ContentItems); err != nil {
			return err
		}
	}
	if in.Status != nil && !models.IsValidStatus(*in.Status) {
		return apperr.Invalid("status", "unknown status %q", *in.Status)
	}
	if in.PaymentAmount != nil && in.PaymentAmount.IsNegative() {
		return apperr.Invalid("payment_amount", "must not be negative")
	}
	if in.Currency != nil && !models.IsValidCurrency(*in.Currency) {
		return apperr.Invalid("currency", "must be one of %s", strings.Join(models.Currencies, ", "))
	}
	if in.AgentCommissionPercentage != nil {
		pct := *in.AgentCommissionPercentage
		if pct.IsNegative() || pct.GreaterThan(hundred) {
			return apperr.Invalid("agent_commission_percentage", "must be between 0 and 100")
		}
	}
	if in.PaymentTerms != nil && !models.IsValidPaymentTerms(*in.PaymentTerms) {
		return apperr.Invalid("payment_terms", "unknown payment terms %q", *in.PaymentTerms)
	}
	return nil
}

func validateItems(items []models.ContentItem) error {
	for i, item := range items {
		field := func(name string) string { return fmt.Sprintf("platform_content_items[%d].%s", i, name) }
		if !models.IsValidPlatform(item.Platform) {
			return apperr.Invalid(field("platform"), "unknown platform %q", item.Platform)
		}
		if !models.IsValidContentType(item.ContentType) {
			return apperr.Invalid(field("content_type"), "unknown content type %q", item.ContentType)
		}
		if item.Quantity < 1 {
			return apperr.Invalid(field("quantity"), "must be at least 1")
		}
		if item.Completed < 0 || item.Completed > item.Quantity {
			return apperr.Invalid(field("completed"), "must be between 0 and quantity")
		}
	}
	return nil
}

// newCampaign applies creation defaults.
func (in Input) newCampaign(userID string) models.Campaign {
	c := models.Campaign{
		UserID:                    userID,
		Status:                    models.StatusWaitingSignature,
		Currency:                  DefaultCurrency,
		AgentCommissionPercentage: decimal.NewFromInt(defaultCommission),
		PaymentTerms:              DefaultTerms,
		ContentItems: []models.ContentItem{
			{Platform: models.PlatformInstagram, ContentType: models.ContentReel, Quantity: 1},
		},
	}

	if in.BrandName != nil {
		c.BrandName = strings.TrimSpace(*in.BrandName)
	}
	if in.ContentItems != nil && len(*in.ContentItems) > 0 {
		c.ContentItems = append([]models.ContentItem(nil), *in.ContentItems...)
	}
	if in.Status != nil {
		c.Status = *in.Status
	}
	if in.PaymentAmount != nil {
		c.PaymentAmount = *in.PaymentAmount
	}
	if in.Currency != nil {
		c.Currency = *in.Currency
	}
	if in.AgentCommissionPercentage != nil {
		c.AgentCommissionPercentage = *in.AgentCommissionPercentage
	}
	if in.PaymentTerms != nil {
		c.PaymentTerms = *in.PaymentTerms
	}
	c.ContractSignDate = in.ContractSignDate.Date
	c.PlannedPublishDate = in.PlannedPublishDate.Date
	c.ActualPublishDate = in.ActualPublishDate.Date
	c.PlannedPaymentDate = in.PlannedPaymentDate.Date
	c.PaidDate = in.PaidDate.Date
	if in.IsPaid != nil {
		c.IsPaid = *in.IsPaid
	}
	c.ContractURL = trimmed(in.ContractURL)
	c.BriefURL = trimmed(in.BriefURL)
	c.VideoIdea = value(in.VideoIdea)
	c.Notes = value(in.Notes)
	c.PublishedLink = trimmed(in.PublishedLink)
	return c
}

func (in Input) updateParams() repository.UpdateCampaignParams {
	p := repository.UpdateCampaignParams{
		BrandName:                 in.BrandName,
		ContentItems:              in.ContentItems,
		Status:                    in.Status,
		PaymentAmount:             in.PaymentAmount,
		Currency:                  in.Currency,
		AgentCommissionPercentage: in.AgentCommissionPercentage,
		PaymentTerms:              in.PaymentTerms,
		ContractSignDate:          in.ContractSignDate,
		PlannedPublishDate:        in.PlannedPublishDate,
		ActualPublishDate:         in.ActualPublishDate,
		PlannedPaymentDate:        in.PlannedPaymentDate,
		PaidDate:                  in.PaidDate,
		IsPaid:                    in.IsPaid,
		VideoIdea:                 in.VideoIdea,
		Notes:                     in.Notes,
	}
	if in.ContractURL != nil {
		v := trimmed(in.ContractURL)
		p.ContractURL = &v
	}
	if in.BriefURL != nil {
		v := trimmed(in.BriefURL)
		p.BriefURL = &v
	}
	if in.PublishedLink != nil {
		v := trimmed(in.PublishedLink)
		p.PublishedLink = &v
	}
	return p
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
