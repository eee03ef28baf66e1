package models

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

func init() {
	// Amounts travel as JSON numbers, as the web client expects.
	decimal.MarshalJSONWithoutQuotes = true
}

type CampaignStatus string

const (
	StatusWaitingSignature CampaignStatus = "waiting_signature"
	StatusSigned           CampaignStatus = "signed"
	StatusInProgress       CampaignStatus = "in_progress"
	StatusPublished        CampaignStatus = "published"
	StatusWaitingPayment   CampaignStatus = "waiting_payment"
	StatusPaid             CampaignStatus = "paid"
)

// CampaignStatuses lists every status in its conceptual order. No transition
// table is enforced; any status may follow any other.
var CampaignStatuses = []CampaignStatus{
	StatusWaitingSignature,
	StatusSigned,
	StatusInProgress,
	StatusPublished,
	StatusWaitingPayment,
	StatusPaid,
}

func IsValidStatus(s CampaignStatus) bool {
	for _, v := range CampaignStatuses {
		if v == s {
			return true
		}
	}
	return false
}

type Platform string

const (
	PlatformInstagram Platform = "Instagram"
	PlatformTikTok    Platform = "TikTok"
	PlatformYouTube   Platform = "YouTube"
	PlatformFacebook  Platform = "Facebook"
	PlatformTwitter   Platform = "Twitter"
	PlatformOther     Platform = "Other"
)

var Platforms = []Platform{PlatformInstagram, PlatformTikTok, PlatformYouTube, PlatformFacebook, PlatformTwitter, PlatformOther}

func IsValidPlatform(p Platform) bool {
	for _, v := range Platforms {
		if v == p {
			return true
		}
	}
	return false
}

type ContentType string

const (
	ContentVideo ContentType = "video"
	ContentStory ContentType = "story"
	ContentPost  ContentType = "post"
	ContentReel  ContentType = "reel"
	ContentShort ContentType = "short"
)

var ContentTypes = []ContentType{ContentVideo, ContentStory, ContentPost, ContentReel, ContentShort}

func IsValidContentType(c ContentType) bool {
	for _, v := range ContentTypes {
		if v == c {
			return true
		}
	}
	return false
}

type PaymentTerms string

const (
	TermsImmediate PaymentTerms = "immediate"
	TermsNet30     PaymentTerms = "net_30"
	TermsNet45     PaymentTerms = "net_45"
	TermsNet60     PaymentTerms = "net_60"
	TermsNet90     PaymentTerms = "net_90"
)

var paymentTermsDays = map[PaymentTerms]int{
	TermsImmediate: 0,
	TermsNet30:     30,
	TermsNet45:     45,
	TermsNet60:     60,
	TermsNet90:     90,
}

func IsValidPaymentTerms(t PaymentTerms) bool {
	_, ok := paymentTermsDays[t]
	return ok
}

// Days returns the payment offset in days. Unknown terms fall back to net 30.
func (t PaymentTerms) Days() int {
	if days, ok := paymentTermsDays[t]; ok {
		return days
	}
	return 30
}

// DefaultPaymentDate is the planned payment date suggested for a publish date.
func DefaultPaymentDate(publish civil.Date, terms PaymentTerms) civil.Date {
	return publish.AddDays(terms.Days())
}

var Currencies = []string{"ILS", "USD", "EUR"}

func IsValidCurrency(c string) bool {
	for _, v := range Currencies {
		if v == c {
			return true
		}
	}
	return false
}

// ContentItem is one deliverable within a campaign.
type ContentItem struct {
	Platform    Platform    `json:"platform"`
	ContentType ContentType `json:"content_type"`
	Quantity    int         `json:"quantity"`
	Completed   int         `json:"completed"`
}

// Toggle advances the completed counter by one and wraps to zero once the
// quantity has been reached.
func (i ContentItem) Toggle() ContentItem {
	if i.Completed >= i.Quantity {
		i.Completed = 0
	} else {
		i.Completed++
	}
	return i
}

type Campaign struct {
	ID                        string          `json:"id" db:"id"`
	UserID                    string          `json:"user_id" db:"user_id"`
	BrandName                 string          `json:"brand_name" db:"brand_name"`
	ContentItems              []ContentItem   `json:"platform_content_items" db:"content_items"`
	Status                    CampaignStatus  `json:"status" db:"status"`
	PaymentAmount             decimal.Decimal `json:"payment_amount" db:"payment_amount"`
	Currency                  string          `json:"currency" db:"currency"`
	AgentCommissionPercentage decimal.Decimal `json:"agent_commission_percentage" db:"agent_commission_percentage"`
	PaymentTerms              PaymentTerms    `json:"payment_terms" db:"payment_terms"`
	ContractSignDate          *civil.Date     `json:"contract_sign_date,omitempty" db:"contract_sign_date"`
	PlannedPublishDate        *civil.Date     `json:"planned_publish_date,omitempty" db:"planned_publish_date"`
	ActualPublishDate         *civil.Date     `json:"actual_publish_date,omitempty" db:"actual_publish_date"`
	PlannedPaymentDate        *civil.Date     `json:"planned_payment_date,omitempty" db:"planned_payment_date"`
	PaidDate                  *civil.Date     `json:"paid_date,omitempty" db:"paid_date"`
	IsPaid                    bool            `json:"is_paid" db:"is_paid"`
	ContractURL               string          `json:"contract_url,omitempty" db:"contract_url"`
	BriefURL                  string          `json:"brief_url,omitempty" db:"brief_url"`
	VideoIdea                 string          `json:"video_idea,omitempty" db:"video_idea"`
	Notes                     string          `json:"notes,omitempty" db:"notes"`
	PublishedLink             string          `json:"published_link,omitempty" db:"published_link"`
	CreatedAt                 time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt                 time.Time       `json:"updated_at" db:"updated_at"`
}

var hundred = decimal.NewFromInt(100)

// NetIncome is the payment amount after the agent commission. It is always
// derived and never stored.
func NetIncome(amount, commissionPercentage decimal.Decimal) decimal.Decimal {
	share := decimal.NewFromInt(1).Sub(commissionPercentage.Div(hundred))
	return amount.Mul(share)
}

func (c Campaign) NetIncome() decimal.Decimal {
	return NetIncome(c.PaymentAmount, c.AgentCommissionPercentage)
}

// ContentTotals returns the summed quantity and completed counts.
func (c Campaign) ContentTotals() (quantity, completed int) {
	for _, item := range c.ContentItems {
		quantity += item.Quantity
		completed += item.Completed
	}
	return quantity, completed
}

// AllContentCompleted reports whether every content item is done and there
// is at least one deliverable.
func (c Campaign) AllContentCompleted() bool {
	total, _ := c.ContentTotals()
	if total <= 0 {
		return false
	}
	for _, item := range c.ContentItems {
		if item.Completed != item.Quantity {
			return false
		}
	}
	return true
}

func (c Campaign) HasPlatform(p Platform) bool {
	for _, item := range c.ContentItems {
		if item.Platform == p {
			return true
		}
	}
	return false
}

// CampaignView is the API representation with derived fields attached.
type CampaignView struct {
	Campaign
	NetIncome decimal.Decimal `json:"net_income"`
}

func NewCampaignView(c Campaign) CampaignView {
	return CampaignView{Campaign: c, NetIncome: c.NetIncome()}
}

// CampaignFilter narrows a campaign list the way the campaigns screen does.
type CampaignFilter struct {
	Search   string
	Platform Platform
	Status   CampaignStatus
	Month    int
}

func (f CampaignFilter) Matches(c Campaign) bool {
	if s := strings.TrimSpace(f.Search); s != "" {
		if !strings.Contains(strings.ToLower(c.BrandName), strings.ToLower(s)) {
			return false
		}
	}
	if f.Platform != "" && !c.HasPlatform(f.Platform) {
		return false
	}
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.Month != 0 {
		if c.PlannedPublishDate == nil || int(c.PlannedPublishDate.Month) != f.Month {
			return false
		}
	}
	return true
}
