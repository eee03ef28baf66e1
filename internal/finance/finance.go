package finance

import (
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stanstork/sponsordesk-api/internal/models"
)

// Scope selects the payment period. Month 0 means the whole year.
type Scope struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func (s Scope) contains(d civil.Date) bool {
	if d.Year != s.Year {
		return false
	}
	return s.Month == 0 || int(d.Month) == s.Month
}

type MonthBucket struct {
	Month         int             `json:"month"`
	Paid          decimal.Decimal `json:"paid"`
	Pending       decimal.Decimal `json:"pending"`
	PaidCount     int             `json:"paid_count"`
	PendingCount  int             `json:"pending_count"`
	TotalCount    int             `json:"total_count"`
	PaidBrands    []string        `json:"paid_campaigns"`
	PendingBrands []string        `json:"pending_campaigns"`
}

type Summary struct {
	Scope            Scope                 `json:"scope"`
	TotalExpected    decimal.Decimal       `json:"total_expected"`
	TotalPaid        decimal.Decimal       `json:"total_paid"`
	TotalPending     decimal.Decimal       `json:"total_pending"`
	PendingCampaigns []models.CampaignView `json:"pending_campaigns"`
	Monthly          []MonthBucket         `json:"monthly"`
}

// Summarize aggregates net income for campaigns whose planned payment date
// falls in scope. Monthly buckets always cover the whole selected year.
func Summarize(campaigns []models.Campaign, scope Scope) Summary {
	sum := Summary{
		Scope:            scope,
		TotalExpected:    decimal.Zero,
		TotalPaid:        decimal.Zero,
		TotalPending:     decimal.Zero,
		PendingCampaigns: []models.CampaignView{},
		Monthly:          make([]MonthBucket, 12),
	}
	for i := range sum.Monthly {
		sum.Monthly[i] = MonthBucket{
			Month:         i + 1,
			Paid:          decimal.Zero,
			Pending:       decimal.Zero,
			PaidBrands:    []string{},
			PendingBrands: []string{},
		}
	}

	for _, c := range campaigns {
		if c.PlannedPaymentDate == nil {
			continue
		}
		due := *c.PlannedPaymentDate
		net := c.NetIncome()

		if scope.contains(due) {
			sum.TotalExpected = sum.TotalExpected.Add(net)
			if c.IsPaid {
				sum.TotalPaid = sum.TotalPaid.Add(net)
			} else {
				sum.TotalPending = sum.TotalPending.Add(net)
				sum.PendingCampaigns = append(sum.PendingCampaigns, models.NewCampaignView(c))
			}
		}

		if due.Year != scope.Year {
			continue
		}
		b := &sum.Monthly[int(due.Month)-1]
		b.TotalCount++
		if c.IsPaid {
			b.Paid = b.Paid.Add(net)
			b.PaidCount++
			b.PaidBrands = append(b.PaidBrands, c.BrandName)
		} else {
			b.Pending = b.Pending.Add(net)
			b.PendingCount++
			b.PendingBrands = append(b.PendingBrands, c.BrandName)
		}
	}
	return sum
}

// Years lists the distinct planned payment years, newest first. The current
// year is always present.
func Years(campaigns []models.Campaign, now time.Time) []int {
	seen := map[int]bool{now.Year(): true}
	years := []int{now.Year()}
	for _, c := range campaigns {
		if c.PlannedPaymentDate == nil || seen[c.PlannedPaymentDate.Year] {
			continue
		}
		seen[c.PlannedPaymentDate.Year] = true
		years = append(years, c.PlannedPaymentDate.Year)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}

const upcomingLimit = 5

type DashboardSummary struct {
	ExpectedThisMonth   decimal.Decimal       `json:"expected_this_month"`
	PaidThisMonth       decimal.Decimal       `json:"paid_this_month"`
	WaitingPaymentCount int                   `json:"waiting_payment_count"`
	WaitingPaymentTotal decimal.Decimal       `json:"waiting_payment_total"`
	UpcomingPublishes   []models.CampaignView `json:"upcoming_publishes"`
	TotalCampaigns      int                   `json:"total_campaigns"`
}

func Dashboard(campaigns []models.Campaign, now time.Time) DashboardSummary {
	month := Scope{Year: now.Year(), Month: int(now.Month())}
	d := DashboardSummary{
		ExpectedThisMonth:   decimal.Zero,
		PaidThisMonth:       decimal.Zero,
		WaitingPaymentTotal: decimal.Zero,
		UpcomingPublishes:   []models.CampaignView{},
		TotalCampaigns:      len(campaigns),
	}

	var upcoming []models.Campaign
	for _, c := range campaigns {
		net := c.NetIncome()

		if (c.PlannedPublishDate != nil && month.contains(*c.PlannedPublishDate)) ||
			month.contains(civil.DateOf(c.CreatedAt.In(now.Location()))) {
			d.ExpectedThisMonth = d.ExpectedThisMonth.Add(net)
		}
		if c.IsPaid && c.PaidDate != nil && month.contains(*c.PaidDate) {
			d.PaidThisMonth = d.PaidThisMonth.Add(net)
		}
		if !c.IsPaid && c.PaymentAmount.IsPositive() {
			d.WaitingPaymentCount++
			d.WaitingPaymentTotal = d.WaitingPaymentTotal.Add(net)
		}
		if (c.Status == models.StatusSigned || c.Status == models.StatusInProgress) && c.PlannedPublishDate != nil {
			upcoming = append(upcoming, c)
		}
	}

	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].PlannedPublishDate.Before(*upcoming[j].PlannedPublishDate)
	})
	if len(upcoming) > upcomingLimit {
		upcoming = upcoming[:upcomingLimit]
	}
	for _, c := range upcoming {
		d.UpcomingPublishes = append(d.UpcomingPublishes, models.NewCampaignView(c))
	}
	return d
}
