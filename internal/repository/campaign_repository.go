package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stanstork/sponsordesk-api/internal/apperr"
	"github.com/stanstork/sponsordesk-api/internal/models"
)

type CampaignRepository interface {
	List(ctx context.Context, userID string) ([]models.Campaign, error)
	Get(ctx context.Context, userID, campaignID string) (models.Campaign, error)
	Create(ctx context.Context, campaign models.Campaign) (models.Campaign, error)
	Update(ctx context.Context, userID, campaignID string, params UpdateCampaignParams) (models.Campaign, error)
	Delete(ctx context.Context, userID, campaignID string) error
	ListOwners(ctx context.Context) ([]Owner, error)
}

// UpdateCampaignParams carries a partial update; nil pointers and unset dates are left unchanged.
type UpdateCampaignParams struct {
	BrandName                 *string
	ContentItems              *[]models.ContentItem
	Status                    *models.CampaignStatus
	PaymentAmount             *decimal.Decimal
	Currency                  *string
	AgentCommissionPercentage *decimal.Decimal
	PaymentTerms              *models.PaymentTerms
	ContractSignDate          models.OptionalDate
	PlannedPublishDate        models.OptionalDate
	ActualPublishDate         models.OptionalDate
	PlannedPaymentDate        models.OptionalDate
	PaidDate                  models.OptionalDate
	IsPaid                    *bool
	ContractURL               *string
	BriefURL                  *string
	VideoIdea                 *string
	Notes                     *string
	PublishedLink             *string
}

func (p UpdateCampaignParams) assignments() ([]string, []interface{}, error) {
	var (
		cols []string
		args []interface{}
	)
	set := func(col string, val interface{}) {
		cols = append(cols, col)
		args = append(args, val)
	}

	if p.BrandName != nil {
		set("brand_name", strings.TrimSpace(*p.BrandName))
	}
	if p.ContentItems != nil {
		raw, err := json.Marshal(*p.ContentItems)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal content items: %w", err)
		}
		set("content_items", string(raw))
	}
	if p.Status != nil {
		set("status", string(*p.Status))
	}
	if p.PaymentAmount != nil {
		set("payment_amount", *p.PaymentAmount)
	}
	if p.Currency != nil {
		set("currency", *p.Currency)
	}
	if p.AgentCommissionPercentage != nil {
		set("agent_commission_percentage", *p.AgentCommissionPercentage)
	}
	if p.PaymentTerms != nil {
		set("payment_terms", string(*p.PaymentTerms))
	}
	if p.ContractSignDate.Set {
		set("contract_sign_date", dateParam(p.ContractSignDate.Date))
	}
	if p.PlannedPublishDate.Set {
		set("planned_publish_date", dateParam(p.PlannedPublishDate.Date))
	}
	if p.ActualPublishDate.Set {
		set("actual_publish_date", dateParam(p.ActualPublishDate.Date))
	}
	if p.PlannedPaymentDate.Set {
		set("planned_payment_date", dateParam(p.PlannedPaymentDate.Date))
	}
	if p.PaidDate.Set {
		set("paid_date", dateParam(p.PaidDate.Date))
	}
	if p.IsPaid != nil {
		set("is_paid", *p.IsPaid)
	}
	if p.ContractURL != nil {
		set("contract_url", *p.ContractURL)
	}
	if p.BriefURL != nil {
		set("brief_url", *p.BriefURL)
	}
	if p.VideoIdea != nil {
		set("video_idea", *p.VideoIdea)
	}
	if p.Notes != nil {
		set("notes", *p.Notes)
	}
	if p.PublishedLink != nil {
		set("published_link", *p.PublishedLink)
	}
	return cols, args, nil
}

// Owner identifies a user who holds at least one campaign.
type Owner struct {
	UserID string
	Email  string
}

type campaignRepository struct {
	db *sql.DB
}

func NewCampaignRepository(db *sql.DB) CampaignRepository {
	return &campaignRepository{db: db}
}

const campaignColumns = `id, user_id, brand_name, content_items, status, payment_amount, currency,
		agent_commission_percentage, payment_terms, contract_sign_date, planned_publish_date,
		actual_publish_date, planned_payment_date, paid_date, is_paid, contract_url, brief_url,
		video_idea, notes, published_link, created_at, updated_at`

func (r *campaignRepository) List(ctx context.Context, userID string) ([]models.Campaign, error) {
	query := `
		SELECT ` + campaignColumns + `
		FROM creator.campaigns
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, apperr.Store("campaigns.list", err)
	}
	defer rows.Close()

	campaigns := []models.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, apperr.Store("campaigns.list", err)
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store("campaigns.list", err)
	}
	return campaigns, nil
}

func (r *campaignRepository) Get(ctx context.Context, userID, campaignID string) (models.Campaign, error) {
	query := `
		SELECT ` + campaignColumns + `
		FROM creator.campaigns
		WHERE id = $1 AND user_id = $2
	`
	c, err := scanCampaign(r.db.QueryRowContext(ctx, query, campaignID, userID))
	if isMissing(err) {
		return models.Campaign{}, apperr.ErrNotFound
	}
	return c, apperr.Store("campaigns.get", err)
}

func (r *campaignRepository) Create(ctx context.Context, c models.Campaign) (models.Campaign, error) {
	items, err := json.Marshal(nonNilItems(c.ContentItems))
	if err != nil {
		return models.Campaign{}, fmt.Errorf("marshal content items: %w", err)
	}

	query := `
		INSERT INTO creator.campaigns (
			user_id, brand_name, content_items, status, payment_amount, currency,
			agent_commission_percentage, payment_terms, contract_sign_date, planned_publish_date,
			actual_publish_date, planned_payment_date, paid_date, is_paid, contract_url, brief_url,
			video_idea, notes, published_link
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING ` + campaignColumns

	row := r.db.QueryRowContext(ctx, query,
		c.UserID,
		strings.TrimSpace(c.BrandName),
		string(items),
		string(c.Status),
		c.PaymentAmount,
		c.Currency,
		c.AgentCommissionPercentage,
		string(c.PaymentTerms),
		dateParam(c.ContractSignDate),
		dateParam(c.PlannedPublishDate),
		dateParam(c.ActualPublishDate),
		dateParam(c.PlannedPaymentDate),
		dateParam(c.PaidDate),
		c.IsPaid,
		c.ContractURL,
		c.BriefURL,
		c.VideoIdea,
		c.Notes,
		c.PublishedLink,
	)
	created, err := scanCampaign(row)
	return created, apperr.Store("campaigns.create", err)
}

func (r *campaignRepository) Update(ctx context.Context, userID, campaignID string, params UpdateCampaignParams) (models.Campaign, error) {
	cols, args, err := params.assignments()
	if err != nil {
		return models.Campaign{}, err
	}
	if len(cols) == 0 {
		return r.Get(ctx, userID, campaignID)
	}

	sets := make([]string, 0, len(cols)+1)
	for i, col := range cols {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i+1))
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, campaignID, userID)

	query := fmt.Sprintf(`
		UPDATE creator.campaigns
		SET %s
		WHERE id = $%d AND user_id = $%d
		RETURNING %s
	`, strings.Join(sets, ", "), len(cols)+1, len(cols)+2, campaignColumns)

	updated, err := scanCampaign(r.db.QueryRowContext(ctx, query, args...))
	if isMissing(err) {
		return models.Campaign{}, apperr.ErrNotFound
	}
	return updated, apperr.Store("campaigns.update", err)
}

func (r *campaignRepository) Delete(ctx context.Context, userID, campaignID string) error {
	const query = `DELETE FROM creator.campaigns WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, campaignID, userID)
	if isMissing(err) {
		return apperr.ErrNotFound
	}
	if err != nil {
		return apperr.Store("campaigns.delete", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperr.Store("campaigns.delete", err)
	}
	if affected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *campaignRepository) ListOwners(ctx context.Context) ([]Owner, error) {
	const query = `
		SELECT DISTINCT u.id, u.email
		FROM creator.users u
		JOIN creator.campaigns c ON c.user_id = u.id
		ORDER BY u.email
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperr.Store("campaigns.owners", err)
	}
	defer rows.Close()

	var owners []Owner
	for rows.Next() {
		var o Owner
		if err := rows.Scan(&o.UserID, &o.Email); err != nil {
			return nil, apperr.Store("campaigns.owners", err)
		}
		owners = append(owners, o)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store("campaigns.owners", err)
	}
	return owners, nil
}

func scanCampaign(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Campaign, error) {
	var (
		c                                                                   models.Campaign
		itemsRaw                                                            []byte
		status, terms                                                       string
		contractSign, plannedPublish, actualPublish, plannedPayment, paidOn sql.NullTime
		contractURL, briefURL, videoIdea, notes, publishedLink              sql.NullString
	)

	if err := scanner.Scan(
		&c.ID,
		&c.UserID,
		&c.BrandName,
		&itemsRaw,
		&status,
		&c.PaymentAmount,
		&c.Currency,
		&c.AgentCommissionPercentage,
		&terms,
		&contractSign,
		&plannedPublish,
		&actualPublish,
		&plannedPayment,
		&paidOn,
		&c.IsPaid,
		&contractURL,
		&briefURL,
		&videoIdea,
		&notes,
		&publishedLink,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return models.Campaign{}, err
	}

	c.Status = models.CampaignStatus(status)
	c.PaymentTerms = models.PaymentTerms(terms)
	c.ContentItems = []models.ContentItem{}
	if len(itemsRaw) > 0 {
		if err := json.Unmarshal(itemsRaw, &c.ContentItems); err != nil {
			return models.Campaign{}, fmt.Errorf("decode content items: %w", err)
		}
	}
	c.ContractSignDate = dateFromNull(contractSign)
	c.PlannedPublishDate = dateFromNull(plannedPublish)
	c.ActualPublishDate = dateFromNull(actualPublish)
	c.PlannedPaymentDate = dateFromNull(plannedPayment)
	c.PaidDate = dateFromNull(paidOn)
	c.ContractURL = contractURL.String
	c.BriefURL = briefURL.String
	c.VideoIdea = videoIdea.String
	c.Notes = notes.String
	c.PublishedLink = publishedLink.String

	return c, nil
}

func nonNilItems(items []models.ContentItem) []models.ContentItem {
	if items == nil {
		return []models.ContentItem{}
	}
	return items
}

// dateParam renders an optional calendar date as a DATE parameter.
func dateParam(d *civil.Date) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func dateFromNull(t sql.NullTime) *civil.Date {
	if !t.Valid {
		return nil
	}
	d := civil.DateOf(t.Time.In(time.UTC))
	return &d
}
