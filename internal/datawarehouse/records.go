package datawarehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/straye-as/scorecard-api/internal/domain"
	"github.com/straye-as/scorecard-api/internal/scorecard"
	"golang.org/x/sync/errgroup"
)

// CRM mirror tables and the columns read from them
const (
	leadTable        = "crm_lead"
	opportunityTable = "crm_opportunity"
	dealTable        = "crm_deal"

	ownerColumn         = "Custom_Owner__c"
	createdColumn       = "CreatedDate"
	oppCloseColumn      = "CloseDate"
	dealClosedColumn    = "Closed_Date__c"
	oppStageColumn      = "StageName"
	dealStatusColumn    = "Deal_Status__c"
	closedWonStageValue = domain.ClosedWonStage
)

// RecordSource reads scorecard records from the warehouse CRM mirror
type RecordSource struct {
	client *Client
}

// NewRecordSource returns a record source backed by the client
func NewRecordSource(client *Client) *RecordSource {
	return &RecordSource{client: client}
}

var (
	_ scorecard.Fetcher        = (*RecordSource)(nil)
	_ scorecard.OwnerDirectory = (*RecordSource)(nil)
)

// where joins the owner predicate with an optional window filter
func where(window scorecard.TimeWindow, field string, p scorecard.Precision, extra ...string) string {
	clauses := []string{"UPPER(" + ownerColumn + ") = @owner"}
	if f := window.Filter(field, p); f != "" {
		clauses = append(clauses, f)
	}
	clauses = append(clauses, extra...)
	return strings.Join(clauses, " AND ")
}

// FetchOwnerRecords runs the five per-owner queries concurrently. Created subsets are
// filtered on CreatedDate; closed-won opportunities on CloseDate (a date column) and
// closed-won deals on Closed_Date__c.
func (s *RecordSource) FetchOwnerRecords(ctx context.Context, owner domain.Identity, window scorecard.TimeWindow) (*scorecard.RecordSet, error) {
	ownerArg := sql.Named("owner", owner.String())
	rs := &scorecard.RecordSet{}
	closedWon := fmt.Sprintf("%s = '%s'", oppStageColumn, closedWonStageValue)
	dealWon := fmt.Sprintf("%s = '%s'", dealStatusColumn, closedWonStageValue)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		q := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s",
			s.client.table(leadTable), where(window, createdColumn, scorecard.PrecisionInstant))
		return s.client.query(gctx, q, func(r *sql.Rows) error {
			return r.Scan(&rs.Leads)
		}, ownerArg)
	})

	g.Go(func() error {
		q := fmt.Sprintf("SELECT Id, AccountId, Amount, %s FROM %s WHERE %s",
			oppStageColumn, s.client.table(opportunityTable), where(window, createdColumn, scorecard.PrecisionInstant))
		var err error
		rs.OpportunitiesCreated, err = s.opportunities(gctx, q, ownerArg)
		return err
	})

	g.Go(func() error {
		q := fmt.Sprintf("SELECT Id, AccountId, Amount, %s FROM %s WHERE %s",
			oppStageColumn, s.client.table(opportunityTable), where(window, oppCloseColumn, scorecard.PrecisionDate, closedWon))
		var err error
		rs.OpportunitiesClosedWon, err = s.opportunities(gctx, q, ownerArg)
		return err
	})

	g.Go(func() error {
		q := fmt.Sprintf("SELECT Id, Account__c, Closed_Price__c, %s FROM %s WHERE %s",
			dealStatusColumn, s.client.table(dealTable), where(window, createdColumn, scorecard.PrecisionInstant))
		var err error
		rs.DealsCreated, err = s.deals(gctx, q, ownerArg)
		return err
	})

	g.Go(func() error {
		q := fmt.Sprintf("SELECT Id, Account__c, Closed_Price__c, %s FROM %s WHERE %s",
			dealStatusColumn, s.client.table(dealTable), where(window, dealClosedColumn, scorecard.PrecisionInstant, dealWon))
		var err error
		rs.DealsClosedWon, err = s.deals(gctx, q, ownerArg)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rs, nil
}

func (s *RecordSource) opportunities(ctx context.Context, q string, args ...any) ([]scorecard.OpportunityRecord, error) {
	var out []scorecard.OpportunityRecord
	err := s.client.query(ctx, q, func(r *sql.Rows) error {
		var (
			rec     scorecard.OpportunityRecord
			account sql.NullString
			amount  sql.NullFloat64
			stage   sql.NullString
		)
		if err := r.Scan(&rec.ID, &account, &amount, &stage); err != nil {
			return err
		}
		rec.AccountID = nullString(account)
		rec.Amount = nullFloat(amount)
		rec.Stage = stage.String
		out = append(out, rec)
		return nil
	}, args...)
	return out, err
}

func (s *RecordSource) deals(ctx context.Context, q string, args ...any) ([]scorecard.DealRecord, error) {
	var out []scorecard.DealRecord
	err := s.client.query(ctx, q, func(r *sql.Rows) error {
		var (
			rec     scorecard.DealRecord
			account sql.NullString
			price   sql.NullFloat64
			status  sql.NullString
		)
		if err := r.Scan(&rec.ID, &account, &price, &status); err != nil {
			return err
		}
		rec.AccountID = nullString(account)
		rec.Price = nullFloat(price)
		rec.Status = status.String
		out = append(out, rec)
		return nil
	}, args...)
	return out, err
}

// ListOwners returns every owner with a lead, opportunity or deal created in the window
func (s *RecordSource) ListOwners(ctx context.Context, window scorecard.TimeWindow) ([]domain.Identity, error) {
	parts := make([]string, 0, 3)
	for _, table := range []string{leadTable, opportunityTable, dealTable} {
		q := fmt.Sprintf("SELECT DISTINCT UPPER(%s) AS owner FROM %s WHERE %s IS NOT NULL",
			ownerColumn, s.client.table(table), ownerColumn)
		if f := window.Filter(createdColumn, scorecard.PrecisionInstant); f != "" {
			q += " AND " + f
		}
		parts = append(parts, q)
	}
	q := strings.Join(parts, " UNION ") + " ORDER BY owner"

	var owners []domain.Identity
	err := s.client.query(ctx, q, func(r *sql.Rows) error {
		var owner string
		if err := r.Scan(&owner); err != nil {
			return err
		}
		if id := domain.NewIdentity(owner); !id.IsZero() {
			owners = append(owners, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return owners, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
