package records

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anthemengine/internal/domain"
)

// fakeFetcher serves canned records per object and remembers every query.
type fakeFetcher struct {
	mu      sync.Mutex
	data    map[string][]Record
	fail    map[string]error
	queries []Query
	// project trims each record to the queried fields, like a real store.
	project bool
}

func (f *fakeFetcher) Fetch(ctx context.Context, q Query) ([]Record, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()

	if err := f.fail[q.Object]; err != nil {
		return nil, err
	}
	var out []Record
	for _, r := range f.data[q.Object] {
		if r.Data[q.Where] != q.Equals {
			continue
		}
		if f.project {
			row := map[string]any{}
			for _, col := range q.Fields {
				if v, ok := r.Data[col]; ok {
					row[col] = v
				}
			}
			r = Record{Data: row}
		}
		out = append(out, r)
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (f *fakeFetcher) query(object string) (Query, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, q := range f.queries {
		if q.Object == object {
			return q, true
		}
	}
	return Query{}, false
}

func crmFixture() *fakeFetcher {
	return &fakeFetcher{data: map[string][]Record{
		"Opportunity": {
			{Data: map[string]any{"Id": "006A", "Name": "Big Deal", "AccountId": "001A", "Amount": 1000}},
			{Data: map[string]any{"Id": "006B", "Name": "Orphan"}},
		},
		"OpportunityLineItem": {
			{Data: map[string]any{"OpportunityId": "006A", "Quantity": 1}},
			{Data: map[string]any{"OpportunityId": "006A", "Quantity": 2}},
		},
		"Account": {
			{Data: map[string]any{"Id": "001A", "Name": "Acme"}},
		},
	}}
}

func newTestRetriever(f Fetcher) (*Retriever, *test.Hook) {
	logger, hook := test.NewNullLogger()
	return NewRetriever(f, domain.DefaultObjects(), logger), hook
}

func TestRetriever_Fetch(t *testing.T) {
	f := crmFixture()
	r, _ := newTestRetriever(f)

	b, err := r.Fetch(context.Background(), "006A")
	require.NoError(t, err)
	assert.Equal(t, "006A", b.ID)
	assert.Equal(t, "Big Deal", b.Primary["Name"])
	assert.Equal(t, 1, b.Secondary["Quantity"], "only the first line item is used")
	assert.Equal(t, 2, b.SecondaryCount)
	assert.Equal(t, "Acme", b.Related["Name"])

	q, ok := f.query("OpportunityLineItem")
	require.True(t, ok)
	assert.Equal(t, "OpportunityId", q.Where)
	assert.Equal(t, []string{"SortOrder", "Id"}, q.OrderBy)
	assert.Equal(t, 10, q.Limit)

	q, ok = f.query("Account")
	require.True(t, ok)
	assert.Equal(t, "001A", q.Equals)
	assert.Equal(t, 1, q.Limit)
}

func TestRetriever_MissingPrimary(t *testing.T) {
	r, _ := newTestRetriever(crmFixture())

	_, err := r.Fetch(context.Background(), "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Opportunity", nf.Object)
	assert.Equal(t, `no Opportunity records found for "nope"`, err.Error())
}

func TestRetriever_MissingSecondaryAndRelated(t *testing.T) {
	r, hook := newTestRetriever(crmFixture())

	b, err := r.Fetch(context.Background(), "006B")
	require.NoError(t, err)
	assert.Nil(t, b.Secondary)
	assert.Zero(t, b.SecondaryCount)
	assert.Nil(t, b.Related)

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "Opportunity has no associated Account" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestRetriever_RelatedNotFound(t *testing.T) {
	f := crmFixture()
	f.data["Opportunity"][0].Data["AccountId"] = "001Z"
	r, hook := newTestRetriever(f)

	b, err := r.Fetch(context.Background(), "006A")
	require.NoError(t, err)
	assert.Nil(t, b.Related)
	require.NotNil(t, hook.LastEntry())
}

func TestRetriever_UpstreamFailure(t *testing.T) {
	boom := errors.New("connection reset")
	f := crmFixture()
	f.fail = map[string]error{"OpportunityLineItem": boom}
	r, _ := newTestRetriever(f)

	_, err := r.Fetch(context.Background(), "006A")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "failed to query OpportunityLineItem: connection reset", err.Error())
}

func TestRetriever_ContextCanceledIsNotUpstream(t *testing.T) {
	f := crmFixture()
	f.fail = map[string]error{"Opportunity": context.Canceled}
	r, _ := newTestRetriever(f)

	_, err := r.Fetch(context.Background(), "006A")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrUpstream)
}

func TestRetriever_NoSource(t *testing.T) {
	r, _ := newTestRetriever(nil)
	_, err := r.Fetch(context.Background(), "006A")
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestRetriever_LinkFieldNotEncoded(t *testing.T) {
	f := crmFixture()
	f.project = true
	objects := domain.Objects{
		Primary:   domain.ObjectSchema{Object: "Opportunity", KeyField: "Id", Fields: []string{"Name", "Amount"}},
		Secondary: domain.ObjectSchema{Object: "OpportunityLineItem", KeyField: "OpportunityId", Fields: []string{"Quantity"}},
		Related:   domain.ObjectSchema{Object: "Account", KeyField: "Id", LinkField: "AccountId", Fields: []string{"Name"}},
	}
	logger, _ := test.NewNullLogger()

	b, err := NewRetriever(f, objects, logger).Fetch(context.Background(), "006A")
	require.NoError(t, err)
	assert.Equal(t, "Acme", b.Related["Name"])

	q, ok := f.query("Opportunity")
	require.True(t, ok)
	assert.Equal(t, []string{"Id", "Name", "Amount", "AccountId"}, q.Fields)
}

func TestSelectFields(t *testing.T) {
	obj := domain.ObjectSchema{KeyField: "Id", LinkField: "AccountId", Fields: []string{"Name", "AccountId", "Id", "Amount"}}
	assert.Equal(t, []string{"Id", "Name", "AccountId", "Amount"}, SelectFields(obj))

	obj = domain.ObjectSchema{KeyField: "OpportunityId", Fields: []string{"Quantity"}}
	assert.Equal(t, []string{"OpportunityId", "Quantity"}, SelectFields(obj))
	assert.Equal(t, []string{"OpportunityId", "Quantity", "Extra"}, SelectFields(obj, "Quantity", "", "Extra"))
}
