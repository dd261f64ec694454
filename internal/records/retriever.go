package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"anthemengine/internal/anthem"
	"anthemengine/internal/domain"
)

// Fetcher runs a query against an upstream store. *Bound implements it.
type Fetcher interface {
	Fetch(ctx context.Context, q Query) ([]Record, error)
}

// Bundle holds the three records for one anthem. Secondary and Related are
// nil when the upstream store has no such record.
type Bundle struct {
	ID        string
	Primary   anthem.FieldMap
	Secondary anthem.FieldMap
	Related   anthem.FieldMap

	// SecondaryCount is how many secondary records matched; only the first is used.
	SecondaryCount int
}

// Retriever resolves an identifier to its primary record and the two
// related records the composer needs.
type Retriever struct {
	fetcher Fetcher
	objects domain.Objects
	logger  logrus.FieldLogger
}

// NewRetriever creates a Retriever. A nil fetcher makes every Fetch fail
// with ErrNoSource.
func NewRetriever(f Fetcher, objects domain.Objects, logger logrus.FieldLogger) *Retriever {
	return &Retriever{
		fetcher: f,
		objects: objects,
		logger:  logger.WithField("component", "retriever"),
	}
}

// Objects returns the object layout the retriever queries.
func (r *Retriever) Objects() domain.Objects { return r.objects }

// Fetch loads the bundle for id.
//
// A missing primary record is an error wrapping ErrNotFound. A missing
// secondary or related record is not: the bundle carries a nil map and the
// composer encodes it as an empty record. Only the first secondary record is
// used.
func (r *Retriever) Fetch(ctx context.Context, id string) (*Bundle, error) {
	if r == nil || r.fetcher == nil {
		return nil, ErrNoSource
	}
	log := r.logger.WithField("id", id)

	// The related record's key lives on the primary even when it is not encoded.
	primary, err := r.first(ctx, r.objects.Primary, id, r.objects.Related.LinkField)
	if err != nil {
		return nil, err
	}
	if primary == nil {
		return nil, &NotFoundError{Object: r.objects.Primary.Object, Key: id}
	}
	log.WithField("name", primary["Name"]).Infof("retrieved %s", r.objects.Primary.Object)

	b := &Bundle{ID: id, Primary: primary}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		recs, err := r.query(gctx, r.objects.Secondary, id)
		if err != nil {
			return err
		}
		b.SecondaryCount = len(recs)
		if len(recs) > 0 {
			b.Secondary = recs[0].Data
		}
		log.Infof("retrieved %d %s records", len(recs), r.objects.Secondary.Object)
		return nil
	})
	g.Go(func() error {
		link := primary[r.objects.Related.LinkField]
		if r.objects.Related.LinkField == "" || link == nil || link == "" {
			log.Warnf("%s has no associated %s", r.objects.Primary.Object, r.objects.Related.Object)
			return nil
		}
		related, err := r.first(gctx, r.objects.Related, link)
		if err != nil {
			return err
		}
		if related == nil {
			log.Warnf("%s %v not found", r.objects.Related.Object, link)
			return nil
		}
		b.Related = related
		name := related["Name"]
		if name == nil {
			name = link
		}
		log.Infof("retrieved %s %v", r.objects.Related.Object, name)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *Retriever) first(ctx context.Context, obj domain.ObjectSchema, key any, extra ...string) (anthem.FieldMap, error) {
	obj.Limit = 1
	recs, err := r.query(ctx, obj, key, extra...)
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return recs[0].Data, nil
}

func (r *Retriever) query(ctx context.Context, obj domain.ObjectSchema, key any, extra ...string) ([]Record, error) {
	q := Query{
		Object:  obj.Object,
		Fields:  SelectFields(obj, extra...),
		Where:   obj.KeyField,
		Equals:  key,
		OrderBy: obj.OrderBy,
		Limit:   obj.Limit,
	}
	recs, err := r.fetcher.Fetch(ctx, q)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("query %s: %w", obj.Object, err)
		}
		return nil, &UpstreamError{Object: obj.Object, Err: err}
	}
	return recs, nil
}

// SelectFields lists the columns to fetch for obj: its key field, the
// encoded fields, its link field and any extra columns, without duplicates.
func SelectFields(obj domain.ObjectSchema, extra ...string) []string {
	cols := append([]string{obj.KeyField}, obj.Fields...)
	cols = append(cols, obj.LinkField)
	cols = append(cols, extra...)
	return lo.Uniq(lo.Compact(cols))
}
