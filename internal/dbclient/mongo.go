package dbclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"anthemengine/internal/domain"
)

// mongoConnector implements Connector for MongoDB. Tables are collections.
type mongoConnector struct {
	client *mongo.Client
	dbName string
	logger logrus.FieldLogger
}

func newMongoConnector(conn *domain.SourceConnection, password string, logger logrus.FieldLogger) (*mongoConnector, error) {
	uri, dbName, err := buildMongoURI(conn, password)
	if err != nil {
		return nil, err
	}

	logger.WithField("database", dbName).Infof("connecting to %s", redact(uri, password))
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	return &mongoConnector{client: client, dbName: dbName, logger: logger}, nil
}

// buildMongoURI accepts either a full mongodb:// or mongodb+srv:// string
// in Host (with an optional <password> placeholder) or host and port parts.
func buildMongoURI(conn *domain.SourceConnection, password string) (string, string, error) {
	var u *url.URL
	if strings.HasPrefix(conn.Host, "mongodb+srv://") || strings.HasPrefix(conn.Host, "mongodb://") {
		raw := conn.Host
		if password != "" {
			esc := url.QueryEscape(password)
			raw = strings.ReplaceAll(raw, "<password>", esc)
			raw = strings.ReplaceAll(raw, "<db_password>", esc)
		}
		parsed, err := url.Parse(raw)
		if err != nil {
			return "", "", fmt.Errorf("parse mongo uri: %w", err)
		}
		u = parsed
	} else {
		port := conn.Port
		if port == 0 {
			port = 27017
		}
		u = &url.URL{Scheme: "mongodb", Host: fmt.Sprintf("%s:%d", conn.Host, port)}
		if conn.Username != "" {
			u.User = url.UserPassword(conn.Username, password)
		}
		// extraJSON carries authSource, replicaSet, etc.
		if conn.ExtraJSON != "" && conn.ExtraJSON != "{}" {
			var extras map[string]string
			if err := json.Unmarshal([]byte(conn.ExtraJSON), &extras); err != nil {
				return "", "", fmt.Errorf("parse extraJson: %w", err)
			}
			params := url.Values{}
			for k, v := range extras {
				params.Set(k, v)
			}
			u.RawQuery = params.Encode()
		}
	}

	dbName := conn.Database
	if dbName == "" {
		dbName = strings.Trim(u.Path, "/")
	} else if strings.Trim(u.Path, "/") == "" {
		u.Path = "/" + dbName
	}
	if dbName == "" {
		dbName = "test"
	}
	return u.String(), dbName, nil
}

func redact(uri, password string) string {
	if password == "" {
		return uri
	}
	uri = strings.ReplaceAll(uri, url.QueryEscape(password), "***")
	return strings.ReplaceAll(uri, password, "***")
}

func (m *mongoConnector) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return m.client.Ping(ctx, nil)
}

func (m *mongoConnector) Select(ctx context.Context, s Select) (*QueryPage, error) {
	if s.Table == "" {
		return nil, fmt.Errorf("%w: collection is required", ErrInvalidSelect)
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	filter := bson.D{}
	if s.Where != "" {
		filter = bson.D{{Key: s.Where, Value: mongoValue(s.Where, s.Equals)}}
	}

	opts := options.Find()
	if len(s.Columns) > 0 {
		proj := bson.D{}
		for _, col := range lo.Uniq(s.Columns) {
			proj = append(proj, bson.E{Key: col, Value: 1})
		}
		opts.SetProjection(proj)
	}
	if len(s.OrderBy) > 0 {
		sortDoc := bson.D{}
		for _, col := range s.OrderBy {
			sortDoc = append(sortDoc, bson.E{Key: col, Value: 1})
		}
		opts.SetSort(sortDoc)
	}
	if s.Limit > 0 {
		opts.SetLimit(int64(s.Limit))
	}

	m.logger.WithField("collection", s.Table).Debugf("find: filter=%v", filter)
	cursor, err := m.client.Database(m.dbName).Collection(s.Table).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []bson.D
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return docsToPage(docs, s.Columns), nil
}

// mongoValue converts a hex string into an ObjectID when matching _id.
func mongoValue(field string, v any) any {
	if field != "_id" {
		return v
	}
	if s, ok := v.(string); ok {
		if oid, err := bson.ObjectIDFromHex(s); err == nil {
			return oid
		}
	}
	return v
}

// docsToPage flattens documents into rows. Columns follow the requested
// order; otherwise _id first, then alphabetical.
func docsToPage(docs []bson.D, requested []string) *QueryPage {
	columns := lo.Uniq(requested)
	if len(columns) == 0 {
		seen := map[string]bool{}
		for _, doc := range docs {
			for _, elem := range doc {
				if !seen[elem.Key] {
					seen[elem.Key] = true
					columns = append(columns, elem.Key)
				}
			}
		}
		sort.SliceStable(columns, func(i, j int) bool {
			if columns[i] == "_id" {
				return true
			}
			if columns[j] == "_id" {
				return false
			}
			return columns[i] < columns[j]
		})
	}

	page := &QueryPage{Columns: columns}
	for _, doc := range docs {
		row := make([]any, len(columns))
		for _, elem := range doc {
			if j := lo.IndexOf(columns, elem.Key); j >= 0 {
				row[j] = fromBSON(elem.Value)
			}
		}
		page.Rows = append(page.Rows, row)
	}
	return page
}

// fromBSON maps driver types onto plain Go values.
func fromBSON(v any) any {
	switch val := v.(type) {
	case bson.ObjectID:
		return val.Hex()
	case bson.DateTime:
		return val.Time().UTC()
	case bson.Decimal128:
		return val.String()
	case bson.D:
		m := make(map[string]any, len(val))
		for _, e := range val {
			m[e.Key] = fromBSON(e.Value)
		}
		return m
	case bson.A:
		return lo.Map(val, func(x any, _ int) any { return fromBSON(x) })
	default:
		return val
	}
}

func (m *mongoConnector) Introspect(ctx context.Context) (*SchemaInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	db := m.client.Database(m.dbName)

	collections, err := db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	sort.Strings(collections)

	schema := &SchemaInfo{}
	for _, collName := range collections {
		// Sample one document to extract field names.
		var doc bson.D
		err := db.Collection(collName).FindOne(ctx, bson.D{}).Decode(&doc)
		if err != nil {
			schema.Tables = append(schema.Tables, TableInfo{Name: collName})
			continue
		}
		cols := make([]ColumnInfo, 0, len(doc))
		for _, e := range doc {
			cols = append(cols, ColumnInfo{Name: e.Key, Type: fmt.Sprintf("%T", fromBSON(e.Value))})
		}
		schema.Tables = append(schema.Tables, TableInfo{Name: collName, Columns: cols})
	}

	return schema, nil
}

func (m *mongoConnector) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
