package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/chartops/chart-engine/pkg/connectors"
	"github.com/chartops/chart-engine/pkg/logging"
	"github.com/chartops/chart-engine/pkg/models"
)

const connectTimeout = 10 * time.Second

// MongoConnector executes document queries against MongoDB.
type MongoConnector struct {
	client   *mongo.Client
	database string
	logger   *zap.Logger
}

// NewMongoConnector creates a connector from the connection's decrypted
// config map. Config accepts either a full "connection_string" or
// host/username/password/database fields.
func NewMongoConnector(ctx context.Context, conn *models.Connection, logger *zap.Logger) (*MongoConnector, error) {
	uri, database, err := uriFromConfig(conn.Config)
	if err != nil {
		return nil, fmt.Errorf("invalid mongodb connection config: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, mongooptions.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %s", logging.SanitizeError(err))
	}

	return &MongoConnector{
		client:   client,
		database: database,
		logger:   logger.Named("mongodb"),
	}, nil
}

// Fetch parses the request's query expression through the restricted grammar,
// resolves placeholders at the structured-query level, and interprets the
// result against the driver. The response includes schema hints for the
// fetched documents, which the caller persists opportunistically.
func (c *MongoConnector) Fetch(ctx context.Context, req *models.DataRequest, opts connectors.FetchOptions) (*connectors.FetchResult, error) {
	q, err := ParseQuery(req.Query)
	if err != nil {
		return nil, fmt.Errorf("invalid document query: %w", err)
	}

	if q.Filter != nil {
		resolved, err := resolveValues(q.Filter, req.Variables, opts.Variables)
		if err != nil {
			return nil, err
		}
		q.Filter = resolved.(map[string]any)
	}
	if q.Pipeline != nil {
		resolved, err := resolveValues(q.Pipeline, req.Variables, opts.Variables)
		if err != nil {
			return nil, err
		}
		q.Pipeline = resolved.([]any)
	}

	coll := c.client.Database(c.database).Collection(q.Collection)

	if q.Count {
		filter := q.Filter
		if filter == nil {
			filter = map[string]any{}
		}
		n, err := coll.CountDocuments(ctx, toBSON(filter))
		if err != nil {
			return nil, &connectors.RequestError{Message: logging.SanitizeError(err)}
		}
		return &connectors.FetchResult{
			Data: []map[string]any{{"count": n}},
		}, nil
	}

	limit := q.Limit
	if opts.Limit > 0 && (limit == 0 || int64(opts.Limit) < limit) {
		limit = int64(opts.Limit)
	}

	var cursor *mongo.Cursor
	if q.Pipeline != nil {
		pipeline := q.Pipeline
		if limit > 0 {
			pipeline = append(pipeline, map[string]any{"$limit": limit})
		}
		cursor, err = coll.Aggregate(ctx, pipeline)
	} else {
		findOpts := mongooptions.Find()
		if q.Sort != nil {
			findOpts.SetSort(toBSON(q.Sort))
		}
		if q.Projection != nil {
			findOpts.SetProjection(toBSON(q.Projection))
		}
		if limit > 0 {
			findOpts.SetLimit(limit)
		}
		if q.Skip > 0 {
			findOpts.SetSkip(q.Skip)
		}
		filter := q.Filter
		if filter == nil {
			filter = map[string]any{}
		}
		cursor, err = coll.Find(ctx, toBSON(filter), findOpts)
	}
	if err != nil {
		return nil, &connectors.RequestError{Message: logging.SanitizeError(err)}
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, &connectors.RequestError{Message: logging.SanitizeError(err)}
	}

	data := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		data = append(data, map[string]any(doc))
	}

	return &connectors.FetchResult{
		Data:          data,
		Configuration: schemaHints(q.Collection, data),
	}, nil
}

// Close disconnects the client.
func (c *MongoConnector) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return c.client.Disconnect(ctx)
}

// toBSON converts a parsed JSON object into a bson document preserving no
// particular key order (document queries carry no order-sensitive operators
// at the top level).
func toBSON(obj map[string]any) bson.M {
	return bson.M(obj)
}

// schemaHints derives field name/type hints from a sample of fetched
// documents. The engine persists these onto the data request best-effort.
func schemaHints(collection string, data []map[string]any) map[string]any {
	if len(data) == 0 {
		return nil
	}

	sample := data
	if len(sample) > 20 {
		sample = sample[:20]
	}

	fields := make(map[string]any)
	for _, doc := range sample {
		for k, v := range doc {
			if _, seen := fields[k]; seen {
				continue
			}
			fields[k] = typeName(v)
		}
	}

	return map[string]any{
		"collection": collection,
		"fields":     fields,
	}
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case int32, int64, float64:
		return "number"
	case string:
		return "string"
	case bson.M, map[string]any:
		return "object"
	case bson.A, []any:
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Ensure MongoConnector implements connectors.Connector at compile time.
var _ connectors.Connector = (*MongoConnector)(nil)
