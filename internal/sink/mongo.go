package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"tabular/internal/domain"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// mongoSink delivers tables as document collections. Each row becomes one
// document; "replace" drops the collection first.
type mongoSink struct {
	client *mongo.Client
	dbName string
}

func newMongoSink(conn *domain.DatabaseConnection, password string) (*mongoSink, error) {
	uri, dbName := buildMongoURI(conn, password)

	// Mask password in URI for logging
	logURI := uri
	if password != "" && strings.Contains(logURI, password) {
		logURI = strings.ReplaceAll(logURI, password, "***")
	}
	log.Printf("[MONGO] Connecting with URI: %s", logURI)
	log.Printf("[MONGO] Database: %s", dbName)

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	return &mongoSink{client: client, dbName: dbName}, nil
}

// buildMongoURI assembles the connection URI and resolves the database name.
// A Host that is already a full connection string (Atlas mongodb+srv:// or
// standard mongodb://) is used directly; otherwise the URI is built from
// host:port.
func buildMongoURI(conn *domain.DatabaseConnection, password string) (uri, dbName string) {
	if strings.HasPrefix(conn.Host, "mongodb+srv://") || strings.HasPrefix(conn.Host, "mongodb://") {
		uri = conn.Host
		// Replace <password> placeholder commonly found in Atlas connection strings
		if password != "" {
			uri = strings.ReplaceAll(uri, "<password>", password)
			uri = strings.ReplaceAll(uri, "<db_password>", password)
		}
		// Append database name to path if not already in URI
		if conn.Database != "" && !strings.Contains(uri, "/"+conn.Database) {
			if idx := strings.Index(uri, "?"); idx != -1 {
				uri = strings.TrimRight(uri[:idx], "/") + "/" + conn.Database + uri[idx:]
			} else {
				uri = strings.TrimRight(uri, "/") + "/" + conn.Database
			}
		}
	} else {
		port := conn.Port
		if port == 0 {
			port = 27017
		}
		if conn.Username != "" {
			uri = fmt.Sprintf("mongodb://%s:%s@%s:%d", conn.Username, password, conn.Host, port)
		} else {
			uri = fmt.Sprintf("mongodb://%s:%d", conn.Host, port)
		}

		// Parse extraJSON for authSource, replicaSet, etc.
		if conn.ExtraJSON != "" && conn.ExtraJSON != "{}" {
			var extras map[string]string
			if json.Unmarshal([]byte(conn.ExtraJSON), &extras) == nil {
				params := []string{}
				for k, v := range extras {
					params = append(params, k+"="+v)
				}
				if len(params) > 0 {
					uri += "?" + strings.Join(params, "&")
				}
			}
		}
	}

	dbName = conn.Database
	if dbName == "" {
		// Extract database name from the URI path (e.g. mongodb+srv://...@host/mydb?...)
		uriForParse := uri
		for _, prefix := range []string{"mongodb+srv://", "mongodb://"} {
			if strings.HasPrefix(uriForParse, prefix) {
				uriForParse = uriForParse[len(prefix):]
				break
			}
		}
		if atIdx := strings.Index(uriForParse, "@"); atIdx != -1 {
			uriForParse = uriForParse[atIdx+1:]
		}
		if slashIdx := strings.Index(uriForParse, "/"); slashIdx != -1 {
			pathPart := uriForParse[slashIdx+1:]
			if qIdx := strings.Index(pathPart, "?"); qIdx != -1 {
				pathPart = pathPart[:qIdx]
			}
			if pathPart != "" {
				dbName = pathPart
			}
		}
		if dbName == "" {
			dbName = "tabular"
		}
	}
	return uri, dbName
}

func (m *mongoSink) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return m.client.Ping(ctx, nil)
}

func (m *mongoSink) WriteTable(ctx context.Context, table string, t *domain.ParsedTable, mode domain.WriteMode) (int, error) {
	if t == nil || len(t.Columns) == 0 {
		return 0, fmt.Errorf("table has no columns to write")
	}

	coll := m.client.Database(m.dbName).Collection(table)

	if mode == domain.WriteReplace {
		if err := coll.Drop(ctx); err != nil {
			return 0, fmt.Errorf("drop collection: %w", err)
		}
	}

	if len(t.Rows) == 0 {
		return 0, nil
	}

	docs := make([]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		doc := make(bson.D, 0, len(t.Columns))
		for _, col := range t.Columns {
			doc = append(doc, bson.E{Key: col, Value: row[col]})
		}
		docs = append(docs, doc)
	}

	res, err := coll.InsertMany(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("insert documents: %w", err)
	}
	written := len(docs)
	if res != nil {
		written = len(res.InsertedIDs)
	}

	log.Printf("[SINK] wrote %d document(s) to %s.%s", written, m.dbName, table)
	return written, nil
}

func (m *mongoSink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
