package couchbase

import (
	"fmt"
	"strings"
	"time"

	"github.com/couchbase/gocb/v2"
	"github.com/rs/zerolog/log"
)

// Config holds what is needed to reach the catalog bucket
type Config struct {
	URL      string
	Username string
	Password string
	Bucket   string
	Scope    string
}

// ConnectionManager handles Couchbase cluster and bucket connections
type ConnectionManager struct {
	cluster *gocb.Cluster
	bucket  *gocb.Bucket
	scope   string
}

// connectionString adds a scheme when the URL has none
func connectionString(url string) string {
	switch {
	case strings.HasPrefix(url, "couchbase://"), strings.HasPrefix(url, "couchbases://"):
		return url
	case strings.HasPrefix(url, "http://"):
		return "couchbase://" + strings.TrimPrefix(url, "http://")
	default:
		return "couchbase://" + url
	}
}

// NewConnectionManager connects to the cluster and waits for the bucket
func NewConnectionManager(cfg Config) (*ConnectionManager, error) {
	log.Info().
		Str("url", cfg.URL).
		Str("bucket", cfg.Bucket).
		Str("scope", cfg.Scope).
		Msg("Creating Couchbase connection")

	cluster, err := gocb.Connect(connectionString(cfg.URL), gocb.ClusterOptions{
		Authenticator: gocb.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to cluster: %w", err)
	}

	bucket := cluster.Bucket(cfg.Bucket)
	err = bucket.WaitUntilReady(30*time.Second, &gocb.WaitUntilReadyOptions{
		ServiceTypes: []gocb.ServiceType{gocb.ServiceTypeKeyValue, gocb.ServiceTypeQuery},
	})
	if err != nil {
		cluster.Close(nil)
		return nil, fmt.Errorf("bucket '%s' is not accessible: %w", cfg.Bucket, err)
	}

	scope := cfg.Scope
	if scope == "" {
		scope = "_default"
	}

	log.Info().Msg("Couchbase connection created successfully")
	return &ConnectionManager{
		cluster: cluster,
		bucket:  bucket,
		scope:   scope,
	}, nil
}

// Close closes the Couchbase connection
func (cm *ConnectionManager) Close() error {
	return cm.cluster.Close(nil)
}

// Collection returns a collection in the configured scope
func (cm *ConnectionManager) Collection(name string) *gocb.Collection {
	return cm.bucket.Scope(cm.scope).Collection(name)
}

// Keyspace returns the fully qualified N1QL keyspace for a collection
func (cm *ConnectionManager) Keyspace(collection string) string {
	return fmt.Sprintf("`%s`.`%s`.`%s`", cm.bucket.Name(), cm.scope, collection)
}

// GetCluster returns the cluster instance
func (cm *ConnectionManager) GetCluster() *gocb.Cluster {
	return cm.cluster
}
