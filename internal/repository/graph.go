package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"
)

// ErrGraphUnavailable is returned when no Neo4j driver is configured.
var ErrGraphUnavailable = errors.New("graph database not configured")

// GraphQuerier runs a read-only Cypher query and returns all records.
type GraphQuerier interface {
	ReadRecords(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error)
}

type driverQuerier struct {
	driver neo4j.DriverWithContext
}

func (q driverQuerier) ReadRecords(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	result, err := neo4j.ExecuteQuery(ctx, q.driver, query, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithReadersRouting())
	if err != nil {
		return nil, err
	}
	return result.Records, nil
}

// ClusterStore reads peer-group memberships from the user graph, modelled as
// (:User {user_id})-[:MEMBER_OF]->(:Cluster {cluster_id}).
type ClusterStore struct {
	graph  GraphQuerier
	logger *logrus.Logger
}

func NewClusterStore(driver neo4j.DriverWithContext, logger *logrus.Logger) *ClusterStore {
	if driver == nil {
		return NewClusterStoreWithQuerier(nil, logger)
	}
	return NewClusterStoreWithQuerier(driverQuerier{driver: driver}, logger)
}

func NewClusterStoreWithQuerier(graph GraphQuerier, logger *logrus.Logger) *ClusterStore {
	return &ClusterStore{
		graph:  graph,
		logger: logger,
	}
}

const userClustersQuery = `
		MATCH (:User {user_id: $userId})-[:MEMBER_OF]->(c:Cluster)
		RETURN c.cluster_id AS cluster_id
		ORDER BY cluster_id`

// clusterMembersQuery ranks members by how many of the requested clusters
// they share before applying the limit, so truncation keeps the closest peers.
// Ties break on user id.
func clusterMembersQuery(clusterIDs []string, limit int) (string, map[string]any) {
	query := `
		MATCH (u:User)-[:MEMBER_OF]->(c:Cluster)
		WHERE c.cluster_id IN $clusterIds
		WITH u.user_id AS user_id, count(DISTINCT c) AS shared
		RETURN user_id, shared
		ORDER BY shared DESC, user_id
		LIMIT $limit`

	return query, map[string]any{
		"clusterIds": clusterIDs,
		"limit":      limit,
	}
}

// GetUserClusters returns the cluster ids the user belongs to.
func (s *ClusterStore) GetUserClusters(ctx context.Context, userID uuid.UUID) ([]string, error) {
	if s.graph == nil {
		return nil, ErrGraphUnavailable
	}

	records, err := s.graph.ReadRecords(ctx, userClustersQuery, map[string]any{
		"userId": userID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("cluster query failed: %w", err)
	}

	var clusters []string
	for _, record := range records {
		if len(record.Values) == 0 {
			continue
		}
		if clusterID, ok := record.Values[0].(string); ok {
			clusters = append(clusters, clusterID)
		}
	}

	return clusters, nil
}

// GetClusterMembers returns distinct users belonging to any of the clusters,
// those sharing the most clusters first.
func (s *ClusterStore) GetClusterMembers(ctx context.Context, clusterIDs []string, limit int) ([]uuid.UUID, error) {
	if len(clusterIDs) == 0 {
		return nil, nil
	}
	if s.graph == nil {
		return nil, ErrGraphUnavailable
	}

	query, params := clusterMembersQuery(clusterIDs, limit)
	records, err := s.graph.ReadRecords(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("cluster members query failed: %w", err)
	}

	members := make([]uuid.UUID, 0, len(records))
	for _, record := range records {
		if len(record.Values) == 0 {
			continue
		}
		userIDStr, ok := record.Values[0].(string)
		if !ok {
			continue
		}
		memberID, err := uuid.Parse(userIDStr)
		if err != nil {
			s.logger.WithField("user_id", userIDStr).Warn("Failed to parse user ID from cluster membership")
			continue
		}
		members = append(members, memberID)
	}

	return members, nil
}
