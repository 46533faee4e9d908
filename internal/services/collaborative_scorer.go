package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/temcen/wayfinder/internal/config"
	"github.com/temcen/wayfinder/pkg/models"
)

const (
	preferenceSimilarityWeight = 0.6
	behaviorSimilarityWeight   = 0.4
	peerProfileConcurrency     = 8
)

// highValueInteractions are the peer signals aggregated per item.
var highValueInteractions = []models.InteractionType{
	models.InteractionLike,
	models.InteractionSave,
	models.InteractionBook,
	models.InteractionShare,
}

// ProfileProvider builds profiles for the target user and candidate peers.
type ProfileProvider interface {
	BuildProfile(ctx context.Context, userID uuid.UUID) *models.UserProfile
}

// CollaborativeScorer ranks items by the high-value interactions of peers
// that share a cluster with the target user.
type CollaborativeScorer struct {
	peers    PeerDataReader
	profiles ProfileProvider
	config   config.CollaborativeConfig
	logger   *logrus.Logger
}

func NewCollaborativeScorer(
	peers PeerDataReader,
	profiles ProfileProvider,
	cfg config.CollaborativeConfig,
	logger *logrus.Logger,
) *CollaborativeScorer {
	if cfg.MaxPeers <= 0 {
		cfg.MaxPeers = 10
	}
	if cfg.PeerCandidateLimit <= 0 {
		cfg.PeerCandidateLimit = 200
	}
	return &CollaborativeScorer{
		peers:    peers,
		profiles: profiles,
		config:   cfg,
		logger:   logger,
	}
}

// PreferenceSimilarity sums min/max of the confidences for keys present in
// both maps and divides by the number of distinct keys across both.
func PreferenceSimilarity(a, b map[string]float64) float64 {
	keys := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		keys[k] = struct{}{}
	}
	for k := range b {
		keys[k] = struct{}{}
	}
	if len(keys) == 0 {
		return 0
	}

	sum := 0.0
	for k, va := range a {
		vb, ok := b[k]
		if !ok {
			continue
		}
		if hi := math.Max(va, vb); hi > 0 {
			sum += math.Min(va, vb) / hi
		}
	}
	return sum / float64(len(keys))
}

// UserSimilarity combines preference overlap and behavior cosine.
func UserSimilarity(target, peer *models.UserProfile) float64 {
	prefSim := PreferenceSimilarity(target.Preferences, peer.Preferences)
	behaviorSim := math.Max(0, CosineSimilarity(target.BehaviorVector, peer.BehaviorVector))
	return preferenceSimilarityWeight*prefSim + behaviorSimilarityWeight*behaviorSim
}

// FindSimilarUsers returns up to MaxPeers cluster-mates whose combined
// similarity exceeds the threshold, best first.
func (s *CollaborativeScorer) FindSimilarUsers(ctx context.Context, profile *models.UserProfile) ([]models.SimilarUser, error) {
	if profile == nil || len(profile.ClusterIDs) == 0 {
		return nil, nil
	}

	members, err := s.peers.GetClusterMembers(ctx, profile.ClusterIDs, s.config.PeerCandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load cluster members: %w", err)
	}

	targetClusters := make(map[string]struct{}, len(profile.ClusterIDs))
	for _, c := range profile.ClusterIDs {
		targetClusters[c] = struct{}{}
	}

	var (
		mu      sync.Mutex
		similar []models.SimilarUser
		seen    = make(map[uuid.UUID]struct{}, len(members))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(peerProfileConcurrency)

	for _, memberID := range members {
		if memberID == profile.UserID {
			continue
		}
		if _, dup := seen[memberID]; dup {
			continue
		}
		seen[memberID] = struct{}{}

		peerID := memberID
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			peer := s.profiles.BuildProfile(gctx, peerID)

			shared := 0
			for _, c := range peer.ClusterIDs {
				if _, ok := targetClusters[c]; ok {
					shared++
				}
			}
			if shared == 0 {
				return nil
			}

			score := UserSimilarity(profile, peer)
			if score <= s.config.SimilarityThreshold {
				return nil
			}

			mu.Lock()
			similar = append(similar, models.SimilarUser{
				UserID:          peerID,
				SimilarityScore: score,
				SharedClusters:  shared,
			})
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(similar, func(i, j int) bool {
		if similar[i].SimilarityScore != similar[j].SimilarityScore {
			return similar[i].SimilarityScore > similar[j].SimilarityScore
		}
		return similar[i].UserID.String() < similar[j].UserID.String()
	})
	if len(similar) > s.config.MaxPeers {
		similar = similar[:s.config.MaxPeers]
	}

	return similar, nil
}

// Recommend aggregates peers' weighted high-value interactions per candidate
// and min-max normalizes the totals across all candidates. No peers means no
// recommendations.
func (s *CollaborativeScorer) Recommend(
	ctx context.Context,
	candidates []models.CatalogItem,
	profile *models.UserProfile,
) ([]*models.ScoredRecommendation, error) {
	similarUsers, err := s.FindSimilarUsers(ctx, profile)
	if err != nil {
		return nil, err
	}
	if len(similarUsers) == 0 {
		s.logger.WithField("user_id", profile.UserID).Debug("No similar users found, skipping collaborative scoring")
		return nil, nil
	}

	peerIDs := make([]uuid.UUID, len(similarUsers))
	similarity := make(map[uuid.UUID]float64, len(similarUsers))
	for i, u := range similarUsers {
		peerIDs[i] = u.UserID
		similarity[u.UserID] = u.SimilarityScore
	}

	interactions, err := s.peers.GetInteractionsForUsers(ctx, peerIDs, highValueInteractions)
	if err != nil {
		return nil, fmt.Errorf("failed to load peer interactions: %w", err)
	}

	byID := make(map[string]*models.CatalogItem, len(candidates))
	for i := range candidates {
		byID[candidates[i].ID] = &candidates[i]
	}

	raw := make(map[string]float64)
	contributors := make(map[string]map[uuid.UUID]struct{})
	for _, in := range interactions {
		if _, ok := byID[in.TargetID]; !ok {
			continue
		}
		if _, ok := similarity[in.UserID]; !ok {
			continue
		}
		raw[in.TargetID] += InteractionWeight(in.InteractionType)
		if contributors[in.TargetID] == nil {
			contributors[in.TargetID] = make(map[uuid.UUID]struct{})
		}
		contributors[in.TargetID][in.UserID] = struct{}{}
	}

	normalized := NormalizeOverCandidates(raw, candidates)

	recs := make([]*models.ScoredRecommendation, 0, len(normalized))
	for itemID, score := range normalized {
		peerCount := len(contributors[itemID])
		simSum := 0.0
		for peerID := range contributors[itemID] {
			simSum += similarity[peerID]
		}

		recs = append(recs, &models.ScoredRecommendation{
			Item:       *byID[itemID],
			Score:      score,
			Confidence: collaborativeConfidence(peerCount, simSum),
			Reasoning: models.Reasoning{Factors: []models.ReasoningFactor{{
				Factor:       FactorPeerActivity,
				Weight:       1.0,
				Contribution: score,
			}}},
			Source: models.SourceCollaborative,
		})
	}
	sortByScore(recs)

	s.logger.WithFields(logrus.Fields{
		"user_id":       profile.UserID,
		"similar_users": len(similarUsers),
		"results":       len(recs),
	}).Debug("Collaborative scoring completed")

	return recs, nil
}

// collaborativeConfidence grows with the number of contributing peers and
// their mean similarity.
func collaborativeConfidence(peerCount int, similaritySum float64) float64 {
	if peerCount == 0 {
		return 0
	}
	contributorFactor := math.Min(float64(peerCount)/10.0, 1.0)
	similarityFactor := similaritySum / float64(peerCount)
	return clamp((contributorFactor+similarityFactor)/2.0, 0, 1)
}
