package loadtest

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/groupify/groupify/pkg/logger"
)

// generateMembers creates config.Members members with random profiles.
// Energies are drawn uniformly from [0, 6] and rounded to two decimals.
func generateMembers(ctx context.Context, config *Config, stats *Stats) []Member {
	seed := config.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed)) //nolint:gosec // load data, not secrets

	// Unique per run so repeated runs against one service do not collide.
	run := uuid.New().String()[:8]

	members := make([]Member, config.Members)
	for i := range members {
		members[i].ID = fmt.Sprintf("load-%s-%05d", run, i)
		for d := range members[i].Energies {
			members[i].Energies[d] = math.Round(rng.Float64()*maxEnergy*100) / 100
		}
	}

	stats.MembersGenerated = len(members)
	logger.Get().Info(ctx, "generated roster",
		logger.Int("members", len(members)),
		logger.Any("seed", seed),
	)
	return members
}
