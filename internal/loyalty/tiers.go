package loyalty

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/dealerworks/dms-backend/pkg/db/models"
	"github.com/dealerworks/dms-backend/pkg/enums"
)

// tierTable answers threshold and multiplier questions over active tier rows.
type tierTable []models.LoyaltyTierConfig

func newTierTable(rows []models.LoyaltyTierConfig) tierTable {
	out := make(tierTable, 0, len(rows))
	for _, row := range rows {
		if row.IsActive {
			out = append(out, row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MinimumPoints < out[j].MinimumPoints })
	return out
}

func (t tierTable) find(tier enums.LoyaltyTier) *models.LoyaltyTierConfig {
	for i := range t {
		if t[i].Tier == tier {
			return &t[i]
		}
	}
	return nil
}

// multiplier falls back to 1 for tiers without an active row.
func (t tierTable) multiplier(tier enums.LoyaltyTier) decimal.Decimal {
	if cfg := t.find(tier); cfg != nil && cfg.PointsMultiplier.IsPositive() {
		return cfg.PointsMultiplier
	}
	return decimal.NewFromInt(1)
}

// forPoints returns the highest tier whose threshold points reaches.
func (t tierTable) forPoints(points int) (enums.LoyaltyTier, bool) {
	var best *models.LoyaltyTierConfig
	for i := range t {
		if t[i].MinimumPoints <= points {
			best = &t[i]
		}
	}
	if best == nil {
		return "", false
	}
	return best.Tier, true
}

// next returns the first tier above tier, or nil at the top.
func (t tierTable) next(tier enums.LoyaltyTier) *models.LoyaltyTierConfig {
	floor := -1
	if cfg := t.find(tier); cfg != nil {
		floor = cfg.MinimumPoints
	}
	for i := range t {
		if t[i].MinimumPoints > floor && t[i].Tier.Rank() > tier.Rank() {
			return &t[i]
		}
	}
	return nil
}

// TierDefinition is one entry of the tier file.
type TierDefinition struct {
	Tier          string   `yaml:"tier"`
	Name          string   `yaml:"name"`
	MinimumPoints int      `yaml:"minimum_points"`
	Multiplier    string   `yaml:"multiplier"`
	Benefits      []string `yaml:"benefits"`
	Active        *bool    `yaml:"active"`
	DisplayOrder  int      `yaml:"display_order"`
}

type tierFile struct {
	Tiers []TierDefinition `yaml:"tiers"`
}

// LoadTierFile reads and validates a YAML tier file.
func LoadTierFile(path string) ([]TierDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tier file: %w", err)
	}
	return ParseTierFile(data)
}

// ParseTierFile decodes a tier document. Thresholds must rise with tier rank
// and the lowest tier must start at zero.
func ParseTierFile(data []byte) ([]TierDefinition, error) {
	var doc tierFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode tier file: %w", err)
	}
	if len(doc.Tiers) == 0 {
		return nil, fmt.Errorf("tier file defines no tiers")
	}
	if _, err := toTierConfigs(doc.Tiers); err != nil {
		return nil, err
	}
	return doc.Tiers, nil
}

func toTierConfigs(defs []TierDefinition) ([]models.LoyaltyTierConfig, error) {
	seen := map[enums.LoyaltyTier]bool{}
	out := make([]models.LoyaltyTierConfig, 0, len(defs))
	for _, def := range defs {
		tier, err := enums.ParseLoyaltyTier(def.Tier)
		if err != nil {
			return nil, err
		}
		if seen[tier] {
			return nil, fmt.Errorf("tier %s defined twice", tier)
		}
		seen[tier] = true

		if def.MinimumPoints < 0 {
			return nil, fmt.Errorf("tier %s: minimum points cannot be negative", tier)
		}
		multiplier := decimal.NewFromInt(1)
		if strings.TrimSpace(def.Multiplier) != "" {
			multiplier, err = decimal.NewFromString(strings.TrimSpace(def.Multiplier))
			if err != nil {
				return nil, fmt.Errorf("tier %s: invalid multiplier %q", tier, def.Multiplier)
			}
		}
		if !multiplier.IsPositive() {
			return nil, fmt.Errorf("tier %s: multiplier must be positive", tier)
		}
		name := strings.TrimSpace(def.Name)
		if name == "" {
			name = strings.ToUpper(string(tier[:1])) + string(tier[1:])
		}
		active := true
		if def.Active != nil {
			active = *def.Active
		}
		out = append(out, models.LoyaltyTierConfig{
			Tier:             tier,
			Name:             name,
			MinimumPoints:    def.MinimumPoints,
			PointsMultiplier: multiplier,
			Benefits:         pq.StringArray(def.Benefits),
			IsActive:         active,
			DisplayOrder:     def.DisplayOrder,
		})
	}

	sorted := make([]models.LoyaltyTierConfig, len(out))
	copy(sorted, out)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Tier.Rank() < sorted[j].Tier.Rank() })
	for i := range sorted {
		if i == 0 {
			if sorted[i].MinimumPoints != 0 {
				return nil, fmt.Errorf("tier %s: lowest tier must start at 0 points", sorted[i].Tier)
			}
			continue
		}
		if sorted[i].MinimumPoints <= sorted[i-1].MinimumPoints {
			return nil, fmt.Errorf("tier %s: minimum points must exceed tier %s", sorted[i].Tier, sorted[i-1].Tier)
		}
	}
	return out, nil
}

// eligible reports whether a reward's tier list admits tier.
func eligible(tiers pq.StringArray, tier enums.LoyaltyTier) bool {
	for _, candidate := range tiers {
		c := strings.ToLower(strings.TrimSpace(candidate))
		if c == enums.RewardEligibilityAll || c == string(tier) {
			return true
		}
	}
	return false
}

func inStock(reward *models.LoyaltyReward) bool {
	return reward.QuantityAvailable == nil || reward.QuantityRedeemed < *reward.QuantityAvailable
}
