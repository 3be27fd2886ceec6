package reel

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
)

// Mapper 倍率到停止位置的映射器
//
// 权威倍率来自外部结算，映射器只负责挑选一组停止位置，使中心线的分析结果与该倍率一致。
// 相同的(倍率, 种子, 卷轴数)总是得到相同的位置，重放或重绘不会改变画面。
type Mapper struct {
	analyzer *Analyzer
}

// payoutCombo 能产生某个倍率的(档位, 连续个数)组合
type payoutCombo struct {
	tier int
	run  int
}

// NewMapper 创建映射器
func NewMapper(analyzer *Analyzer) *Mapper {
	return &Mapper{analyzer: analyzer}
}

// GetClosestValidPayout 把任意倍率吸附到赔率表能表示的最近值，距离相同时取较小值
func (m *Mapper) GetClosestValidPayout(raw float64, reelCount int) float64 {
	valid := m.validPayouts(reelCount)
	if math.IsNaN(raw) || raw <= valid[0] {
		return valid[0]
	}
	if math.IsInf(raw, 1) {
		return valid[len(valid)-1]
	}
	best := valid[0]
	bestDist := math.Abs(raw - best)
	for _, v := range valid[1:] {
		if d := math.Abs(raw - v); d < bestDist {
			best, bestDist = v, d
		}
	}
	return best
}

// validPayouts 单符号集时只能出现满线
func (m *Mapper) validPayouts(reelCount int) []float64 {
	if len(m.analyzer.symbols) == 1 && reelCount >= minWinRun {
		return []float64{m.analyzer.payTable.Lookup(0, reelCount)}
	}
	return m.analyzer.ValidPayouts(reelCount)
}

// Map 根据目标倍率和种子生成停止位置
func (m *Mapper) Map(targetMultiplier float64, seed string, reelCount int) []int {
	if reelCount <= 0 {
		return []int{}
	}
	rng := seededRand(targetMultiplier, seed, reelCount)
	payout := m.GetClosestValidPayout(targetMultiplier, reelCount)

	var tiers []int
	if payout == 0 {
		tiers = m.losingTiers(rng, reelCount)
	} else {
		combos := m.combosFor(payout, reelCount)
		combo := combos[rng.IntN(len(combos))]
		tiers = m.winningTiers(rng, combo, reelCount)
	}
	return m.toPositions(rng, tiers)
}

// combosFor 列出所有能产生payout的组合
func (m *Mapper) combosFor(payout float64, reelCount int) []payoutCombo {
	var combos []payoutCombo
	single := len(m.analyzer.symbols) == 1
	for tier := range m.analyzer.symbols {
		for run := minWinRun; run <= reelCount; run++ {
			if single && run != reelCount {
				continue
			}
			if m.analyzer.payTable.Lookup(tier, run) == payout {
				combos = append(combos, payoutCombo{tier: tier, run: run})
			}
		}
	}
	return combos
}

// winningTiers 前run个卷轴为同一档位，第run个卷轴打断连线，其余随机
func (m *Mapper) winningTiers(rng *rand.Rand, combo payoutCombo, reelCount int) []int {
	n := len(m.analyzer.symbols)
	tiers := make([]int, reelCount)
	for i := range tiers {
		switch {
		case i < combo.run:
			tiers[i] = combo.tier
		case i == combo.run:
			tiers[i] = otherTier(rng, n, combo.tier)
		default:
			tiers[i] = rng.IntN(n)
		}
	}
	return tiers
}

// losingTiers 保证从第0个卷轴起连续不超过2个
func (m *Mapper) losingTiers(rng *rand.Rand, reelCount int) []int {
	n := len(m.analyzer.symbols)
	tiers := make([]int, reelCount)
	for i := range tiers {
		tiers[i] = rng.IntN(n)
	}
	if reelCount >= minWinRun && n > 1 && tiers[1] == tiers[0] {
		tiers[2] = otherTier(rng, n, tiers[0])
	}
	return tiers
}

// toPositions 档位换算为卷轴条位置，随机选择重复段
func (m *Mapper) toPositions(rng *rand.Rand, tiers []int) []int {
	n := len(m.analyzer.symbols)
	positions := make([]int, len(tiers))
	for i, tier := range tiers {
		positions[i] = tier + n*rng.IntN(m.analyzer.stripRepeat)
	}
	return positions
}

func otherTier(rng *rand.Rand, n, exclude int) int {
	if n <= 1 {
		return exclude
	}
	t := rng.IntN(n - 1)
	if t >= exclude {
		t++
	}
	return t
}

// seededRand 由(种子, 倍率, 卷轴数)派生确定性随机源
func seededRand(target float64, seed string, reelCount int) *rand.Rand {
	key := fmt.Sprintf("%s|%s|%d", seed, strconv.FormatFloat(target, 'f', -1, 64), reelCount)
	sum := sha256.Sum256([]byte(key))
	return rand.New(rand.NewPCG(binary.BigEndian.Uint64(sum[:8]), binary.BigEndian.Uint64(sum[8:16])))
}
