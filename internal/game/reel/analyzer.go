package reel

import (
	"slices"
)

// DefaultSymbols 默认符号集，下标即符号档位，最后一个为头奖符号
var DefaultSymbols = []string{"🍒", "🍋", "🍊", "🍇", "7️⃣", "⭐", "💎"}

const (
	minWinRun      = 3 // 最少连续个数
	nearMissLength = 5 // 近失判定的线长
	visibleRows    = 3 // 可见窗口行数
)

// PayTable 赔率表 [档位][连续个数-3]
type PayTable [][]float64

// DefaultPayTable 基础赔率表
var DefaultPayTable = PayTable{
	{0.5, 0.75, 1},
	{1, 1.5, 2},
	{1.5, 2.5, 4},
	{2, 4, 8},
	{3, 8, 15},
	{5, 15, 40},
	{10, 30, 100},
}

// Lookup 查赔率，档位与连续个数都会被夹到表范围内
func (t PayTable) Lookup(symbolIndex, runLength int) float64 {
	if len(t) == 0 || runLength < minWinRun {
		return 0
	}
	if symbolIndex < 0 {
		symbolIndex = 0
	}
	if symbolIndex >= len(t) {
		symbolIndex = len(t) - 1
	}
	row := t[symbolIndex]
	if len(row) == 0 {
		return 0
	}
	col := runLength - minWinRun
	if col >= len(row) {
		col = len(row) - 1
	}
	return row[col]
}

// Payline 支付线，Rows为每个卷轴相对中心行的偏移
type Payline struct {
	Number int
	Rows   []int // nil表示任意卷轴数的中心线
}

// CenterLine 中心线
var CenterLine = Payline{Number: 1}

// rowFor 取该线在第reel个卷轴上的行偏移，超出定义的卷轴返回false
func (p Payline) rowFor(reel int) (int, bool) {
	if p.Rows == nil {
		return 0, true
	}
	if reel >= len(p.Rows) {
		return 0, false
	}
	return p.Rows[reel], true
}

// Analyzer 结果分析器
type Analyzer struct {
	symbols     []string
	stripRepeat int
	payTable    PayTable
	paylines    []Payline
}

// AnalyzerOption 分析器选项
type AnalyzerOption func(*Analyzer)

// WithStripRepeat 卷轴条上符号集重复次数
func WithStripRepeat(n int) AnalyzerOption {
	return func(a *Analyzer) {
		if n > 0 {
			a.stripRepeat = n
		}
	}
}

// WithPayTable 自定义赔率表
func WithPayTable(t PayTable) AnalyzerOption {
	return func(a *Analyzer) {
		if len(t) > 0 {
			a.payTable = t
		}
	}
}

// WithPaylines 自定义支付线
func WithPaylines(lines ...Payline) AnalyzerOption {
	return func(a *Analyzer) {
		if len(lines) > 0 {
			a.paylines = lines
		}
	}
}

// NewAnalyzer 创建结果分析器
func NewAnalyzer(symbols []string, opts ...AnalyzerOption) (*Analyzer, error) {
	if len(symbols) == 0 {
		return nil, ErrEmptySymbols
	}
	a := &Analyzer{
		symbols:     append([]string(nil), symbols...),
		stripRepeat: 1,
		payTable:    DefaultPayTable,
		paylines:    []Payline{CenterLine},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Analyze 使用默认赔率表分析停止位置
func Analyze(positions []int, symbols []string) *Analysis {
	a, err := NewAnalyzer(symbols)
	if err != nil {
		return &Analysis{}
	}
	return a.Analyze(positions)
}

// Symbols 符号集
func (a *Analyzer) Symbols() []string {
	return a.symbols
}

// StripLength 卷轴条长度
func (a *Analyzer) StripLength() int {
	return len(a.symbols) * a.stripRepeat
}

// PayTable 赔率表
func (a *Analyzer) PayTable() PayTable {
	return a.payTable
}

// TopTier 头奖符号档位
func (a *Analyzer) TopTier() int {
	return len(a.symbols) - 1
}

// SymbolIndexAt 卷轴停在position时，相对中心行偏移row处的符号档位
func (a *Analyzer) SymbolIndexAt(position, row int) int {
	n := a.StripLength()
	idx := ((position+row)%n + n) % n
	return idx % len(a.symbols)
}

// VisibleWindow 卷轴停在position时可见的三行符号档位（上、中、下）
func (a *Analyzer) VisibleWindow(position int) []int {
	window := make([]int, visibleRows)
	for i := range window {
		window[i] = a.SymbolIndexAt(position, i-visibleRows/2)
	}
	return window
}

// readLine 读取一条支付线上的符号档位，未覆盖的卷轴跳过
func (a *Analyzer) readLine(line Payline, positions []int) (indices []int, rows []int) {
	for reel, pos := range positions {
		row, ok := line.rowFor(reel)
		if !ok {
			continue
		}
		indices = append(indices, a.SymbolIndexAt(pos, row))
		rows = append(rows, row)
	}
	return indices, rows
}

// CheckWinLines 检查所有支付线，从第0个卷轴起连续相同>=3即中奖
func (a *Analyzer) CheckWinLines(positions []int) []WinLineResult {
	var results []WinLineResult
	for _, line := range a.paylines {
		indices, rows := a.readLine(line, positions)
		if len(indices) < minWinRun {
			continue
		}
		run := 1
		for run < len(indices) && indices[run] == indices[0] {
			run++
		}
		if run < minWinRun {
			continue
		}
		symbols := make([]string, len(indices))
		for i, idx := range indices {
			symbols[i] = a.symbols[idx]
		}
		results = append(results, WinLineResult{
			LineNumber: line.Number,
			Pattern:    rows,
			Symbols:    symbols,
			MatchCount: run,
			Payout:     a.payTable.Lookup(indices[0], run),
		})
	}
	return results
}

// DetectNearMiss 5卷轴支付线上恰好4个相同（包括4个头奖符号）即为近失，返回不同的那个卷轴
func (a *Analyzer) DetectNearMiss(positions []int) (isNearMiss bool, oddReels []int, matching int) {
	for _, line := range a.paylines {
		indices, _ := a.readLine(line, positions)
		if len(indices) != nearMissLength {
			continue
		}
		counts := make(map[int]int, nearMissLength)
		for _, idx := range indices {
			counts[idx]++
		}
		for symbol, c := range counts {
			if c != nearMissLength-1 {
				continue
			}
			isNearMiss = true
			matching = c
			for reel, idx := range indices {
				if idx != symbol && !slices.Contains(oddReels, reel) {
					oddReels = append(oddReels, reel)
				}
			}
		}
	}
	slices.Sort(oddReels)
	return isNearMiss, oddReels, matching
}

// Analyze 分析停止位置
func (a *Analyzer) Analyze(positions []int) *Analysis {
	lines := a.CheckWinLines(positions)
	analysis := &Analysis{
		WinLines:      lines,
		NearMissReels: []int{},
	}
	for _, line := range lines {
		analysis.WinMultiplier += line.Payout
		if line.MatchCount > analysis.MatchingSymbols {
			analysis.MatchingSymbols = line.MatchCount
		}
		if line.MatchCount == len(positions) && line.Symbols[0] == a.symbols[a.TopTier()] {
			analysis.IsJackpot = true
		}
	}
	analysis.IsWin = analysis.WinMultiplier > 0

	nearMiss, oddReels, matching := a.DetectNearMiss(positions)
	if nearMiss {
		analysis.IsNearMiss = true
		analysis.NearMissReels = oddReels
		if !analysis.IsWin || matching > analysis.MatchingSymbols {
			analysis.MatchingSymbols = matching
		}
	}
	return analysis
}

// ValidPayouts reelCount个卷轴下能表示的全部倍率（升序、去重，含0）
func (a *Analyzer) ValidPayouts(reelCount int) []float64 {
	values := []float64{0}
	for tier := range a.symbols {
		for run := minWinRun; run <= reelCount; run++ {
			values = append(values, a.payTable.Lookup(tier, run))
		}
	}
	slices.Sort(values)
	return slices.Compact(values)
}
