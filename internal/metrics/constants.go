package metrics

// 指标名称
const (
	MetricNameHTTPRequestsTotal    = "http_requests_total"
	MetricNameHTTPRequestDuration  = "http_request_duration_seconds"
	MetricNameHTTPRequestsInFlight = "http_requests_in_flight"

	MetricNameStrategySelected = "reel_strategy_selected_total"
	MetricNameSpinsCompleted   = "reel_spins_completed_total"
	MetricNameSpinDuration     = "reel_spin_duration_seconds"
	MetricNameSFXCues          = "reel_sfx_cues_total"
	MetricNameSessionsActive   = "slot_sessions_active"
	MetricNameSettlementErrors = "slot_settlement_errors_total"
)

// 指标说明
const (
	HelpTextHTTPRequestsTotal    = "Total number of HTTP requests"
	HelpTextHTTPRequestDuration  = "HTTP request latency in seconds"
	HelpTextHTTPRequestsInFlight = "Current number of HTTP requests being served"

	HelpTextStrategySelected = "Number of spins per selected animation strategy"
	HelpTextSpinsCompleted   = "Number of completed reel spins by completion mode"
	HelpTextSpinDuration     = "Time from spin start until every reel stopped"
	HelpTextSFXCues          = "Sound cues emitted after cooldown filtering"
	HelpTextSessionsActive   = "Slot sessions currently held in memory"
	HelpTextSettlementErrors = "Failed settlement calls by error code"
)

// 标签
const (
	LabelMethod   = "method"
	LabelPath     = "path"
	LabelStatus   = "status"
	LabelStrategy = "strategy"
	LabelMode     = "mode"
	LabelTier     = "tier"
	LabelCode     = "code"
)

// 完成方式
const (
	ModeNatural = "natural"
	ModeForced  = "forced"
)

// HTTPLatencyBuckets HTTP延时分桶
var HTTPLatencyBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}

// SpinDurationBuckets 转动时长分桶，覆盖从跳过到大奖动画
var SpinDurationBuckets = []float64{.1, .25, .5, 1, 2, 3, 4, 6, 8, 12}
