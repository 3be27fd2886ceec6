package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	apperrors "github.com/wfunc/casino-builder/internal/errors"
)

// HTTP指标
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameHTTPRequestsTotal,
			Help: HelpTextHTTPRequestsTotal,
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameHTTPRequestDuration,
			Help:    HelpTextHTTPRequestDuration,
			Buckets: HTTPLatencyBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameHTTPRequestsInFlight,
			Help: HelpTextHTTPRequestsInFlight,
		},
	)
)

// 卷轴指标
var (
	StrategySelected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameStrategySelected,
			Help: HelpTextStrategySelected,
		},
		[]string{LabelStrategy},
	)

	SpinsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameSpinsCompleted,
			Help: HelpTextSpinsCompleted,
		},
		[]string{LabelMode},
	)

	SpinDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    MetricNameSpinDuration,
			Help:    HelpTextSpinDuration,
			Buckets: SpinDurationBuckets,
		},
	)

	SFXCues = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameSFXCues,
			Help: HelpTextSFXCues,
		},
		[]string{LabelTier},
	)
)

// 会话指标
var (
	SettlementErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameSettlementErrors,
			Help: HelpTextSettlementErrors,
		},
		[]string{LabelCode},
	)
)

var sessionsOnce sync.Once

// RegisterSessionsGauge 注册活跃会话数，只有第一次调用生效
func RegisterSessionsGauge(fn func() float64) {
	sessionsOnce.Do(func() {
		promauto.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: MetricNameSessionsActive,
				Help: HelpTextSessionsActive,
			},
			fn,
		)
	})
}

// ObserveSettlementError 按错误码记录结算失败
func ObserveSettlementError(err error) {
	if err == nil {
		return
	}
	SettlementErrors.WithLabelValues(strconv.Itoa(int(apperrors.GetCode(err)))).Inc()
}
