package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	JobRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_runs_total",
		Help: "Запуски заданий конвейера",
	}, []string{"job", "status"})

	JobDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "job_duration_seconds",
		Help:    "Длительность выполнения заданий",
		Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300, 600, 1200, 1800, 3600},
	}, []string{"job"})

	JobUnitErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_unit_errors_total",
		Help: "Ошибки отдельных единиц работы внутри заданий",
	}, []string{"job"})

	GeneratedItemsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "generated_items_total",
		Help: "Сгенерированные изображения и посты",
	}, []string{"kind"})

	ProviderRetriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "provider_retries_total",
		Help: "Повторы запросов к провайдерам из-за лимитов",
	}, []string{"provider"})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60, 90, 120, 180},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})

	LLMGenerationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "llm_generation_duration_seconds",
		Help:    "Длительность генерации ответа LLM",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})

	LLMTokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_tokens_total",
		Help: "Количество токенов, использованных LLM",
	}, []string{"model", "type"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		JobRunsTotal,
		JobDurationSeconds,
		JobUnitErrorsTotal,
		GeneratedItemsTotal,
		ProviderRetriesTotal,
		NetworkRequestDuration,
		NetworkRequestTotal,
		LLMGenerationDuration,
		LLMTokensTotal,
	)
}

// Handler возвращает обработчик /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObserveLLMGeneration записывает длительность и токены генерации LLM.
func ObserveLLMGeneration(model string, duration time.Duration, promptTokens, completionTokens, totalTokens int) {
	if model == "" {
		model = "unknown"
	}
	LLMGenerationDuration.WithLabelValues(model).Observe(duration.Seconds())
	if promptTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
	if totalTokens <= 0 {
		totalTokens = promptTokens + completionTokens
	}
	if totalTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "total").Add(float64(totalTokens))
	}
}

// ObserveJob фиксирует итог запуска задания.
func ObserveJob(job string, start time.Time, success, skipped bool, unitErrors int) {
	status := "success"
	switch {
	case skipped:
		status = "skipped"
	case !success:
		status = "failure"
	}
	JobRunsTotal.WithLabelValues(job, status).Inc()
	JobDurationSeconds.WithLabelValues(job).Observe(time.Since(start).Seconds())
	if unitErrors > 0 {
		JobUnitErrorsTotal.WithLabelValues(job).Add(float64(unitErrors))
	}
}

// IncGenerated увеличивает счётчик сгенерированных элементов.
func IncGenerated(kind string, n int) {
	if n <= 0 {
		return
	}
	GeneratedItemsTotal.WithLabelValues(kind).Add(float64(n))
}

// IncProviderRetry увеличивает счётчик повторов провайдера.
func IncProviderRetry(provider string) {
	ProviderRetriesTotal.WithLabelValues(provider).Inc()
}
