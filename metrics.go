package saga

import "time"

// MetricsRecorder receives engine timings and outcome counts. A nil recorder
// disables recording.
type MetricsRecorder interface {
	RecordDuration(name string, duration time.Duration)
	RecordError(name string)
	RecordSuccess(name string)
}

const (
	metricTaskDuration = "task_duration"
	metricTaskError    = "task_error"
	metricTaskSuccess  = "task_success"
	metricRunFailed    = "run_failed"
	metricRunCompleted = "run_completed"
)

func recordDuration(mr MetricsRecorder, name string, start time.Time) {
	if mr != nil {
		mr.RecordDuration(name, time.Since(start))
	}
}

func recordError(mr MetricsRecorder, name string) {
	if mr != nil {
		mr.RecordError(name)
	}
}

func recordSuccess(mr MetricsRecorder, name string) {
	if mr != nil {
		mr.RecordSuccess(name)
	}
}
