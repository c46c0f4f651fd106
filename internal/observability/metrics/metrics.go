package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

type requestLabel struct {
	method string
	path   string
	status string
}

// Recorder aggregates in-memory counters for HTTP traffic and the platform's
// engagement events. It is safe for concurrent use and renders Prometheus
// text exposition on demand.
type Recorder struct {
	mu              sync.RWMutex
	requestCount    map[requestLabel]uint64
	requestDuration map[requestLabel]time.Duration
	engagement      map[engagementLabel]uint64
	uploads         map[string]uint64
}

type engagementLabel struct {
	target string
	action string
}

var defaultRecorder = New()

// New constructs an empty Recorder with initialized backing maps so callers
// can record immediately without further setup.
func New() *Recorder {
	return &Recorder{
		requestCount:    make(map[requestLabel]uint64),
		requestDuration: make(map[requestLabel]time.Duration),
		engagement:      make(map[engagementLabel]uint64),
		uploads:         make(map[string]uint64),
	}
}

// Default returns the singleton Recorder shared by packages that do not carry
// their own instrumentation pipeline.
func Default() *Recorder {
	return defaultRecorder
}

// ObserveRequest accumulates request count and cumulative duration by HTTP
// method, normalized path, and status code.
func (r *Recorder) ObserveRequest(method, path string, status int, duration time.Duration) {
	label := requestLabel{
		method: strings.ToUpper(method),
		path:   normalizePath(path),
		status: fmt.Sprintf("%d", status),
	}
	r.mu.Lock()
	r.requestCount[label]++
	r.requestDuration[label] += duration
	r.mu.Unlock()
}

// ObserveToggle records a like or subscription toggle keyed by target kind
// and resulting state ("on" or "off").
func (r *Recorder) ObserveToggle(target string, engaged bool) {
	action := "off"
	if engaged {
		action = "on"
	}
	label := engagementLabel{target: normalizeName(target), action: action}
	r.mu.Lock()
	r.engagement[label]++
	r.mu.Unlock()
}

// ObserveUpload records a media upload keyed by kind ("video" or "image").
func (r *Recorder) ObserveUpload(kind string) {
	name := normalizeName(kind)
	r.mu.Lock()
	r.uploads[name]++
	r.mu.Unlock()
}

// Reset clears every counter. Intended for tests.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requestCount = make(map[requestLabel]uint64)
	r.requestDuration = make(map[requestLabel]time.Duration)
	r.engagement = make(map[engagementLabel]uint64)
	r.uploads = make(map[string]uint64)
}

// Handler exposes the Recorder as an http.Handler writing Prometheus text
// exposition data with the matching content type.
func (r *Recorder) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		r.Write(w)
	})
}

// Write renders the metrics in Prometheus text format with label sets sorted
// so scrapes and tests see stable output.
func (r *Recorder) Write(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	requestLabels := r.sortedRequestLabels()
	engagementLabels := r.sortedEngagementLabels()
	uploadKinds := r.sortedUploadKinds()

	fmt.Fprintln(w, "# HELP tubeflow_http_requests_total Total number of HTTP requests processed by the API")
	fmt.Fprintln(w, "# TYPE tubeflow_http_requests_total counter")
	for _, label := range requestLabels {
		fmt.Fprintf(w, "tubeflow_http_requests_total{method=%q,path=%q,status=%q} %d\n", label.method, label.path, label.status, r.requestCount[label])
	}

	fmt.Fprintln(w, "# HELP tubeflow_http_request_duration_seconds_sum Cumulative duration of HTTP requests in seconds")
	fmt.Fprintln(w, "# TYPE tubeflow_http_request_duration_seconds_sum counter")
	for _, label := range requestLabels {
		fmt.Fprintf(w, "tubeflow_http_request_duration_seconds_sum{method=%q,path=%q,status=%q} %f\n", label.method, label.path, label.status, r.requestDuration[label].Seconds())
	}

	fmt.Fprintln(w, "# HELP tubeflow_http_request_duration_seconds_count Total number of observations for request durations")
	fmt.Fprintln(w, "# TYPE tubeflow_http_request_duration_seconds_count counter")
	for _, label := range requestLabels {
		fmt.Fprintf(w, "tubeflow_http_request_duration_seconds_count{method=%q,path=%q,status=%q} %d\n", label.method, label.path, label.status, r.requestCount[label])
	}

	fmt.Fprintln(w, "# HELP tubeflow_engagement_toggles_total Like and subscription toggles by target and resulting state")
	fmt.Fprintln(w, "# TYPE tubeflow_engagement_toggles_total counter")
	for _, label := range engagementLabels {
		fmt.Fprintf(w, "tubeflow_engagement_toggles_total{target=%q,action=%q} %d\n", label.target, label.action, r.engagement[label])
	}

	fmt.Fprintln(w, "# HELP tubeflow_media_uploads_total Media uploads accepted by kind")
	fmt.Fprintln(w, "# TYPE tubeflow_media_uploads_total counter")
	for _, kind := range uploadKinds {
		fmt.Fprintf(w, "tubeflow_media_uploads_total{kind=%q} %d\n", kind, r.uploads[kind])
	}
}

func (r *Recorder) sortedRequestLabels() []requestLabel {
	labels := make([]requestLabel, 0, len(r.requestCount))
	for label := range r.requestCount {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].path != labels[j].path {
			return labels[i].path < labels[j].path
		}
		if labels[i].method != labels[j].method {
			return labels[i].method < labels[j].method
		}
		return labels[i].status < labels[j].status
	})
	return labels
}

func (r *Recorder) sortedEngagementLabels() []engagementLabel {
	labels := make([]engagementLabel, 0, len(r.engagement))
	for label := range r.engagement {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].target != labels[j].target {
			return labels[i].target < labels[j].target
		}
		return labels[i].action < labels[j].action
	})
	return labels
}

func (r *Recorder) sortedUploadKinds() []string {
	kinds := make([]string, 0, len(r.uploads))
	for kind := range r.uploads {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// normalizePath collapses identifier path segments so per-resource URLs share
// a label set instead of exploding cardinality.
func normalizePath(path string) string {
	if path == "" || path == "/" {
		return "/"
	}
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if part == "" {
			continue
		}
		if looksLikeIdentifier(part) {
			parts[i] = ":id"
		}
	}
	normalized := strings.Join(parts, "/")
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	if strings.HasSuffix(normalized, "/") && len(normalized) > 1 {
		normalized = strings.TrimSuffix(normalized, "/")
	}
	return normalized
}

func looksLikeIdentifier(segment string) bool {
	if len(segment) >= 16 {
		return true
	}
	digitCount := 0
	for _, r := range segment {
		if r >= '0' && r <= '9' {
			digitCount++
		}
	}
	return digitCount >= 3
}

func normalizeName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}

// ObserveRequest is a helper on the default recorder.
func ObserveRequest(method, path string, status int, duration time.Duration) {
	defaultRecorder.ObserveRequest(method, path, status, duration)
}

// ObserveToggle records an engagement toggle on the default recorder.
func ObserveToggle(target string, engaged bool) {
	defaultRecorder.ObserveToggle(target, engaged)
}

// ObserveUpload records a media upload on the default recorder.
func ObserveUpload(kind string) {
	defaultRecorder.ObserveUpload(kind)
}

// Handler exposes the default recorder as an HTTP handler.
func Handler() http.Handler {
	return defaultRecorder.Handler()
}
