package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/morezero/echo-node/pkg/message"
)

const metricsTestPrefix = "telemetry:metrics_test"

func errorReply(code int) *message.Envelope {
	return &message.Envelope{Src: "n1", Dest: "c1", Body: message.Body{
		Type: message.TypeError, Payload: message.NewRPCError(code, "refused").Payload(),
	}}
}

func TestMetrics_Observe(t *testing.T) {
	m := New()
	echo := &message.Envelope{Src: "c1", Dest: "n1", Body: message.Body{Type: "echo"}}
	ok := &message.Envelope{Src: "n1", Dest: "c1", Body: message.Body{Type: "echo_ok"}}

	m.ObserveRequest(echo)
	m.ObserveReply(echo, ok, time.Millisecond)
	m.ObserveRequest(echo)
	m.ObserveReply(echo, errorReply(message.CodeNotInitialized), time.Millisecond)
	m.ObserveMalformed()
	m.ObserveMalformed()

	if got := testutil.ToFloat64(m.requests.WithLabelValues("echo")); got != 2 {
		t.Errorf("%s - requests{echo} = %v, want 2", metricsTestPrefix, got)
	}
	if got := testutil.ToFloat64(m.replies.WithLabelValues("echo", outcomeOK)); got != 1 {
		t.Errorf("%s - replies{echo,ok} = %v, want 1", metricsTestPrefix, got)
	}
	if got := testutil.ToFloat64(m.replies.WithLabelValues("echo", outcomeError)); got != 1 {
		t.Errorf("%s - replies{echo,error} = %v, want 1", metricsTestPrefix, got)
	}
	if got := testutil.ToFloat64(m.errors.WithLabelValues("11")); got != 1 {
		t.Errorf("%s - error_replies{11} = %v, want 1", metricsTestPrefix, got)
	}
	if got := testutil.ToFloat64(m.malformed); got != 2 {
		t.Errorf("%s - malformed = %v, want 2", metricsTestPrefix, got)
	}
	if got := testutil.CollectAndCount(m.duration); got != 1 {
		t.Errorf("%s - duration series = %d, want 1", metricsTestPrefix, got)
	}
}

func TestNormalizeVersion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "1.2.3", want: "1.2.3"},
		{in: "v1.2.3", want: "1.2.3"},
		{in: "1.2", want: "1.2.0"},
		{in: "2.0.0-rc.1+build.5", want: "2.0.0-rc.1+build.5"},
		{in: "dev", want: devVersion},
		{in: "", want: devVersion},
	}
	for _, tt := range tests {
		if got := NormalizeVersion(tt.in); got != tt.want {
			t.Errorf("%s - NormalizeVersion(%q) = %q, want %q", metricsTestPrefix, tt.in, got, tt.want)
		}
	}
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := New()
	m.SetBuildInfo("v0.3.1")
	m.ObserveMalformed()

	path := filepath.Join(t.TempDir(), "echo-node.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("%s - WriteTextfile: %v", metricsTestPrefix, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("%s - read textfile: %v", metricsTestPrefix, err)
	}
	text := string(data)
	for _, want := range []string{
		`echo_node_build_info{version="0.3.1"} 1`,
		`echo_node_malformed_total 1`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("%s - textfile missing %q:\n%s", metricsTestPrefix, want, text)
		}
	}
}

func TestMetrics_WriteTextfileBadPath(t *testing.T) {
	m := New()
	path := filepath.Join(t.TempDir(), "missing-dir", "echo-node.prom")
	if err := m.WriteTextfile(path); err == nil {
		t.Errorf("%s - expected error for missing directory", metricsTestPrefix)
	}
}
