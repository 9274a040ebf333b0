package server

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

const runTestPrefix = "server:run_test"

// setRunEnv sets env for one test and clears every other setting run reads.
func setRunEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for _, key := range []string{
		"LOG_LEVEL", "LOG_FORMAT", "LOG_FILE", "LOG_MAX_SIZE_MB", "LOG_MAX_BACKUPS",
		"COMMS_URL", "SERVICE_NAME", "TAP_SUBJECT", "METRICS_FILE",
	} {
		t.Setenv(key, env[key])
	}
}

func TestRun_InvalidSettingsStillServe(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		wantWarning string
	}{
		{name: "unknown level", env: map[string]string{"LOG_LEVEL": "trace"}, wantWarning: "LOG_LEVEL"},
		{name: "long level name", env: map[string]string{"LOG_LEVEL": "WARNING"}, wantWarning: "LOG_LEVEL"},
		{name: "unknown format", env: map[string]string{"LOG_FORMAT": "xml"}, wantWarning: "LOG_FORMAT"},
		{name: "unparsable size", env: map[string]string{"LOG_MAX_SIZE_MB": "ten"}, wantWarning: "LOG_MAX_SIZE_MB"},
	}

	defaultLogger := slog.Default()
	t.Cleanup(func() { slog.SetDefault(defaultLogger) })

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRunEnv(t, tt.env)

			var out, stderr bytes.Buffer
			if err := run("dev", strings.NewReader(lines(initLine, echoLine)), &out, &stderr); err != nil {
				t.Fatalf("%s - run: %v", runTestPrefix, err)
			}

			if want := initOK + "\n" + echoOKTwo + "\n"; out.String() != want {
				t.Errorf("%s - output:\n got  %q\n want %q", runTestPrefix, out.String(), want)
			}
			if !strings.Contains(stderr.String(), tt.wantWarning) {
				t.Errorf("%s - stderr should mention %s:\n%s", runTestPrefix, tt.wantWarning, stderr.String())
			}
		})
	}
}

func TestRun_LogsStayOffStdout(t *testing.T) {
	setRunEnv(t, map[string]string{"LOG_LEVEL": "debug"})
	defaultLogger := slog.Default()
	t.Cleanup(func() { slog.SetDefault(defaultLogger) })

	var out, stderr bytes.Buffer
	if err := run("v1.0.0", strings.NewReader(lines(initLine, "not json", echoLine)), &out, &stderr); err != nil {
		t.Fatalf("%s - run: %v", runTestPrefix, err)
	}

	if want := initOK + "\n" + echoOKTwo + "\n"; out.String() != want {
		t.Errorf("%s - output:\n got  %q\n want %q", runTestPrefix, out.String(), want)
	}
	if !strings.Contains(stderr.String(), "Starting echo-node 1.0.0") {
		t.Errorf("%s - startup line missing from stderr:\n%s", runTestPrefix, stderr.String())
	}
}

func TestRun_WarnsWhenInputEndsBeforeHandshake(t *testing.T) {
	setRunEnv(t, nil)
	defaultLogger := slog.Default()
	t.Cleanup(func() { slog.SetDefault(defaultLogger) })

	var out, stderr bytes.Buffer
	if err := run("dev", strings.NewReader(lines(echoLine)), &out, &stderr); err != nil {
		t.Fatalf("%s - run: %v", runTestPrefix, err)
	}
	if !strings.Contains(stderr.String(), "input closed before the handshake") {
		t.Errorf("%s - missing handshake warning:\n%s", runTestPrefix, stderr.String())
	}

	stderr.Reset()
	if err := run("dev", strings.NewReader(lines(initLine)), &out, &stderr); err != nil {
		t.Fatalf("%s - run: %v", runTestPrefix, err)
	}
	if strings.Contains(stderr.String(), "before the handshake") {
		t.Errorf("%s - unexpected handshake warning after init:\n%s", runTestPrefix, stderr.String())
	}
}
