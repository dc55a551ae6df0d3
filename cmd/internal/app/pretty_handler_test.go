package app

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestStripANSI(t *testing.T) {
	t.Parallel()

	in := ansiBlue + "INFO" + ansiReset + " plain " + ansiRed + "ERR" + ansiReset
	got := stripANSI(in)
	want := "INFO plain ERR"
	if got != want {
		t.Fatalf("stripANSI()=%q want=%q", got, want)
	}
}

func TestPrettyHandler_PlainLine(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}, false))

	log.Info("http.request",
		"method", "post",
		"path", "/login",
		"status", 401,
		"duration_ms", int64(12),
		"request_id", "abc",
		"ua", "curl/8.0 (x)",
	)

	line := buf.String()
	for _, want := range []string{
		"lvl=[INFO]",
		"msg=http.request",
		"method=POST",
		"path=/login",
		"status=401",
		"duration=12ms",
		"rid=abc",
		`ua="curl/8.0 (x)"`,
	} {
		if !strings.Contains(line, want) {
			t.Fatalf("missing %q in %q", want, line)
		}
	}
	if strings.Contains(line, "\x1b[") {
		t.Fatalf("unexpected ANSI escape in %q", line)
	}
	if !strings.HasSuffix(line, "\n") {
		t.Fatalf("line must end with newline: %q", line)
	}
}

func TestPrettyHandler_ColorStripsToPlain(t *testing.T) {
	t.Parallel()

	var plain, colored bytes.Buffer
	a := slog.New(newPrettyHandler(&plain, nil, false))
	b := slog.New(newPrettyHandler(&colored, nil, true))

	a.Warn("auth.login.failed", "status", 500, "result", "server_error")
	b.Warn("auth.login.failed", "status", 500, "result", "server_error")

	if !strings.Contains(colored.String(), ansiRed) {
		t.Fatalf("expected red status in %q", colored.String())
	}
	// Drop the timestamps before comparing.
	strip := func(s string) string { return s[strings.Index(s, "lvl="):] }
	if got, want := strip(stripANSI(colored.String())), strip(plain.String()); got != want {
		t.Fatalf("colored=%q plain=%q", got, want)
	}
}

func TestPrettyHandler_GroupsAndLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := newPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}, false)
	log := slog.New(h).With("svc", "authd").WithGroup("db")

	log.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info must be filtered at warn level, got %q", buf.String())
	}

	log.Error("db.ping.fail", slog.Group("pool", "max", 10))
	line := buf.String()
	if !strings.Contains(line, "db.pool.max=10") {
		t.Fatalf("missing grouped key in %q", line)
	}
	if !strings.Contains(line, "lvl=[ERROR]") {
		t.Fatalf("missing level tag in %q", line)
	}
}
