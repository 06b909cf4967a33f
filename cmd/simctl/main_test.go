package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(append([]string{"--data", dir}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDocCommands(t *testing.T) {
	t.Setenv("SIM_REDIS_ADDR", "")
	dir := t.TempDir()
	if _, err := run(t, dir, "doc", "put", "users", "u1", `{"money":100}`); err != nil {
		t.Fatalf("put: %v", err)
	}
	out, err := run(t, dir, "doc", "get", "users", "u1")
	if err != nil || !strings.Contains(out, `"money": 100`) {
		t.Fatalf("get: %q %v", out, err)
	}
	out, err = run(t, dir, "doc", "ls", "users")
	if err != nil || strings.TrimSpace(out) != "u1" {
		t.Fatalf("ls: %q %v", out, err)
	}
	if _, err := run(t, dir, "doc", "rm", "users", "u1"); err != nil {
		t.Fatalf("rm: %v", err)
	}
	if _, err := run(t, dir, "doc", "get", "users", "u1"); err == nil {
		t.Fatal("expected not found after rm")
	}
}

func TestCooldownAndBanCommands(t *testing.T) {
	t.Setenv("SIM_REDIS_ADDR", "")
	dir := t.TempDir()
	out, err := run(t, dir, "cooldown", "check", "u1", "farm", "plant")
	if err != nil || strings.TrimSpace(out) != "0" {
		t.Fatalf("check: %q %v", out, err)
	}
	if _, err := run(t, dir, "cooldown", "set", "u1", "farm", "plant", "120"); err != nil {
		t.Fatalf("set: %v", err)
	}
	out, _ = run(t, dir, "cooldown", "check", "u1", "farm", "plant")
	if s := strings.TrimSpace(out); s == "0" || s == "" {
		t.Fatalf("expected active cooldown, got %q", out)
	}
	if _, err := run(t, dir, "cooldown", "set", "u1", "farm", "plant", "soon"); err == nil {
		t.Fatal("expected bad seconds error")
	}

	if _, err := run(t, dir, "ban", "set", "u1", "1h"); err != nil {
		t.Fatalf("ban set: %v", err)
	}
	out, _ = run(t, dir, "ban", "get", "u1")
	if !strings.Contains(out, "is banned") {
		t.Fatalf("ban get: %q", out)
	}
	if _, err := run(t, dir, "ban", "clear", "u1"); err != nil {
		t.Fatalf("ban clear: %v", err)
	}
	out, _ = run(t, dir, "ban", "get", "u1")
	if !strings.Contains(out, "not banned") {
		t.Fatalf("ban get after clear: %q", out)
	}
	if _, err := run(t, dir, "watch"); err == nil {
		t.Fatal("watch without redis should fail")
	}
}
