package goenv

import "testing"

func TestWasmGoEnvPreset(t *testing.T) {
	e := WasmGoEnv("1.23")
	if e.ToolchainBin != "go" {
		t.Fatalf("expected go toolchain, got %q", e.ToolchainBin)
	}
	found := false
	for _, kv := range e.Env {
		if kv == "GOOS=wasip1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected GOOS=wasip1 in env: %v", e.Env)
	}
}

func TestTinyGoEnvPreset(t *testing.T) {
	e := TinyGoEnv()
	if e.ToolchainBin != "tinygo" {
		t.Fatalf("expected tinygo toolchain, got %q", e.ToolchainBin)
	}
	if len(e.BuildArgs) == 0 || e.BuildArgs[0] != "build" {
		t.Fatalf("unexpected build args: %v", e.BuildArgs)
	}
}
