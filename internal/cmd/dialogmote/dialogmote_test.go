package dialogmote

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("dialogmote", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("expected default addr :8080, got %q", cfg.HTTPAddr)
	}
	if cfg.StoragePath != "dialogmote.db" {
		t.Fatalf("expected default storage path, got %q", cfg.StoragePath)
	}
	if !cfg.SuppressPastMeetingDispatch {
		t.Fatal("expected past-meeting dispatch suppression on by default")
	}
}

func TestParseConfigEnvOverride(t *testing.T) {
	t.Setenv("DIALOGMOTE_HTTP_ADDR", ":9090")
	t.Setenv("DIALOGMOTE_SUPPRESS_PAST_MEETING_DISPATCH", "false")

	fs := flag.NewFlagSet("dialogmote", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("expected env addr :9090, got %q", cfg.HTTPAddr)
	}
	if cfg.SuppressPastMeetingDispatch {
		t.Fatal("expected suppression disabled via env")
	}
}

func TestParseConfigFlagBeatsEnv(t *testing.T) {
	t.Setenv("DIALOGMOTE_HTTP_ADDR", ":9090")

	fs := flag.NewFlagSet("dialogmote", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-http-addr", ":9091"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != ":9091" {
		t.Fatalf("expected flag addr :9091, got %q", cfg.HTTPAddr)
	}
}
