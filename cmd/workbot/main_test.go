package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderUnit(t *testing.T) {
	got := renderUnit(unitParams{
		Description: "bot",
		User:        "workbot",
		WorkDir:     "/srv/workbot",
		Exec:        "/usr/local/bin/workbot",
		ConfigPath:  "/etc/workbot/conf.yml",
	})
	for _, want := range []string{
		"User=workbot\n",
		"WorkingDirectory=/srv/workbot\n",
		"ExecStart=/usr/local/bin/workbot bot --config /etc/workbot/conf.yml\n",
		"Restart=always\n",
		"WantedBy=multi-user.target\n",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("unit lacks %q:\n%s", want, got)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.HasPrefix(out.String(), "workbot ") {
		t.Fatalf("version output = %q", out.String())
	}
}

func TestBotFailsWithoutToken(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.yml")
	t.Setenv("BOT_TOKEN", "")

	root := newRootCmd()
	root.SetArgs([]string{"bot", "--config", path})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "access.token") {
		t.Fatalf("Execute() error = %v", err)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Fatalf("config template not written: %v", statErr)
	}
}
