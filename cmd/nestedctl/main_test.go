package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	backend "github.com/redis/go-redis/v9"

	"github.com/vango-dev/nested/internal/adapters/redis"
	"github.com/vango-dev/nested/internal/config"
	"github.com/vango-dev/nested/internal/errors"
	"github.com/vango-dev/nested/internal/treefile"
	"github.com/vango-dev/nested/pkg/nested"
)

const menuYAML = `select: classic
opened: [fruits]
selected: [apple]
nodes:
  - id: fruits
    children:
      - id: apple
      - id: pear
  - id: veg
    group: true
steps:
  - select: pear
  - unregister: veg
`

func writeMenu(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "menu.yaml")
	if err := os.WriteFile(path, []byte(menuYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionShort(t *testing.T) {
	out, err := execute("version", "--short")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if out != version+"\n" {
		t.Errorf("output = %q, want %q", out, version+"\n")
	}
}

func TestInspect(t *testing.T) {
	path := writeMenu(t)

	out, err := execute("inspect", path)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	want := "▾ [-] fruits\n    [x] apple\n    [ ] pear\n▸ [ ] veg\n"
	if !strings.HasSuffix(out, want) {
		t.Errorf("inspect output:\n%s\nwant suffix:\n%s", out, want)
	}
	if !strings.Contains(out, "tree(4 nodes, 2 steps") {
		t.Errorf("inspect header missing:\n%s", out)
	}

	out, err = execute("inspect", path, "--run")
	if err != nil {
		t.Fatalf("inspect --run: %v", err)
	}
	want = "▾ [x] fruits\n    [x] apple\n    [x] pear\n"
	if !strings.HasSuffix(out, want) {
		t.Errorf("inspect --run output:\n%s\nwant suffix:\n%s", out, want)
	}
}

func TestInspectArgs(t *testing.T) {
	_, err := execute("inspect")
	if got := errors.CodeOf(err); got != "N400" {
		t.Errorf("CodeOf(no file) = %q, want N400", got)
	}

	_, err = execute("inspect", "a.yaml", "b.yaml")
	if got := errors.CodeOf(err); got != "N400" {
		t.Errorf("CodeOf(two files) = %q, want N400", got)
	}

	_, err = execute("inspect", filepath.Join(t.TempDir(), "missing.yaml"))
	if got := errors.CodeOf(err); got != "N200" {
		t.Errorf("CodeOf(missing file) = %q, want N200", got)
	}
}

func TestApply(t *testing.T) {
	path := writeMenu(t)

	out, err := execute("apply", path, "--deselect", "apple")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	for _, want := range []string{"3 steps", "opened:   fruits", "selected: pear"} {
		if !strings.Contains(out, want) {
			t.Errorf("apply output missing %q:\n%s", want, out)
		}
	}
}

func TestApplyJSON(t *testing.T) {
	path := writeMenu(t)

	out, err := execute("apply", path, "--json", "--open", "fruits", "--select", "apple")
	if err != nil {
		t.Fatalf("apply --json: %v", err)
	}

	var got applyResult
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(got.Trace) != 4 {
		t.Errorf("len(Trace) = %d, want 4", len(got.Trace))
	}
	if got.Selected["fruits"] != nested.On {
		t.Errorf("Selected[fruits] = %v, want on", got.Selected["fruits"])
	}
	if strings.Join(got.Values, ",") != "apple,pear" {
		t.Errorf("Values = %v, want [apple pear]", got.Values)
	}
	if _, ok := got.Selected["veg"]; ok {
		t.Error("unregistered node still has a selection state")
	}
}

func TestApplyUnknownNode(t *testing.T) {
	path := writeMenu(t)

	_, err := execute("apply", path, "--select", "aple")
	ne := errors.FromError(err, "")
	if ne.Code != "N203" {
		t.Fatalf("Code = %q, want N203", ne.Code)
	}
	if ne.Suggestion != "Did you mean apple?" {
		t.Errorf("Suggestion = %q", ne.Suggestion)
	}
}

func TestLoadServeConfig(t *testing.T) {
	dir := t.TempDir()
	data := `{"server": {"port": 9000}, "log": {"level": "debug"}}`
	if err := os.WriteFile(filepath.Join(dir, config.ConfigFileName), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadServeConfig(serveFlags{dir: dir})
	if err != nil {
		t.Fatalf("loadServeConfig: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Server.Port)
	}

	cfg, err = loadServeConfig(serveFlags{dir: dir, port: 8081, host: "0.0.0.0", redis: "cache:6379"})
	if err != nil {
		t.Fatalf("loadServeConfig: %v", err)
	}
	if got := cfg.Address(); got != "0.0.0.0:8081" {
		t.Errorf("Address() = %q, want 0.0.0.0:8081", got)
	}
	if cfg.Redis.Addr != "cache:6379" {
		t.Errorf("Redis.Addr = %q", cfg.Redis.Addr)
	}

	_, err = loadServeConfig(serveFlags{dir: dir, logLevel: "loud"})
	if got := errors.CodeOf(err); got != "N104" {
		t.Errorf("CodeOf(bad level) = %q, want N104", got)
	}
}

func TestBuildServerPublishesToRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	defer mr.Close()

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	srv, cleanup, err := buildServer(cfg, io.Discard, prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("buildServer: %v", err)
	}
	defer cleanup()

	def, err := treefile.Parse([]byte(menuYAML))
	if err != nil {
		t.Fatal(err)
	}
	sess, err := srv.Sessions().Create(def)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer srv.Sessions().CloseAll()

	mirror, _, err := def.Build()
	if err != nil {
		t.Fatal(err)
	}
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go redis.Follow(ctx, client, cfg.Redis.Channel, sess.ID, mirror)

	waitFor(t, func() bool { return mr.PubSubNumSub(cfg.Redis.Channel)[cfg.Redis.Channel] == 1 })
	sess.Registry.Select("pear", true, nil)
	waitFor(t, func() bool { return mirror.State("fruits") == nested.On })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within 2s")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
