package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	rootpkg "tools.zach/dev/dispresence"
	"tools.zach/dev/dispresence/internal/discord"
	"tools.zach/dev/dispresence/internal/presence"
	"tools.zach/dev/dispresence/internal/worker"
)

// ///////////////////////////////////////////////
// Helpers
// ///////////////////////////////////////////////

func runCLI(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--data-dir", dataDir}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// keepDefaultLogger restores the slog default replaced by commands that
// open the log file.
func keepDefaultLogger(t *testing.T) {
	t.Helper()
	old := slog.Default()
	t.Cleanup(func() { slog.SetDefault(old) })
}

func writeSample(t *testing.T, path string) {
	t.Helper()
	if err := presence.Save(path, samplePresence()); err != nil {
		t.Fatalf("Save: %v", err)
	}
}

// ///////////////////////////////////////////////
// resolveVersion Tests
// ///////////////////////////////////////////////

func TestResolveVersionWithLdflags(t *testing.T) {
	original := version
	defer func() { version = original }()

	version = "1.2.3"
	if got := resolveVersion(); got != "1.2.3" {
		t.Errorf("resolveVersion() = %q, want %q", got, "1.2.3")
	}
}

func TestResolveVersionDev(t *testing.T) {
	original := version
	defer func() { version = original }()

	version = "dev"
	got := resolveVersion()
	// Either "dev" (no VCS info) or "dev+<hash>[.dirty]".
	if !strings.HasPrefix(got, "dev") {
		t.Errorf("resolveVersion() = %q, expected to start with 'dev'", got)
	}
}

// ///////////////////////////////////////////////
// defaultDataDir Tests
// ///////////////////////////////////////////////

func TestDefaultDataDir(t *testing.T) {
	dir := defaultDataDir()
	if !strings.HasSuffix(dir, ".dispresence") {
		t.Errorf("defaultDataDir() = %q, want path ending in %q", dir, ".dispresence")
	}
}

func TestCommandContextPaths(t *testing.T) {
	flag := "  /tmp/dp  "
	if got := newCommandContext(&flag).paths().Root; got != "/tmp/dp" {
		t.Errorf("paths().Root = %q, want %q", got, "/tmp/dp")
	}
	empty := ""
	if got := newCommandContext(&empty).paths().Root; got != defaultDataDir() {
		t.Errorf("paths().Root = %q, want default %q", got, defaultDataDir())
	}
}

// ///////////////////////////////////////////////
// Settings Bootstrap Tests
// ///////////////////////////////////////////////

func TestEnsureSettings_WritesDefault(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	ctx := newCommandContext(&dir)

	cfg, err := ctx.ensureSettings()
	if err != nil {
		t.Fatalf("ensureSettings: %v", err)
	}
	data, err := os.ReadFile(ctx.paths().Config())
	if err != nil {
		t.Fatalf("settings file not written: %v", err)
	}
	if !bytes.Equal(data, rootpkg.DefaultConfigTOML) {
		t.Error("written settings differ from the embedded default")
	}
	if got := cfg.PresencePath(dir); got != filepath.Join(dir, "presets", "config.json") {
		t.Errorf("PresencePath = %q", got)
	}
}

func TestEnsureSettings_KeepsExisting(t *testing.T) {
	dir := t.TempDir()
	custom := "version = 1\n\n[log]\nlevel = \"debug\"\n"
	if err := os.WriteFile(filepath.Join(dir, "settings.toml"), []byte(custom), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := newCommandContext(&dir).ensureSettings()
	if err != nil {
		t.Fatalf("ensureSettings: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
	data, _ := os.ReadFile(filepath.Join(dir, "settings.toml"))
	if string(data) != custom {
		t.Error("existing settings were overwritten")
	}
}

func TestWorkerOptionsFromSettings(t *testing.T) {
	dir := t.TempDir()
	cfg, err := newCommandContext(&dir).ensureSettings()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Worker.UpdateIntervalSeconds = 20
	cfg.Worker.BackoffMinMS = 100
	cfg.Worker.BackoffMaxMS = 5000

	opts := workerOptions(cfg)
	if opts.UpdateInterval != 20*time.Second || opts.BackoffMin != 100*time.Millisecond || opts.BackoffMax != 5*time.Second {
		t.Errorf("workerOptions = %+v", opts)
	}
	if opts.Logger == nil {
		t.Error("workerOptions.Logger is nil")
	}
}

// ///////////////////////////////////////////////
// pidToken Tests
// ///////////////////////////////////////////////

func TestPidToken_Unique(t *testing.T) {
	if a, b := pidToken(), pidToken(); a == b {
		t.Errorf("pidToken() returned the same value twice: %q", a)
	}
}

func TestPidToken_Length(t *testing.T) {
	if tok := pidToken(); len(tok) != 16 {
		t.Errorf("pidToken() length = %d, want 16", len(tok))
	}
}

// ///////////////////////////////////////////////
// writePID / removePID Tests
// ///////////////////////////////////////////////

func TestWritePID_FileContainsPID(t *testing.T) {
	dp := DataPaths{Root: t.TempDir()}
	token := pidToken()

	f, err := writePID(dp, token)
	if err != nil {
		t.Fatalf("writePID() error: %v", err)
	}
	defer func() {
		_ = unlockFile(f)
		f.Close()
	}()

	// Read through the open handle; on Windows the lock prevents os.ReadFile.
	if _, err := f.Seek(0, 0); err != nil {
		t.Fatalf("Seek() error: %v", err)
	}
	data := make([]byte, 256)
	n, err := f.Read(data)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}

	expected := fmt.Sprintf("%d:%s", os.Getpid(), token)
	if string(data[:n]) != expected {
		t.Errorf("PID file content = %q, want %q", string(data[:n]), expected)
	}
}

func TestRemovePID(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		wantExists bool
	}{
		{"matching token", "", false},
		{"mismatched token", "wrong-token", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dp := DataPaths{Root: t.TempDir()}
			token := pidToken()
			f, err := writePID(dp, token)
			if err != nil {
				t.Fatalf("writePID() error: %v", err)
			}

			remove := tt.token
			if remove == "" {
				remove = token
			}
			removePID(dp, remove, f)

			_, statErr := os.Stat(dp.PID())
			if exists := statErr == nil; exists != tt.wantExists {
				t.Errorf("PID file exists = %v, want %v", exists, tt.wantExists)
			}
		})
	}
}

func TestRemovePID_NilFile(t *testing.T) {
	removePID(DataPaths{Root: t.TempDir()}, "any-token", nil)
}

// ///////////////////////////////////////////////
// checkStalePID Tests
// ///////////////////////////////////////////////

func TestCheckStalePID_NoFile(t *testing.T) {
	alive, pid := checkStalePID(DataPaths{Root: t.TempDir()})
	if alive || pid != 0 {
		t.Errorf("checkStalePID() = (%v, %d), want (false, 0)", alive, pid)
	}
}

func TestCheckStalePID_StalePID(t *testing.T) {
	dp := DataPaths{Root: t.TempDir()}

	// No lock held: simulates a dead process.
	if err := os.WriteFile(dp.PID(), []byte("99999:staletoken"), 0o600); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	alive, pid := checkStalePID(dp)
	if alive || pid != 0 {
		t.Errorf("checkStalePID() = (%v, %d), want (false, 0)", alive, pid)
	}
	if _, err := os.Stat(dp.PID()); !os.IsNotExist(err) {
		t.Error("stale PID file should have been removed")
	}
}

// ///////////////////////////////////////////////
// CLI Tests
// ///////////////////////////////////////////////

func TestCLIVersion(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	requireContains(t, out, "dispresence ")
}

func TestCLIInitListValidate(t *testing.T) {
	dataDir := t.TempDir()

	out, err := runCLI(t, dataDir, "init")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	requireContains(t, out, "Wrote sample presence")
	target := filepath.Join(dataDir, "presets", "config.json")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected presence file at %s: %v", target, err)
	}

	if _, err := runCLI(t, dataDir, "init"); err == nil {
		t.Error("second init should refuse to overwrite")
	}
	if _, err := runCLI(t, dataDir, "init", "--overwrite"); err != nil {
		t.Errorf("init --overwrite: %v", err)
	}

	writeSample(t, filepath.Join(dataDir, "presets", "raids", "keep.dspson"))

	out, err = runCLI(t, dataDir, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "config.json")
	requireContains(t, out, "raids/keep.dspson")

	out, err = runCLI(t, dataDir, "validate", target)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	requireContains(t, out, "ok ")
}

func TestCLIInitRejectsExtension(t *testing.T) {
	dir := t.TempDir()
	if _, err := runCLI(t, dir, "init", filepath.Join(dir, "presence.txt")); err == nil {
		t.Fatal("init accepted a non-presence extension")
	}
}

func TestCLIListEmpty(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "No presence files")
}

func TestCLIValidateReportsFailures(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	bad := filepath.Join(dir, "bad.json")
	writeSample(t, good)
	if err := os.WriteFile(bad, []byte(`{"app_id":"x"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, dir, "validate", good, bad)
	if !errors.Is(err, errInvalidFiles) {
		t.Fatalf("validate error = %v, want %v", err, errInvalidFiles)
	}
	requireContains(t, out, "ok   "+good)
	requireContains(t, out, "FAIL bad.json")
}

func TestCLILogs(t *testing.T) {
	dataDir := t.TempDir()

	out, err := runCLI(t, dataDir, "logs")
	if err != nil {
		t.Fatalf("logs without file: %v", err)
	}
	requireContains(t, out, "No log file")

	var lines []string
	for i := range 5 {
		lines = append(lines, fmt.Sprintf("line %d", i))
	}
	if err := os.WriteFile(filepath.Join(dataDir, "dispresence.log"), []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err = runCLI(t, dataDir, "logs", "-n", "2")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if out != "line 3\nline 4\n" {
		t.Errorf("logs -n 2 = %q", out)
	}

	if _, err := runCLI(t, dataDir, "logs", "-n", "0"); err == nil {
		t.Error("logs -n 0 should fail")
	}
}

func TestCLIEditNeedsTerminal(t *testing.T) {
	if isTerminal(os.Stdin) && isTerminal(os.Stdout) {
		t.Skip("test process is attached to a terminal")
	}
	_, err := runCLI(t, t.TempDir(), "edit")
	if !errors.Is(err, errNoTerminal) {
		t.Fatalf("edit error = %v, want %v", err, errNoTerminal)
	}
	_, err = runCLI(t, t.TempDir())
	if !errors.Is(err, errNoTerminal) {
		t.Fatalf("root error = %v, want %v", err, errNoTerminal)
	}
}

// ///////////////////////////////////////////////
// Headless Runner Tests
// ///////////////////////////////////////////////

func TestRunHeadless_NoPresenceFile(t *testing.T) {
	keepDefaultLogger(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "settings.toml"), []byte("version = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := runHeadless(newCommandContext(&dir), runOptions{}, io.Discard)
	if !errors.Is(err, errNoPresenceFile) {
		t.Fatalf("runHeadless error = %v, want %v", err, errNoPresenceFile)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "dispresence.pid")); !os.IsNotExist(statErr) {
		t.Error("PID file left behind after failure")
	}
}

func TestRunHeadless_MissingPresenceFile(t *testing.T) {
	keepDefaultLogger(t)
	dir := t.TempDir()

	err := runHeadless(newCommandContext(&dir), runOptions{}, io.Discard)
	if !errors.Is(err, presence.ErrRead) {
		t.Fatalf("runHeadless error = %v, want %v", err, presence.ErrRead)
	}
}

func TestRunHeadless_AlreadyRunning(t *testing.T) {
	dir := t.TempDir()
	dp := DataPaths{Root: dir}
	token := pidToken()
	f, err := writePID(dp, token)
	if err != nil {
		t.Fatalf("writePID: %v", err)
	}
	defer removePID(dp, token, f)

	err = runHeadless(newCommandContext(&dir), runOptions{}, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("runHeadless error = %v, want already running", err)
	}
}

// ///////////////////////////////////////////////
// Broadcaster Tests
// ///////////////////////////////////////////////

// nopConn accepts everything, so a started worker settles into Updating.
type nopConn struct{}

func (nopConn) Connect() error                       { return nil }
func (nopConn) SetActivity(*discord.Activity) error { return nil }
func (nopConn) Reconnect() error                     { return nil }
func (nopConn) Close() error                         { return nil }

type startRecorder struct {
	configs []*presence.Config
	handles []*worker.Handle
}

func (r *startRecorder) start(cfg *presence.Config) *worker.Handle {
	h := worker.Start(nopConn{}, cfg, worker.Options{
		Clock:  clockwork.NewFakeClock(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	r.configs = append(r.configs, cfg)
	r.handles = append(r.handles, h)
	return h
}

func TestBroadcasterReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeSample(t, path)
	initial, err := presence.Load(path)
	if err != nil {
		t.Fatal(err)
	}

	rec := &startRecorder{}
	b := newBroadcaster(rec.start)
	b.launch(initial)
	defer b.shutdown(context.Background())

	if b.reload(context.Background(), path) {
		t.Error("reload restarted the worker for an unchanged file")
	}

	changed := samplePresence()
	changed.State = "Solo"
	changed.Party = nil
	if err := presence.Save(path, changed); err != nil {
		t.Fatal(err)
	}
	if !b.reload(context.Background(), path) {
		t.Fatal("reload did not restart for a changed file")
	}
	if len(rec.handles) != 2 {
		t.Fatalf("workers started = %d, want 2", len(rec.handles))
	}
	select {
	case <-rec.handles[0].Done():
	default:
		t.Error("previous worker still running after reload")
	}
	if !rec.configs[1].Equal(changed) {
		t.Errorf("new worker config = %+v, want %+v", rec.configs[1], changed)
	}
	if !rec.handles[1].Running() {
		t.Error("new worker is not running")
	}
}

func TestBroadcasterReload_InvalidKeepsWorker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeSample(t, path)
	initial, _ := presence.Load(path)

	rec := &startRecorder{}
	b := newBroadcaster(rec.start)
	b.launch(initial)
	defer b.shutdown(context.Background())

	if err := os.WriteFile(path, []byte(`{"app_id":`), 0o644); err != nil {
		t.Fatal(err)
	}
	if b.reload(context.Background(), path) {
		t.Error("reload restarted for an invalid file")
	}
	if len(rec.handles) != 1 || !rec.handles[0].Running() {
		t.Error("the original worker should keep running")
	}
}

// stuckConn blocks every SetActivity until release is closed, like a Discord
// client that stopped reading its socket.
type stuckConn struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newStuckConn() *stuckConn {
	return &stuckConn{entered: make(chan struct{}), release: make(chan struct{})}
}

func (c *stuckConn) Connect() error { return nil }
func (c *stuckConn) SetActivity(*discord.Activity) error {
	c.once.Do(func() { close(c.entered) })
	<-c.release
	return nil
}
func (c *stuckConn) Reconnect() error { return nil }
func (c *stuckConn) Close() error     { return nil }

func TestBroadcasterReload_StuckWorkerHonorsCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeSample(t, path)
	initial, _ := presence.Load(path)

	conn := newStuckConn()
	starts := 0
	b := newBroadcaster(func(cfg *presence.Config) *worker.Handle {
		starts++
		return worker.Start(conn, cfg, worker.Options{
			Clock:  clockwork.NewFakeClock(),
			Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		})
	})
	b.slowStop = time.Millisecond
	b.launch(initial)
	stuck := b.handle
	<-conn.entered

	changed := samplePresence()
	changed.State = "Solo"
	if err := presence.Save(path, changed); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	returned := make(chan bool, 1)
	go func() { returned <- b.reload(ctx, path) }()
	select {
	case restarted := <-returned:
		if restarted {
			t.Error("reload restarted while the old worker was still running")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reload ignored cancellation while the worker was stuck")
	}
	if starts != 1 {
		t.Errorf("workers started = %d, want 1", starts)
	}
	if b.handle != stuck {
		t.Error("the stuck worker should stay the current handle")
	}

	timeout, cancelTimeout := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancelTimeout()
	if b.shutdown(timeout) {
		t.Error("shutdown = true for a stuck worker")
	}

	close(conn.release)
	if !b.shutdown(context.Background()) {
		t.Error("shutdown = false after the worker was released")
	}
}

func TestBroadcasterShutdown(t *testing.T) {
	rec := &startRecorder{}
	b := newBroadcaster(rec.start)
	if !b.shutdown(context.Background()) { // no worker yet
		t.Error("shutdown without a worker = false, want true")
	}

	b.launch(samplePresence())
	if !b.shutdown(context.Background()) {
		t.Error("shutdown = false, want true")
	}
	if b.handle != nil {
		t.Error("handle kept after shutdown")
	}
	select {
	case <-rec.handles[0].Done():
	default:
		t.Error("worker still running after shutdown")
	}
}

func TestWaitStopped(t *testing.T) {
	if !waitStopped(nil, time.Millisecond) {
		t.Error("waitStopped(nil) = false, want true")
	}
	rec := &startRecorder{}
	h := rec.start(samplePresence())
	if !waitStopped(h, 2*time.Second) {
		t.Error("waitStopped did not observe the worker finishing")
	}
}
