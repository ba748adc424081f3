package cmd

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/pders01/docchat/internal/config"
	"github.com/pders01/docchat/internal/manager"
	"github.com/pders01/docchat/internal/models"
	"github.com/pders01/docchat/internal/version"
)

func resetFlags() {
	updateSource = ""
	diffJSON, diffToon = false, false
	listJSON, listToon = false, false
	convsVersion, convsJSON, convsToon = "", false, false
	chatResume = ""
	askVersion, askConv = "", ""
	historyJSON, historyToon = false, false
	searchVersion, searchK, searchJSON = "", 5, false
	statsJSON, statsToon = false, false
	setupForce, setupPrint = false, false
}

func snapshotDirs(t *testing.T, dataDir, label string) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(dataDir, models.VersionDirName(label)))
	if err != nil {
		t.Fatalf("failed to read version directory: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func initVersion(t *testing.T, label, source string) {
	t.Helper()
	if _, err := captureOutput(t, func() error { return runInit(nil, []string{label, source}) }); err != nil {
		t.Fatalf("init command failed: %v", err)
	}
}

func listConversations(t *testing.T) []manager.ConversationInfo {
	t.Helper()
	resetFlags()
	convsJSON = true
	out, err := captureOutput(t, func() error { return runConvs(nil, nil) })
	if err != nil {
		t.Fatalf("convs command failed: %v", err)
	}
	var convs []manager.ConversationInfo
	if err := json.Unmarshal([]byte(out), &convs); err != nil {
		t.Fatalf("failed to parse convs output: %v\n%s", err, out)
	}
	return convs
}

func TestInitCommand(t *testing.T) {
	dataDir, corpus := setupCmdTest(t)
	resetFlags()

	out, err := captureOutput(t, func() error { return runInit(nil, []string{"1.0", corpus.Path}) })
	if err != nil {
		t.Fatalf("init command failed: %v", err)
	}
	if !strings.Contains(out, "Initialized version 1.0") {
		t.Errorf("unexpected output: %s", out)
	}

	if dirs := snapshotDirs(t, dataDir, "1.0"); len(dirs) != 1 {
		t.Errorf("expected 1 snapshot, got %v", dirs)
	}
}

func TestInitCommandMissingSource(t *testing.T) {
	setupCmdTest(t)
	resetFlags()

	_, err := captureOutput(t, func() error {
		return runInit(nil, []string{"1.0", filepath.Join(t.TempDir(), "missing")})
	})
	if err == nil {
		t.Fatal("expected init to fail for a missing source directory")
	}
}

func TestInitCommandRejectsNestedLabel(t *testing.T) {
	dataDir, corpus := setupCmdTest(t)
	resetFlags()

	_, err := captureOutput(t, func() error { return runInit(nil, []string{"2024/notes", corpus.Path}) })
	if !errors.Is(err, models.ErrInvalidVersionLabel) {
		t.Fatalf("expected ErrInvalidVersionLabel, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dataDir, "v_2024")); !os.IsNotExist(err) {
		t.Errorf("expected no version directory, stat returned %v", err)
	}
}

func TestUpdateCommand(t *testing.T) {
	dataDir, corpus := setupCmdTest(t)
	resetFlags()
	initVersion(t, "1.0", corpus.Path)

	out, err := captureOutput(t, func() error { return runUpdate(nil, nil) })
	if err != nil {
		t.Fatalf("update command failed: %v", err)
	}
	if !strings.Contains(out, "No changes") {
		t.Errorf("expected no changes, got: %s", out)
	}
	if dirs := snapshotDirs(t, dataDir, "1.0"); len(dirs) != 1 {
		t.Errorf("expected 1 snapshot after a no-op update, got %v", dirs)
	}

	corpus.Touch("b.txt")

	out, err = captureOutput(t, func() error { return runUpdate(nil, []string{"1.0"}) })
	if err != nil {
		t.Fatalf("update command failed: %v", err)
	}
	if !strings.Contains(out, filepath.Join(corpus.Path, "b.txt")) || strings.Contains(out, filepath.Join(corpus.Path, "a.txt")) {
		t.Errorf("expected only b.txt to be indexed, got: %s", out)
	}
	if dirs := snapshotDirs(t, dataDir, "1.0"); len(dirs) != 2 {
		t.Errorf("expected 2 snapshots, got %v", dirs)
	}
}

func TestUpdateCommandSourceMismatch(t *testing.T) {
	_, corpus := setupCmdTest(t)
	resetFlags()
	initVersion(t, "1.0", corpus.Path)

	updateSource = t.TempDir()
	_, err := captureOutput(t, func() error { return runUpdate(nil, []string{"1.0"}) })
	if !errors.Is(err, version.ErrProvenanceMismatch) {
		t.Errorf("expected provenance mismatch, got %v", err)
	}
}

func TestDiffCommand(t *testing.T) {
	_, corpus := setupCmdTest(t)
	resetFlags()
	initVersion(t, "1.0", corpus.Path)

	corpus.CreateFile("c.md", "cherries")
	corpus.Remove("a.txt")

	diffJSON = true
	out, err := captureOutput(t, func() error { return runDiff(nil, []string{"1.0"}) })
	if err != nil {
		t.Fatalf("diff command failed: %v", err)
	}

	var diff pendingChanges
	if err := json.Unmarshal([]byte(out), &diff); err != nil {
		t.Fatalf("failed to parse diff output: %v\n%s", err, out)
	}
	if len(diff.Changed) != 1 || diff.Changed[0] != filepath.Join(corpus.Path, "c.md") {
		t.Errorf("unexpected changed files: %v", diff.Changed)
	}
	if len(diff.Deleted) != 1 || diff.Deleted[0] != filepath.Join(corpus.Path, "a.txt") {
		t.Errorf("unexpected deleted files: %v", diff.Deleted)
	}
}

func TestListCommand(t *testing.T) {
	_, corpus := setupCmdTest(t)
	resetFlags()

	out, err := captureOutput(t, func() error { return runList(nil, nil) })
	if err != nil {
		t.Fatalf("list command failed: %v", err)
	}
	if !strings.Contains(out, "No versions found") {
		t.Errorf("unexpected output for an empty data directory: %s", out)
	}

	initVersion(t, "1.0", corpus.Path)

	listJSON = true
	out, err = captureOutput(t, func() error { return runList(nil, nil) })
	if err != nil {
		t.Fatalf("list command failed: %v", err)
	}

	var versions []manager.VersionInfo
	if err := json.Unmarshal([]byte(out), &versions); err != nil {
		t.Fatalf("failed to parse list output: %v\n%s", err, out)
	}
	if len(versions) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(versions))
	}
	if versions[0].Version != "1.0" || versions[0].SourcePath != corpus.Path || !versions[0].Latest {
		t.Errorf("unexpected version row: %+v", versions[0])
	}
}

func TestChatCommand(t *testing.T) {
	_, corpus := setupCmdTest(t)
	resetFlags()
	initVersion(t, "1.0", corpus.Path)

	chatCmd.SetIn(strings.NewReader("hello there\n\n/history\n/exit\n"))
	defer chatCmd.SetIn(nil)

	out, err := captureOutput(t, func() error { return runChat(chatCmd, []string{"1.0"}) })
	if err != nil {
		t.Fatalf("chat command failed: %v", err)
	}
	if !strings.Contains(out, "echo: hello there") {
		t.Errorf("expected the answer in the output, got: %s", out)
	}
	if !strings.Contains(out, "You: hello there") {
		t.Errorf("expected /history to print the question, got: %s", out)
	}

	convs := listConversations(t)
	if len(convs) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(convs))
	}

	// resume and ask again, ending on EOF instead of /exit
	resetFlags()
	chatResume = convs[0].ID
	chatCmd.SetIn(strings.NewReader("second question\n"))
	if _, err := captureOutput(t, func() error { return runChat(chatCmd, []string{"1.0"}) }); err != nil {
		t.Fatalf("chat --resume failed: %v", err)
	}

	historyJSON = true
	out, err = captureOutput(t, func() error { return runHistory(nil, []string{"1.0", convs[0].ID}) })
	if err != nil {
		t.Fatalf("history command failed: %v", err)
	}
	var msgs []models.Message
	if err := json.Unmarshal([]byte(out), &msgs); err != nil {
		t.Fatalf("failed to parse history output: %v\n%s", err, out)
	}
	if len(msgs) != 4 {
		t.Errorf("expected 4 messages after two questions, got %d", len(msgs))
	}
}

func TestAskCommand(t *testing.T) {
	_, corpus := setupCmdTest(t)
	resetFlags()
	initVersion(t, "1.0", corpus.Path)

	out, err := captureOutput(t, func() error { return runAsk(nil, []string{"what", "is", "red?"}) })
	if err != nil {
		t.Fatalf("ask command failed: %v", err)
	}
	if !strings.Contains(out, "echo: what is red?") {
		t.Errorf("unexpected answer: %s", out)
	}

	convs := listConversations(t)
	if len(convs) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(convs))
	}

	resetFlags()
	askConv = convs[0].ID
	if _, err := captureOutput(t, func() error { return runAsk(nil, []string{"and yellow?"}) }); err != nil {
		t.Fatalf("ask --conv failed: %v", err)
	}
	if convs := listConversations(t); len(convs) != 1 {
		t.Errorf("continuing must not start a new conversation, got %d", len(convs))
	}

	resetFlags()
	askConv = "unknown"
	if _, err := captureOutput(t, func() error { return runAsk(nil, []string{"hello?"}) }); err == nil {
		t.Error("expected ask with an unknown conversation to fail")
	}
}

func TestAskCommandUnknownVersion(t *testing.T) {
	setupCmdTest(t)
	resetFlags()

	askVersion = "9.9"
	_, err := captureOutput(t, func() error { return runAsk(nil, []string{"anyone?"}) })
	if !errors.Is(err, version.ErrNoSnapshot) {
		t.Errorf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestSearchCommand(t *testing.T) {
	_, corpus := setupCmdTest(t)
	resetFlags()
	initVersion(t, "1.0", corpus.Path)

	searchK = 1
	searchJSON = true
	out, err := captureOutput(t, func() error { return runSearch(nil, []string{"bananas"}) })
	if err != nil {
		t.Fatalf("search command failed: %v", err)
	}

	var passages []models.Passage
	if err := json.Unmarshal([]byte(out), &passages); err != nil {
		t.Fatalf("failed to parse search output: %v\n%s", err, out)
	}
	if len(passages) != 1 || passages[0].Source != filepath.Join(corpus.Path, "b.txt") {
		t.Errorf("unexpected passages: %+v", passages)
	}
}

func TestStatsCommand(t *testing.T) {
	_, corpus := setupCmdTest(t)
	resetFlags()
	initVersion(t, "1.0", corpus.Path)
	initVersion(t, "2.0", corpus.Path)

	corpus.Touch("a.txt")
	if _, err := captureOutput(t, func() error { return runUpdate(nil, []string{"1.0"}) }); err != nil {
		t.Fatalf("update command failed: %v", err)
	}

	statsJSON = true
	out, err := captureOutput(t, func() error { return runStats(nil, nil) })
	if err != nil {
		t.Fatalf("stats command failed: %v", err)
	}

	var stats dataStats
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("failed to parse stats output: %v\n%s", err, out)
	}
	if stats.TotalVersions != 2 || stats.TotalSnapshots != 3 {
		t.Errorf("expected 2 versions and 3 snapshots, got %+v", stats)
	}
	if stats.Versions[0].Version != "1.0" || stats.Versions[0].Snapshots != 2 {
		t.Errorf("unexpected stats for 1.0: %+v", stats.Versions[0])
	}
}

func TestSetupCommand(t *testing.T) {
	setupCmdTest(t)
	resetFlags()

	origCfgFile := cfgFile
	cfgFile = filepath.Join(t.TempDir(), "docchat", "config.toml")
	defer func() { cfgFile = origCfgFile }()

	if _, err := captureOutput(t, func() error { return runSetup(nil, nil) }); err != nil {
		t.Fatalf("setup command failed: %v", err)
	}

	var written config.Config
	if _, err := toml.DecodeFile(cfgFile, &written); err != nil {
		t.Fatalf("failed to decode written config: %v", err)
	}
	if written != config.Default() {
		t.Errorf("written config differs from defaults: %+v", written)
	}

	// an existing file is kept without --force
	if err := os.WriteFile(cfgFile, []byte("data_dir = \"/custom\"\n"), 0644); err != nil {
		t.Fatalf("failed to modify config: %v", err)
	}
	if _, err := captureOutput(t, func() error { return runSetup(nil, nil) }); err != nil {
		t.Fatalf("setup command failed: %v", err)
	}
	content, _ := os.ReadFile(cfgFile)
	if !strings.Contains(string(content), "/custom") {
		t.Error("existing config was overwritten")
	}

	setupPrint = true
	out, err := captureOutput(t, func() error { return runSetup(nil, nil) })
	if err != nil {
		t.Fatalf("setup --print failed: %v", err)
	}
	if !strings.Contains(out, "search_type: mmr") || !strings.Contains(out, "default_version: \"1.0\"") {
		t.Errorf("unexpected YAML output: %s", out)
	}
}
