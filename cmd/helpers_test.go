package cmd

import (
	"bytes"
	"io"
	"os"
	"testing"
	"time"

	"github.com/pders01/docchat/internal/config"
	"github.com/pders01/docchat/internal/testutil"
	"github.com/spf13/viper"
)

// setupCmdTest points the commands at a fresh data directory and fake
// model backend, and returns a corpus with two files
func setupCmdTest(t *testing.T) (dataDir string, corpus *testutil.TempCorpus) {
	t.Helper()

	dataDir = t.TempDir()
	viper.Set("data_dir", dataDir)
	viper.Set("log.level", "error")
	viper.Set("default_version", "1.0")

	origBackend, origNow := openBackend, now
	openBackend = func(config.Config) (backend, error) {
		return backend{embedder: &testutil.Embedder{}, llm: &testutil.LLM{}, embedModel: "letters"}, nil
	}
	now = testutil.Clock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	t.Cleanup(func() {
		openBackend, now = origBackend, origNow
	})

	corpus = testutil.NewTempCorpus(t)
	corpus.CreateFile("a.txt", "apples are red")
	corpus.CreateFile("b.txt", "bananas are yellow")
	return dataDir, corpus
}

// captureOutput runs fn with stdout redirected and returns what it printed
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	orig := os.Stdout
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		io.Copy(&buf, r)
		done <- buf.String()
	}()

	runErr := fn()
	w.Close()
	os.Stdout = orig
	return <-done, runErr
}
