package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/mlplayground/internal/grid"
	"github.com/cwbudde/mlplayground/internal/search"
	"github.com/cwbudde/mlplayground/internal/store"
	"github.com/spf13/cobra"
)

// testCheckpoint is a tabu search that reached the 2 in the corner of a 2x3 grid.
func testCheckpoint(t *testing.T, jobID string) *store.Checkpoint {
	t.Helper()
	g, err := grid.FromRows([][]int{{9, 7, 4}, {8, 6, 2}})
	if err != nil {
		t.Fatalf("Failed to build grid: %v", err)
	}
	ev := search.Event{
		Iteration: 10,
		Phase:     search.PhaseMove,
		Current:   grid.Cell{Row: 1, Col: 2},
		Best:      grid.Cell{Row: 1, Col: 2},
		Value:     2,
		BestValue: 2,
	}
	config := store.JobConfig{Config: search.DefaultConfig(search.AlgTabu), Seed: 7}
	return store.NewCheckpoint(jobID, g, grid.Cell{}, ev, config)
}

func TestSelectCheckpointsForDeletion_ByAge(t *testing.T) {
	now := time.Now()
	infos := []store.CheckpointInfo{
		{JobID: "job1", Timestamp: now.AddDate(0, 0, -10)},  // 10 days old
		{JobID: "job2", Timestamp: now.AddDate(0, 0, -5)},   // 5 days old
		{JobID: "job3", Timestamp: now.AddDate(0, 0, -1)},   // 1 day old
		{JobID: "job4", Timestamp: now.AddDate(0, 0, -30)},  // 30 days old
	}

	// Delete checkpoints older than 7 days
	toDelete := selectCheckpointsForDeletion(infos, 0, 7)

	if len(toDelete) != 2 {
		t.Errorf("Expected 2 checkpoints to delete, got %d", len(toDelete))
	}

	// Verify correct checkpoints selected
	found10 := false
	found30 := false
	for _, info := range toDelete {
		if info.JobID == "job1" {
			found10 = true
		}
		if info.JobID == "job4" {
			found30 = true
		}
	}

	if !found10 || !found30 {
		t.Error("Expected job1 and job4 to be selected for deletion")
	}
}

func TestSelectCheckpointsForDeletion_ByCount(t *testing.T) {
	now := time.Now()
	infos := []store.CheckpointInfo{
		{JobID: "job1", Timestamp: now.AddDate(0, 0, -10)},
		{JobID: "job2", Timestamp: now.AddDate(0, 0, -5)},
		{JobID: "job3", Timestamp: now.AddDate(0, 0, -1)},
		{JobID: "job4", Timestamp: now.AddDate(0, 0, -30)},
	}

	// Keep only last 2 checkpoints
	toDelete := selectCheckpointsForDeletion(infos, 2, 0)

	if len(toDelete) != 2 {
		t.Errorf("Expected 2 checkpoints to delete, got %d", len(toDelete))
	}

	// Should delete oldest two (job4 and job1)
	found30 := false
	found10 := false
	for _, info := range toDelete {
		if info.JobID == "job4" {
			found30 = true
		}
		if info.JobID == "job1" {
			found10 = true
		}
	}

	if !found30 || !found10 {
		t.Error("Expected job4 and job1 to be selected for deletion (oldest)")
	}
}

func TestSelectCheckpointsForDeletion_Combined(t *testing.T) {
	now := time.Now()
	infos := []store.CheckpointInfo{
		{JobID: "job1", Timestamp: now.AddDate(0, 0, -10)},
		{JobID: "job2", Timestamp: now.AddDate(0, 0, -5)},
		{JobID: "job3", Timestamp: now.AddDate(0, 0, -1)},
		{JobID: "job4", Timestamp: now.AddDate(0, 0, -30)},
		{JobID: "job5", Timestamp: now.AddDate(0, 0, -2)},
	}

	// Delete older than 7 days AND keep only last 3
	toDelete := selectCheckpointsForDeletion(infos, 3, 7)

	// job4 and job1 go by age; keeping the last 3 selects the same two,
	// which must not be listed twice
	if len(toDelete) != 2 {
		t.Errorf("Expected 2 checkpoints to delete, got %d", len(toDelete))
	}
	for _, info := range toDelete {
		if info.JobID != "job4" && info.JobID != "job1" {
			t.Errorf("Unexpected checkpoint selected: %s", info.JobID)
		}
	}
}

func TestSelectCheckpointsForDeletion_KeepMoreThanExist(t *testing.T) {
	now := time.Now()
	infos := []store.CheckpointInfo{
		{JobID: "job1", Timestamp: now.AddDate(0, 0, -2)},
		{JobID: "job2", Timestamp: now.AddDate(0, 0, -1)},
	}

	if toDelete := selectCheckpointsForDeletion(infos, 5, 0); len(toDelete) != 0 {
		t.Errorf("Expected nothing to delete, got %d", len(toDelete))
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID(abc) = %s", got)
	}
	if got := shortID("0123456789abcdef"); got != "0123456789ab..." {
		t.Errorf("shortID truncated to %s", got)
	}
}

func TestGetDirSize(t *testing.T) {
	// Create temp directory with files
	tmpDir := t.TempDir()

	// Create a file
	testFile := filepath.Join(tmpDir, "test.txt")
	content := []byte("Hello, World!")
	if err := os.WriteFile(testFile, content, 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	// Get size
	size, err := getDirSize(tmpDir)
	if err != nil {
		t.Fatalf("getDirSize failed: %v", err)
	}

	if size < int64(len(content)) {
		t.Errorf("Expected size >= %d, got %d", len(content), size)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
	}

	for _, tt := range tests {
		result := formatBytes(tt.bytes)
		if result != tt.expected {
			t.Errorf("formatBytes(%d) = %s, expected %s", tt.bytes, result, tt.expected)
		}
	}
}

// runCheckpointCommand runs a checkpoints handler against dataDir with the
// given stdin and returns its output.
func runCheckpointCommand(t *testing.T, dataDir, stdin string, run func(*cobra.Command, []string) error, args ...string) (string, error) {
	t.Helper()

	originalDataDir := checkpointDataDir
	checkpointDataDir = dataDir
	t.Cleanup(func() { checkpointDataDir = originalDataDir })

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(stdin))
	err := run(cmd, args)
	return out.String(), err
}

// saveCheckpoint stores a test checkpoint saved daysAgo days ago.
func saveCheckpoint(t *testing.T, checkpointStore *store.FSStore, jobID string, daysAgo int) {
	t.Helper()
	checkpoint := testCheckpoint(t, jobID)
	checkpoint.Timestamp = time.Now().AddDate(0, 0, -daysAgo)
	if err := checkpointStore.SaveCheckpoint(jobID, checkpoint); err != nil {
		t.Fatalf("Failed to save checkpoint: %v", err)
	}
}

func setCleanFlags(t *testing.T, keep, days int, force bool) {
	t.Helper()
	keepLast, olderThanDays, forceClean = keep, days, force
	t.Cleanup(func() {
		keepLast, olderThanDays, forceClean = 0, 0, false
	})
}

func TestCheckpointsListCommand_NoCheckpoints(t *testing.T) {
	out, err := runCheckpointCommand(t, t.TempDir(), "", runListCheckpoints)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if !strings.Contains(out, "No checkpoints found.") {
		t.Errorf("Unexpected output: %q", out)
	}
}

func TestCheckpointsListCommand_WithCheckpoints(t *testing.T) {
	tmpDir := t.TempDir()
	checkpointStore, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	saveCheckpoint(t, checkpointStore, "test-job-id", 0)

	out, err := runCheckpointCommand(t, tmpDir, "", runListCheckpoints)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	for _, want := range []string{"test-job-id", "tabu", "2x3", "Total checkpoints: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
}

func TestCheckpointsListCommand_JSON(t *testing.T) {
	tmpDir := t.TempDir()
	checkpointStore, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	saveCheckpoint(t, checkpointStore, "job-a", 0)

	jsonOutput = true
	defer func() { jsonOutput = false }()

	out, err := runCheckpointCommand(t, tmpDir, "", runListCheckpoints)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	var infos []store.CheckpointInfo
	if err := json.Unmarshal([]byte(out), &infos); err != nil {
		t.Fatalf("Failed to decode listing: %v", err)
	}
	if len(infos) != 1 || infos[0].JobID != "job-a" || infos[0].BestValue != 2 {
		t.Errorf("Unexpected listing: %+v", infos)
	}
}

func TestCheckpointsShowCommand(t *testing.T) {
	tmpDir := t.TempDir()
	checkpointStore, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	saveCheckpoint(t, checkpointStore, "job-a", 0)

	out, err := runCheckpointCommand(t, tmpDir, "", runShowCheckpoint, "job-a")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	for _, want := range []string{"Algorithm:  tabu", "Iteration:  10", "= 2", "9, 7, 4"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}

	if _, err := runCheckpointCommand(t, tmpDir, "", runShowCheckpoint, "missing"); err == nil {
		t.Error("Expected error for a missing checkpoint")
	}
}

func TestCheckpointsCleanCommand_NoFlags(t *testing.T) {
	setCleanFlags(t, 0, 0, false)

	// Should return error when no flags specified
	if _, err := runCheckpointCommand(t, t.TempDir(), "", runCleanCheckpoints); err == nil {
		t.Error("Expected error when no flags specified")
	}
}

func TestCheckpointsCleanCommand_WithForce(t *testing.T) {
	tmpDir := t.TempDir()
	checkpointStore, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	saveCheckpoint(t, checkpointStore, "old-job", 30)
	setCleanFlags(t, 0, 7, true)

	out, err := runCheckpointCommand(t, tmpDir, "", runCleanCheckpoints)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if !strings.Contains(out, "Deleted 1 checkpoint(s), 0 failed.") {
		t.Errorf("Unexpected output: %q", out)
	}
	if _, err := checkpointStore.LoadCheckpoint("old-job"); err == nil {
		t.Error("Expected checkpoint to be deleted")
	}
}

func TestCheckpointsCleanCommand_Confirmation(t *testing.T) {
	tmpDir := t.TempDir()
	checkpointStore, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	saveCheckpoint(t, checkpointStore, "old-job", 30)
	setCleanFlags(t, 0, 7, false)

	out, err := runCheckpointCommand(t, tmpDir, "n\n", runCleanCheckpoints)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(out, "Aborted.") {
		t.Errorf("Expected abort, got %q", out)
	}
	if _, err := checkpointStore.LoadCheckpoint("old-job"); err != nil {
		t.Fatalf("Checkpoint should survive an aborted clean: %v", err)
	}

	if _, err := runCheckpointCommand(t, tmpDir, "yes\n", runCleanCheckpoints); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := checkpointStore.LoadCheckpoint("old-job"); err == nil {
		t.Error("Expected checkpoint to be deleted after confirming")
	}
}

func TestCheckpointsCleanCommand_KeepsRecent(t *testing.T) {
	tmpDir := t.TempDir()
	checkpointStore, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	saveCheckpoint(t, checkpointStore, "recent-job", 0)
	setCleanFlags(t, 0, 7, true)

	out, err := runCheckpointCommand(t, tmpDir, "", runCleanCheckpoints)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if !strings.Contains(out, "No checkpoints match deletion criteria.") {
		t.Errorf("Unexpected output: %q", out)
	}
	if _, err := checkpointStore.LoadCheckpoint("recent-job"); err != nil {
		t.Errorf("Recent checkpoint should survive: %v", err)
	}
}
