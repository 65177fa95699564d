package service

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bridgeus/app/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCommand executes the root command with args, feeding stdin to prompts.
func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// setupTestDB points the store commands at a fresh directory.
func setupTestDB(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	t.Setenv("BRIDGEUS_STORE_PATH", dbPath)
	return dbPath
}

func countPosts(t *testing.T, dbPath string) int {
	t.Helper()
	db, err := repositories.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()
	n, err := repositories.NewBadgerPostStore(db).Len(context.Background())
	require.NoError(t, err)
	return n
}

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name           string
		args           []string
		expectedOutput string
		expectError    bool
	}{
		{
			name:           "help",
			args:           []string{"--help"},
			expectedOutput: "Available Commands:",
		},
		{
			name:           "version",
			args:           []string{"version"},
			expectedOutput: "bridgeus version " + Version,
		},
		{
			name:        "unknown command",
			args:        []string{"unknown"},
			expectError: true,
		},
		{
			name:           "config print",
			args:           []string{"config", "print"},
			expectedOutput: "page_size = 8",
		},
		{
			name:        "missing config file",
			args:        []string{"--config", "/nonexistent/bridgeus.toml", "config", "print"},
			expectError: true,
		},
		{
			name:        "restore needs a file",
			args:        []string{"store", "restore"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := runCommand(t, "", tt.args...)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, output, tt.expectedOutput)
		})
	}
}

func TestFeedCommand(t *testing.T) {
	t.Setenv("BRIDGEUS_STORE_BACKEND", "memory")

	t.Run("first page", func(t *testing.T) {
		output, err := runCommand(t, "", "feed")
		require.NoError(t, err)
		assert.Contains(t, output, "ID")
		assert.Contains(t, output, "showing 8 of 8 posts (category=all, sort=newest, has more: true)")
	})

	t.Run("endless pages", func(t *testing.T) {
		output, err := runCommand(t, "", "feed", "--pages", "2", "--sort", "helpful")
		require.NoError(t, err)
		assert.Contains(t, output, "post-16")
		assert.Contains(t, output, "showing 16 of 16 posts (category=all, sort=helpful, has more: true)")
	})

	t.Run("filtered", func(t *testing.T) {
		output, err := runCommand(t, "", "feed", "--category", "housing")
		require.NoError(t, err)
		assert.Contains(t, output, "category=housing")
	})
}

func TestClean(t *testing.T) {
	dbPath := setupTestDB(t)

	t.Run("clean non-existent database", func(t *testing.T) {
		output, err := runCommand(t, "", "store", "clean")
		require.NoError(t, err)
		assert.Contains(t, output, "Database is already clean")
	})

	t.Run("clean existing database - confirmed", func(t *testing.T) {
		_, err := runCommand(t, "", "store", "init")
		require.NoError(t, err)
		assert.DirExists(t, dbPath)

		output, err := runCommand(t, "y\n", "store", "clean")
		require.NoError(t, err)
		assert.Contains(t, output, "Database cleaned successfully")
		assert.NoDirExists(t, dbPath)
	})

	t.Run("clean existing database - cancelled", func(t *testing.T) {
		_, err := runCommand(t, "", "store", "init")
		require.NoError(t, err)

		output, err := runCommand(t, "n\n", "store", "clean")
		require.NoError(t, err)
		assert.Contains(t, output, "Operation cancelled")
		assert.DirExists(t, dbPath)
	})

	t.Run("clean with --yes skips the prompt", func(t *testing.T) {
		output, err := runCommand(t, "", "store", "clean", "--yes")
		require.NoError(t, err)
		assert.NotContains(t, output, "[y/N]")
		assert.NoDirExists(t, dbPath)
	})
}

func TestInitDb(t *testing.T) {
	dbPath := setupTestDB(t)

	t.Run("init new database", func(t *testing.T) {
		output, err := runCommand(t, "", "store", "init")
		require.NoError(t, err)
		assert.Contains(t, output, "Database initialized successfully with 8 posts")
		assert.Equal(t, 8, countPosts(t, dbPath))
	})

	t.Run("init existing database", func(t *testing.T) {
		output, err := runCommand(t, "", "store", "init")
		require.NoError(t, err)
		assert.Contains(t, output, "Database already exists")
	})
}

func TestBackup(t *testing.T) {
	setupTestDB(t)
	backupDir := t.TempDir()

	t.Run("backup non-existent database", func(t *testing.T) {
		output, err := runCommand(t, "", "store", "backup", backupDir)
		require.NoError(t, err)
		assert.Contains(t, output, "No database exists to backup")
	})

	t.Run("backup existing database", func(t *testing.T) {
		_, err := runCommand(t, "", "store", "init")
		require.NoError(t, err)

		output, err := runCommand(t, "", "store", "backup", backupDir)
		require.NoError(t, err)
		assert.Contains(t, output, "Database backed up successfully")

		entries, err := os.ReadDir(backupDir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.True(t, strings.HasPrefix(entries[0].Name(), "backup_"))
	})
}

func TestRestore(t *testing.T) {
	dbPath := setupTestDB(t)
	tmpDir := t.TempDir()

	_, err := runCommand(t, "", "store", "init")
	require.NoError(t, err)
	var out bytes.Buffer
	backupFile, err := backup(&out, dbPath, tmpDir)
	require.NoError(t, err)

	t.Run("restore non-existent backup", func(t *testing.T) {
		_, err := runCommand(t, "", "store", "restore", filepath.Join(tmpDir, "nonexistent.db"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "backup file does not exist")
	})

	t.Run("restore empty backup", func(t *testing.T) {
		empty := filepath.Join(tmpDir, "empty.db")
		require.NoError(t, os.WriteFile(empty, nil, 0644))

		_, err := runCommand(t, "", "store", "restore", empty)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "backup file is empty")
	})

	t.Run("restore with existing database - cancelled", func(t *testing.T) {
		output, err := runCommand(t, "n\n", "store", "restore", backupFile)
		require.NoError(t, err)
		assert.Contains(t, output, "Operation cancelled")
	})

	t.Run("restore with existing database - confirmed", func(t *testing.T) {
		output, err := runCommand(t, "y\n", "store", "restore", backupFile)
		require.NoError(t, err)
		assert.Contains(t, output, "Database restored successfully")
		assert.Equal(t, 8, countPosts(t, dbPath))
	})

	t.Run("restore to clean state", func(t *testing.T) {
		_, err := runCommand(t, "", "store", "clean", "--yes")
		require.NoError(t, err)

		output, err := runCommand(t, "", "store", "restore", backupFile)
		require.NoError(t, err)
		assert.Contains(t, output, "Database restored successfully")
		assert.Equal(t, 8, countPosts(t, dbPath))
	})
}
