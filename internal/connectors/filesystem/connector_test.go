package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexroute/internal/core/domain"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNew(t *testing.T) {
	connector := New("/tmp/cases")
	require.NotNil(t, connector)
	assert.Equal(t, "/tmp/cases", connector.Root())
}

func TestConnector_Discover(t *testing.T) {
	t.Run("recursive sorted and hidden skipped", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "b.txt"), "b")
		writeFile(t, filepath.Join(root, "a.pdf"), "%PDF")
		writeFile(t, filepath.Join(root, "2019", "smith.md"), "smith")
		writeFile(t, filepath.Join(root, ".hidden.txt"), "hidden")
		writeFile(t, filepath.Join(root, ".git", "config"), "x")
		writeFile(t, filepath.Join(root, "notes.docx"), "x")

		sources, err := New(root).Discover(context.Background())
		require.NoError(t, err)

		ids := make([]string, len(sources))
		for i, s := range sources {
			ids[i] = s.ID
		}
		assert.Equal(t, []string{"2019/smith.md", "a.pdf", "b.txt", "notes.docx"}, ids)

		assert.Equal(t, domain.MediaTypeText, sources[0].MediaType)
		assert.Equal(t, domain.MediaTypePDF, sources[1].MediaType)
		assert.Equal(t, domain.MediaType(""), sources[3].MediaType)
		assert.True(t, filepath.IsAbs(sources[0].Path))
	})

	t.Run("missing root is created", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "data", "casedocs")

		sources, err := New(root).Discover(context.Background())
		require.NoError(t, err)
		assert.Empty(t, sources)
		assert.DirExists(t, root)
	})

	t.Run("root is a file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file.txt")
		writeFile(t, file, "x")

		_, err := New(file).Discover(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "root path error")
	})

	t.Run("cancelled context", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "a.txt"), "a")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := New(root).Discover(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestConnector_Watch(t *testing.T) {
	t.Run("detects file creation", func(t *testing.T) {
		root := t.TempDir()
		connector := New(root)
		defer connector.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		changes, err := connector.Watch(ctx)
		require.NoError(t, err)

		go func() {
			time.Sleep(50 * time.Millisecond)
			os.WriteFile(filepath.Join(root, "new-case.txt"), []byte("content"), 0o644)
		}()

		select {
		case change := <-changes:
			assert.Contains(t, []ChangeType{ChangeCreated, ChangeUpdated}, change.Type)
			assert.Equal(t, "new-case.txt", change.Source.ID)
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for file change event")
		}
	})

	t.Run("detects file deletion", func(t *testing.T) {
		root := t.TempDir()
		file := filepath.Join(root, "to-delete.txt")
		writeFile(t, file, "delete me")

		connector := New(root)
		defer connector.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		changes, err := connector.Watch(ctx)
		require.NoError(t, err)

		go func() {
			time.Sleep(50 * time.Millisecond)
			os.Remove(file)
		}()

		select {
		case change := <-changes:
			assert.Equal(t, ChangeDeleted, change.Type)
			assert.Equal(t, "to-delete.txt", change.Source.ID)
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for file deletion event")
		}
	})

	t.Run("returns error for non-existent directory", func(t *testing.T) {
		changes, err := New("/non/existent/path").Watch(context.Background())
		assert.Error(t, err)
		assert.Nil(t, changes)
		assert.Contains(t, err.Error(), "root path error")
	})

	t.Run("closes channel when context is cancelled", func(t *testing.T) {
		connector := New(t.TempDir())
		defer connector.Close()

		ctx, cancel := context.WithCancel(context.Background())
		changes, err := connector.Watch(ctx)
		require.NoError(t, err)

		cancel()

		select {
		case _, ok := <-changes:
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("channel did not close after context cancellation")
		}
	})

	t.Run("returns error when connector is closed", func(t *testing.T) {
		connector := New(t.TempDir())
		require.NoError(t, connector.Close())

		changes, err := connector.Watch(context.Background())
		assert.ErrorIs(t, err, ErrConnectorClosed)
		assert.Nil(t, changes)
	})
}

// TestIsHidden tests the isHidden function with various path scenarios.
func TestIsHidden(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{".hidden", true},
		{"path/to/.hidden", true},
		{"dir/.git/config", true},
		{"/a/.b/.c/file", true},
		{"file.txt", false},
		{"path/to/file.txt", false},
		{".", false},
		{"..", false},
		{"path/../file", false},
		{"", false},
		{"file.hidden", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, isHidden(tt.path))
		})
	}
}

// TestHandleFsEvent tests the handleFsEvent function with various event types.
func TestHandleFsEvent(t *testing.T) {
	tests := []struct {
		name           string
		setupFile      bool
		setupDir       bool
		setupHidden    bool
		operation      fsnotify.Op
		expectedChange bool
		expectedType   ChangeType
	}{
		{name: "create file event", setupFile: true, operation: fsnotify.Create, expectedChange: true, expectedType: ChangeCreated},
		{name: "write file event", setupFile: true, operation: fsnotify.Write, expectedChange: true, expectedType: ChangeUpdated},
		{name: "remove file event", operation: fsnotify.Remove, expectedChange: true, expectedType: ChangeDeleted},
		{name: "rename file event", operation: fsnotify.Rename, expectedChange: true, expectedType: ChangeDeleted},
		{name: "chmod file event - not handled", setupFile: true, operation: fsnotify.Chmod},
		{name: "create directory event - skipped", setupDir: true, operation: fsnotify.Create},
		{name: "hidden file create - skipped", setupHidden: true, operation: fsnotify.Create},
		{name: "hidden file remove - skipped", setupHidden: true, operation: fsnotify.Remove},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()

			var eventPath string
			switch {
			case tt.setupDir:
				eventPath = filepath.Join(root, "testdir")
				require.NoError(t, os.Mkdir(eventPath, 0o755))
			case tt.setupHidden:
				eventPath = filepath.Join(root, ".hidden.txt")
				if tt.operation != fsnotify.Remove {
					writeFile(t, eventPath, "hidden")
				}
			case tt.setupFile:
				eventPath = filepath.Join(root, "test.txt")
				writeFile(t, eventPath, "content")
			default:
				eventPath = filepath.Join(root, "removed.txt")
			}

			change := New(root).handleFsEvent(fsnotify.Event{Name: eventPath, Op: tt.operation})

			if !tt.expectedChange {
				assert.Nil(t, change, "expected no change but got one")
				return
			}
			require.NotNil(t, change, "expected change but got nil")
			assert.Equal(t, tt.expectedType, change.Type)
			assert.Equal(t, eventPath, change.Source.Path)
			assert.Equal(t, filepath.Base(eventPath), change.Source.ID)
			assert.Equal(t, domain.MediaTypeText, change.Source.MediaType)
		})
	}

	t.Run("combined operations", func(t *testing.T) {
		root := t.TempDir()
		file := filepath.Join(root, "test.txt")
		writeFile(t, file, "content")

		change := New(root).handleFsEvent(fsnotify.Event{Name: file, Op: fsnotify.Write | fsnotify.Chmod})
		require.NotNil(t, change)
		assert.Equal(t, ChangeUpdated, change.Type)
	})

	t.Run("path outside root", func(t *testing.T) {
		change := New(t.TempDir()).handleFsEvent(fsnotify.Event{Name: "/etc/hosts", Op: fsnotify.Write})
		assert.Nil(t, change)
	})
}
