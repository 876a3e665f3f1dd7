package updater

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckWritable(t *testing.T) {
	dir := t.TempDir()
	if reason := checkWritable(dir); reason != "" {
		t.Errorf("checkWritable(%s) = %q, want empty", dir, reason)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("probe file left behind: %v", entries)
	}

	missing := filepath.Join(dir, "missing")
	if reason := checkWritable(missing); !strings.Contains(reason, "no write permission") {
		t.Errorf("checkWritable(missing) = %q", reason)
	}
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "rgbnode")
	dst := filepath.Join(dir, "rgbnode.backup")

	if err := os.WriteFile(src, []byte("binary v1"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("stale backup that is longer"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := copyFile(src, dst); err != nil {
		t.Fatalf("copyFile() error = %v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "binary v1" {
		t.Errorf("backup = %q, want %q", data, "binary v1")
	}

	if err := copyFile(filepath.Join(dir, "nope"), dst); err == nil {
		t.Error("expected error for missing source")
	}
}

func TestDisabledUpdater(t *testing.T) {
	u := &Updater{disabledReason: "read-only filesystem"}

	if u.Enabled() {
		t.Fatal("Enabled() = true")
	}

	for name, op := range map[string]func(context.Context) (*Info, error){
		"check": u.Check,
		"apply": u.Apply,
	} {
		_, err := op(context.Background())
		var updateErr *Error
		if !errors.As(err, &updateErr) || updateErr.Code != ErrCodeDisabled {
			t.Errorf("%s error = %v, want %s", name, err, ErrCodeDisabled)
		}
	}
}

func TestBusyUpdater(t *testing.T) {
	u := &Updater{}
	u.busy.Lock()
	defer u.busy.Unlock()

	_, err := u.Check(context.Background())
	var updateErr *Error
	if !errors.As(err, &updateErr) || updateErr.Code != ErrCodeBusy {
		t.Errorf("Check() error = %v, want %s", err, ErrCodeBusy)
	}
}

func TestErrorFormatting(t *testing.T) {
	cause := errors.New("rate limited")
	err := newError(ErrCodeCheckFailed, "failed to query releases", cause)

	if got := err.Error(); got != "CHECK_FAILED: failed to query releases: rate limited" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	if got := newError(ErrCodeNoUpdate, "already current", nil).Error(); got != "NO_UPDATE: already current" {
		t.Errorf("Error() = %q", got)
	}
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("apply: %w", newError(ErrCodeBackup, "failed to back up", nil))

	tests := []struct {
		err  error
		want Code
	}{
		{newError(ErrCodeBusy, "busy", nil), ErrCodeBusy},
		{wrapped, ErrCodeBackup},
		{errors.New("plain"), ""},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := CodeOf(tt.err); got != tt.want {
			t.Errorf("CodeOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
