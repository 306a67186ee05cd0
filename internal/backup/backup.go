// Package backup keeps a byte-for-byte copy of a file for the duration of a
// mutation and puts it back if the mutation fails.
package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/actimeta/pkg/types"
)

// Handle owns the backup copy of one target file.
type Handle struct {
	target  string
	path    string
	mode    os.FileMode
	modTime time.Time
}

// Acquire copies target to a sibling path of the form
// <target>.<uuid>.bak, preserving mode and modification time.
func Acquire(target string) (*Handle, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, types.IOError.Wrap(fmt.Errorf("stat %s: %w", target, err))
	}
	if !info.Mode().IsRegular() {
		return nil, types.IOError.New("%s is not a regular file", target)
	}

	h := &Handle{
		target:  target,
		path:    fmt.Sprintf("%s.%s.bak", target, backupID()),
		mode:    info.Mode().Perm(),
		modTime: info.ModTime(),
	}
	if err := copyFile(target, h.path, h.mode, h.modTime); err != nil {
		_ = os.Remove(h.path)
		return nil, types.IOError.Wrap(fmt.Errorf("create backup: %w", err))
	}
	return h, nil
}

// Path returns the location of the backup copy.
func (h *Handle) Path() string { return h.path }

// Restore overwrites the target with the backup and then deletes the backup.
func (h *Handle) Restore() error {
	if err := copyFile(h.path, h.target, h.mode, h.modTime); err != nil {
		return types.IOError.Wrap(fmt.Errorf("restore %s from %s: %w", h.target, h.path, err))
	}
	return h.Discard()
}

// Discard deletes the backup. A backup that is already gone is not an error.
func (h *Handle) Discard() error {
	if err := os.Remove(h.path); err != nil && !os.IsNotExist(err) {
		return types.IOError.Wrap(fmt.Errorf("remove backup: %w", err))
	}
	return nil
}

// Guard runs functions inside a backup scope.
type Guard struct {
	log *zap.Logger
}

// NewGuard returns a Guard that logs to log. A nil logger discards output.
func NewGuard(log *zap.Logger) *Guard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{log: log}
}

// Run backs up target, calls fn, and then either discards the backup (fn
// succeeded) or restores target from it (fn returned an error or panicked).
// When Run returns, no backup file remains, and target is either what fn
// left or byte-identical to its state before the call.
func (g *Guard) Run(target string, fn func() error) (err error) {
	h, err := Acquire(target)
	if err != nil {
		return err
	}
	log := g.log.With(zap.String("file", target), zap.String("backup", h.path))
	log.Debug("backup created")

	defer func() {
		if r := recover(); r != nil {
			err = types.IOError.New("panic during mutation: %v", r)
		}
		if err != nil {
			if rerr := h.Restore(); rerr != nil {
				log.Error("restore failed", zap.Error(rerr))
				err = errs.Combine(err, rerr)
				return
			}
			log.Info("restored from backup", zap.Error(err))
			return
		}
		if derr := h.Discard(); derr != nil {
			log.Error("discard backup failed", zap.Error(derr))
			err = derr
			return
		}
		log.Debug("backup discarded")
	}()

	return fn()
}

func backupID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// copyFile writes src to dst through a temporary sibling of dst and renames
// it into place, so dst is never observed half-written.
func copyFile(src, dst string, mode os.FileMode, modTime time.Time) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { err = errs.Combine(err, in.Close()) }()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), mode); err != nil {
		return err
	}
	if err = os.Chtimes(tmp.Name(), modTime, modTime); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
