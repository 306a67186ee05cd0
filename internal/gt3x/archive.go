// Package gt3x rewrites the archive-backed recording container. Only the
// info.txt entry is ever changed; every other entry, in particular the
// binary sensor log, is extracted and re-added with identical content.
package gt3x

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/zeebo/errs"

	"github.com/mesh-intelligence/actimeta/pkg/types"
)

// Fixed entry names.
const (
	InfoEntry = "info.txt"
	LogEntry  = "log.bin"
)

// compressionLevel is fixed so repeated repacks produce identical bytes.
const compressionLevel = 6

// ReadEntry returns the decompressed content of one archive entry.
func ReadEntry(path, name string) (data []byte, err error) {
	r, err := openArchive(path)
	if err != nil {
		return nil, err
	}
	defer func() { err = errs.Combine(err, r.Close()) }()

	f := find(&r.Reader, name)
	if f == nil {
		if name == InfoEntry {
			return nil, types.ContainerFormatError.Wrap(types.ErrInfoEntryMissing)
		}
		return nil, types.ContainerFormatError.New("entry %s not found", name)
	}
	return readFile(f)
}

// Entries lists the entry names in archive order.
func Entries(path string) (names []string, err error) {
	r, err := openArchive(path)
	if err != nil {
		return nil, err
	}
	defer func() { err = errs.Combine(err, r.Close()) }()
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names, nil
}

// EditFunc receives the current content of an entry and returns its
// replacement.
type EditFunc func([]byte) ([]byte, error)

// Rewrite extracts the archive at path into a scratch directory, replaces
// the content of entry with edit's result, and rebuilds the archive from the
// scratch directory in the original entry order. The new archive is written
// to a temporary sibling and renamed over path. A missing entry fails before
// anything is written.
func Rewrite(path, entry string, edit EditFunc) (err error) {
	r, err := openArchive(path)
	if err != nil {
		return err
	}
	if find(&r.Reader, entry) == nil {
		_ = r.Close()
		if entry == InfoEntry {
			return types.ContainerFormatError.Wrap(types.ErrInfoEntryMissing)
		}
		return types.ContainerFormatError.New("entry %s not found", entry)
	}

	scratch, err := os.MkdirTemp("", "actimeta-gt3x-*")
	if err != nil {
		_ = r.Close()
		return types.IOError.Wrap(fmt.Errorf("create scratch dir: %w", err))
	}
	defer os.RemoveAll(scratch)

	manifest, err := extract(&r.Reader, scratch)
	if cerr := r.Close(); err == nil && cerr != nil {
		err = types.IOError.Wrap(cerr)
	}
	if err != nil {
		return err
	}

	target := filepath.Join(scratch, filepath.FromSlash(entry))
	content, err := os.ReadFile(target)
	if err != nil {
		return types.IOError.Wrap(fmt.Errorf("read extracted %s: %w", entry, err))
	}
	updated, err := edit(content)
	if err != nil {
		return err
	}
	if err := os.WriteFile(target, updated, 0o600); err != nil {
		return types.IOError.Wrap(fmt.Errorf("write extracted %s: %w", entry, err))
	}

	return repack(path, scratch, manifest)
}

// member is the header data carried from the original archive into the
// rebuilt one.
type member struct {
	header zip.FileHeader
	dir    bool
}

func extract(r *zip.Reader, scratch string) ([]member, error) {
	manifest := make([]member, 0, len(r.File))
	for _, f := range r.File {
		if !filepath.IsLocal(filepath.FromSlash(f.Name)) {
			return nil, types.ContainerFormatError.Wrap(fmt.Errorf("%w: %q", types.ErrUnsafeEntryName, f.Name))
		}
		dst := filepath.Join(scratch, filepath.FromSlash(f.Name))
		m := member{header: carryHeader(f.FileHeader), dir: f.FileInfo().IsDir()}
		manifest = append(manifest, m)

		if m.dir {
			if err := os.MkdirAll(dst, 0o700); err != nil {
				return nil, types.IOError.Wrap(err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o700); err != nil {
			return nil, types.IOError.Wrap(err)
		}
		if err := extractFile(f, dst); err != nil {
			return nil, err
		}
	}
	return manifest, nil
}

func extractFile(f *zip.File, dst string) (err error) {
	rc, err := f.Open()
	if err != nil {
		return types.ContainerFormatError.Wrap(fmt.Errorf("open entry %s: %w", f.Name, err))
	}
	defer func() { err = errs.Combine(err, rc.Close()) }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return types.IOError.Wrap(fmt.Errorf("extract %s: %w", f.Name, err))
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		// A checksum mismatch surfaces here.
		return types.ContainerFormatError.Wrap(fmt.Errorf("decompress %s: %w", f.Name, err))
	}
	if err := out.Close(); err != nil {
		return types.IOError.Wrap(err)
	}
	return nil
}

// carryHeader keeps the fields that describe an entry and drops the ones
// the writer recomputes (sizes, CRC, extra fields, flags).
func carryHeader(h zip.FileHeader) zip.FileHeader {
	method := h.Method
	if method != zip.Store {
		method = zip.Deflate
	}
	return zip.FileHeader{
		Name:           h.Name,
		Comment:        h.Comment,
		Method:         method,
		Modified:       h.Modified,
		CreatorVersion: h.CreatorVersion,
		ExternalAttrs:  h.ExternalAttrs,
	}
}

func repack(path, scratch string, manifest []member) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".repack-*")
	if err != nil {
		return types.IOError.Wrap(fmt.Errorf("create repack file: %w", err))
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	zw := zip.NewWriter(tmp)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, compressionLevel)
	})

	for _, m := range manifest {
		h := m.header
		if m.dir {
			h.Method = zip.Store
			if _, err := zw.CreateHeader(&h); err != nil {
				return types.IOError.Wrap(err)
			}
			continue
		}
		if err := addFile(zw, &h, filepath.Join(scratch, filepath.FromSlash(h.Name))); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return types.IOError.Wrap(fmt.Errorf("finish archive: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return types.IOError.Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		return types.IOError.Wrap(err)
	}
	if info, serr := os.Stat(path); serr == nil {
		_ = os.Chmod(tmp.Name(), info.Mode().Perm())
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return types.IOError.Wrap(fmt.Errorf("replace archive: %w", err))
	}
	return nil
}

func addFile(zw *zip.Writer, h *zip.FileHeader, src string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return types.IOError.Wrap(fmt.Errorf("open extracted %s: %w", h.Name, err))
	}
	defer func() { err = errs.Combine(err, in.Close()) }()

	w, err := zw.CreateHeader(h)
	if err != nil {
		return types.IOError.Wrap(fmt.Errorf("add %s: %w", h.Name, err))
	}
	if _, err := io.Copy(w, in); err != nil {
		return types.IOError.Wrap(fmt.Errorf("compress %s: %w", h.Name, err))
	}
	return nil
}

func openArchive(path string) (*zip.ReadCloser, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, types.IOError.Wrap(fmt.Errorf("stat %s: %w", path, err))
	}
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, types.ContainerFormatError.Wrap(fmt.Errorf("open archive %s: %w", path, err))
	}
	return r, nil
}

func find(r *zip.Reader, name string) *zip.File {
	for _, f := range r.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func readFile(f *zip.File) (data []byte, err error) {
	rc, err := f.Open()
	if err != nil {
		return nil, types.ContainerFormatError.Wrap(fmt.Errorf("open entry %s: %w", f.Name, err))
	}
	defer func() { err = errs.Combine(err, rc.Close()) }()
	data, err = io.ReadAll(rc)
	if err != nil {
		return nil, types.ContainerFormatError.Wrap(fmt.Errorf("read entry %s: %w", f.Name, err))
	}
	return data, nil
}
