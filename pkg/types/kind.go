package types

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ContainerKind identifies one of the two on-disk recording formats.
type ContainerKind string

// Container kinds.
const (
	KindAGD  ContainerKind = "agd"  // SQLite database with a settings table
	KindGT3X ContainerKind = "gt3x" // zip archive with info.txt and log.bin
)

// KindFromPath infers the container kind from the file extension.
// Returns a ContainerFormatError wrapping ErrUnknownKind for anything else.
func KindFromPath(path string) (ContainerKind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".agd":
		return KindAGD, nil
	case ".gt3x":
		return KindGT3X, nil
	}
	return "", ContainerFormatError.Wrap(fmt.Errorf("%w: %s", ErrUnknownKind, path))
}
