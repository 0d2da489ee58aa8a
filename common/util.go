// Package common holds small utilities shared across packages: the
// log-directory writability check log.Setup runs before handing a
// directory to the rotating file sink, the JSON pretty-printing helper
// vm.DumpDebugState relies on, and the deep-copy helper the interpreter's
// result snapshots rely on.
package common

import (
	"fmt"
	"os"

	"github.com/mohae/deepcopy"
	"github.com/tidwall/pretty"
)

// IsDirWritable checks that dirPath exists, is a directory, and is
// writable, by attempting to create and remove a temp file in it. Used
// by log.Setup before handing a directory to the rotating file sink.
func IsDirWritable(dirPath string) error {
	info, err := os.Stat(dirPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("directory does not exist: %s", dirPath)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dirPath)
	}

	tempFile, err := os.CreateTemp(dirPath, "test-write-*.tmp")
	if err != nil {
		return fmt.Errorf("write permission denied for directory: %s", dirPath)
	}
	fileName := tempFile.Name()
	tempFile.Close()

	if err := os.Remove(fileName); err != nil {
		return fmt.Errorf("failed to remove temporary file: %s", err)
	}
	return nil
}

// PrettyJSON reformats compact JSON for human-readable logging, using
// tidwall/pretty so vm.DumpDebugState never hand-rolls an indenter.
func PrettyJSON(in []byte) []byte {
	return pretty.Pretty(in)
}

// UglyJSON strips pretty.Pretty's formatting back to compact JSON.
func UglyJSON(in []byte) []byte {
	return pretty.Ugly(in)
}

// DeepCopySnapshot returns a deep copy of v via mohae/deepcopy, used
// by the interpreter so the classical-memory map in a Result is
// insulated from later in-place mutation.
func DeepCopySnapshot(v interface{}) interface{} {
	return deepcopy.Copy(v)
}
