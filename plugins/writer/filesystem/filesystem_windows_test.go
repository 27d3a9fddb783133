//go:build windows

package filesystem

import (
	"testing"

	"shiftcrack/pkg/contract"
)

func TestMapPathInvalidWindows(t *testing.T) {
	w, _ := New(&Options{OutputDir: t.TempDir(), Flat: boolp(false)})
	for _, id := range []string{`C:\abs`, "..", "."} {
		if _, err := w.mapPath(contract.ArtifactID(id)); err != contract.ErrPathInvalid {
			t.Fatalf("id %s expect invalid", id)
		}
	}
}
