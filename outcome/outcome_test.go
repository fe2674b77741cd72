package outcome

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveLabel(t *testing.T) {
	table := DefaultLabels()
	tests := []struct {
		code ClassCode
		want Label
	}{
		{0, "Anterior Wall MI"},
		{5, "NSTEMI/ACS"},
		{12, "Inferoposterior MI"},
		{99, Unknown},
		{-1, Unknown},
	}
	for _, tt := range tests {
		if got := ResolveLabel(tt.code, table); got != tt.want {
			t.Errorf("code %d: want %q got %q", tt.code, tt.want, got)
		}
	}
}

func TestResolveLabel_EmptyTable(t *testing.T) {
	if got := ResolveLabel(0, nil); got != Unknown {
		t.Fatalf("want Unknown got %q", got)
	}
}

func TestResolveAsset(t *testing.T) {
	table := DefaultAssets()

	ref, ok := ResolveAsset("STEMI", table)
	if !ok || ref != "Gemini_Generated_Image_STEMI.png" {
		t.Fatalf("STEMI: %q %v", ref, ok)
	}
	for _, l := range []Label{"Other", "Other Cardiac Issue", "Unmapped", Unknown} {
		if ref, ok := ResolveAsset(l, table); ok || ref != "" {
			t.Errorf("%s: expected no asset, got %q", l, ref)
		}
	}
}

func TestEveryLabelHasAssetEntry(t *testing.T) {
	assets := DefaultAssets()
	for _, l := range DefaultLabels().Labels() {
		if _, ok := assets[l]; !ok {
			t.Errorf("label %q missing from asset table", l)
		}
	}
}

func TestDefaultTablesAreFreshCopies(t *testing.T) {
	a := DefaultLabels()
	a[0] = "changed"
	if DefaultLabels()[0] != "Anterior Wall MI" {
		t.Fatal("label table shared between callers")
	}
	b := DefaultAssets()
	delete(b, "STEMI")
	if _, ok := DefaultAssets()["STEMI"]; !ok {
		t.Fatal("asset table shared between callers")
	}
}

func TestLabelsOrdered(t *testing.T) {
	ls := DefaultLabels().Labels()
	if len(ls) != 13 || ls[0] != "Anterior Wall MI" || ls[12] != "Inferoposterior MI" {
		t.Fatalf("unexpected order %v", ls)
	}
}

func TestLocate(t *testing.T) {
	dir := t.TempDir()
	name := "Gemini_Generated_Image_STEMI.png"
	if err := os.WriteFile(filepath.Join(dir, name), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}

	path, ok := Locate(dir, name)
	if !ok || path != filepath.Join(dir, name) {
		t.Fatalf("expected existing file, got %q %v", path, ok)
	}

	path, ok = Locate(dir, "missing.png")
	if ok {
		t.Fatal("missing file reported as present")
	}
	if path != filepath.Join(dir, "missing.png") {
		t.Fatalf("path should still be reported, got %q", path)
	}

	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, ok := Locate(dir, "sub"); ok {
		t.Fatal("directory should not count as an asset")
	}
}
