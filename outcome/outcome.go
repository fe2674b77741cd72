// Package outcome translates classifier output into clinical labels and the
// illustrative images that accompany them.
package outcome

import (
	"os"
	"path/filepath"
	"sort"
)

// ClassCode is the integer a classifier emits.
type ClassCode int

// Label is a human-readable condition name.
type Label string

// Unknown is returned for class codes absent from the label table.
const Unknown Label = "Unknown"

// DefaultImageDir is where asset references are resolved when no directory is
// configured.
const DefaultImageDir = "images"

// LabelTable maps class codes to labels.
type LabelTable map[ClassCode]Label

// AssetTable maps labels to image file names. An entry with an empty file name
// marks a label that deliberately has no image.
type AssetTable map[Label]string

// ResolveLabel returns the label for code, or Unknown.
func ResolveLabel(code ClassCode, table LabelTable) Label {
	if l, ok := table[code]; ok {
		return l
	}
	return Unknown
}

// ResolveAsset returns the image reference for label. The second result is
// false both for unmapped labels and for labels mapped to no image.
func ResolveAsset(label Label, table AssetTable) (string, bool) {
	ref, ok := table[label]
	if !ok || ref == "" {
		return "", false
	}
	return ref, true
}

// Locate joins dir and ref and reports whether a regular file exists there.
// A missing file is not an error.
func Locate(dir, ref string) (string, bool) {
	path := filepath.Join(dir, ref)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return path, false
	}
	return path, true
}

// DefaultLabels returns a fresh copy of the thirteen-class myocardial
// infarction table.
func DefaultLabels() LabelTable {
	return LabelTable{
		0:  "Anterior Wall MI",
		1:  "Cardiogenic Shock",
		2:  "Extensive MI",
		3:  "Inferior Wall MI",
		4:  "Lateral Wall MI",
		5:  "NSTEMI/ACS",
		6:  "Other",
		7:  "Other Cardiac Issue",
		8:  "Posterior Wall MI",
		9:  "Recurrent MI",
		10: "Septal/Side Wall MI",
		11: "STEMI",
		12: "Inferoposterior MI",
	}
}

// DefaultAssets returns a fresh copy of the label to image table.
func DefaultAssets() AssetTable {
	return AssetTable{
		"Anterior Wall MI":    "Gemini_Generated_Image_Anterior Wall.png",
		"Cardiogenic Shock":   "Gemini_Generated_Image_Cardiogenic Shock.png",
		"Extensive MI":        "Gemini_Generated_Image_Extensive MI.png",
		"Inferior Wall MI":    "Gemini_Generated_Image_Inferior Wall.png",
		"Lateral Wall MI":     "Gemini_Generated_Image_Lateral Wall.png",
		"NSTEMI/ACS":          "Gemini_Generated_Image_NSTEMI_ACS.png",
		"Other":               "",
		"Other Cardiac Issue": "",
		"Posterior Wall MI":   "Gemini_Generated_Image_Posterior Wall.png",
		"Recurrent MI":        "Gemini_Generated_Image_Recurrent MI.png",
		"Septal/Side Wall MI": "Gemini_Generated_Image_Septal Wall.png",
		"STEMI":               "Gemini_Generated_Image_STEMI.png",
		"Inferoposterior MI":  "Gemini_Generated_Image_Inferoposterior.png",
	}
}

// Labels returns the table's labels ordered by class code.
func (t LabelTable) Labels() []Label {
	codes := make([]ClassCode, 0, len(t))
	for c := range t {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	out := make([]Label, len(codes))
	for i, c := range codes {
		out[i] = t[c]
	}
	return out
}
