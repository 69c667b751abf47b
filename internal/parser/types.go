package parser

import "turansuraetu/internal/patch"

// Marker lines of the RPG Maker Trans v3 patch format.
const (
	FileHeader   = "> RPGMAKER TRANS PATCH FILE VERSION 3"
	BeginString  = "> BEGIN STRING"
	ContextLabel = "> CONTEXT:"
	EndString    = "> END STRING"

	markerPrefix = ">"
)

// Result holds parsing output for a single patch file.
type Result struct {
	// Header is the verbatim first line of the file.
	Header string
	// Pairs are the records in the order their END STRING markers appear.
	Pairs []*patch.TranslationPair
}

// target selects which buffer receives content lines.
type target int

const (
	targetOriginal target = iota
	targetTranslation
)
