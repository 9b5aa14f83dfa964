package wasm

import "fmt"

// SectionID is the leading byte of a section in the binary format. Only custom, type, function and code sections
// are translated; the rest are recognized in order to be reported as unsupported.
//
// See https://www.w3.org/TR/wasm-core-1/#sections%E2%91%A0
type SectionID = byte

const (
	SectionIDCustom SectionID = iota
	SectionIDType
	SectionIDImport
	SectionIDFunction
	SectionIDTable
	SectionIDMemory
	SectionIDGlobal
	SectionIDExport
	SectionIDStart
	SectionIDElement
	SectionIDCode
	SectionIDData
	// SectionIDDataCount comes from the bulk memory proposal.
	SectionIDDataCount
)

var sectionNames = [...]string{
	SectionIDCustom:    "custom",
	SectionIDType:      "type",
	SectionIDImport:    "import",
	SectionIDFunction:  "function",
	SectionIDTable:     "table",
	SectionIDMemory:    "memory",
	SectionIDGlobal:    "global",
	SectionIDExport:    "export",
	SectionIDStart:     "start",
	SectionIDElement:   "element",
	SectionIDCode:      "code",
	SectionIDData:      "data",
	SectionIDDataCount: "data_count",
}

// SectionIDName returns the name the text format uses for a section, or "unknown(id)".
func SectionIDName(sectionID SectionID) string {
	if int(sectionID) < len(sectionNames) {
		return sectionNames[sectionID]
	}
	return fmt.Sprintf("unknown(%d)", sectionID)
}
