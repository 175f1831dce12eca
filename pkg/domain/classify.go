package domain

import (
	"regexp"
	"strings"
)

// SlotKind identifies the typed attachment point a filename routes to.
type SlotKind string

// Closed routing taxonomy. Round slots are evaluated before contact slots,
// contact slots before the instrument check; the first match wins.
const (
	// SlotAlchemerInput is the survey-platform export of a round.
	SlotAlchemerInput SlotKind = "alchemer_input"
	// SlotBroadnetInput is the phone-bank export of a round.
	SlotBroadnetInput SlotKind = "broadnet_input"
	// SlotDataOutput is the derived respondent-data file of a round.
	SlotDataOutput SlotKind = "data_output"
	// SlotColumnOutput is the derived column-name map of a round.
	SlotColumnOutput SlotKind = "column_output"
	// SlotXNamesOutput is the derived X-variable map of a round.
	SlotXNamesOutput SlotKind = "xnames_output"
	// SlotCombined is the combined contact list singleton.
	SlotCombined SlotKind = "combined"
	// SlotCells is the cell-phone contact list singleton.
	SlotCells SlotKind = "cells"
	// SlotLandlines is the landline contact list singleton.
	SlotLandlines SlotKind = "landlines"
	// SlotL2Raw is a raw L2 vendor extract (X_ followed by nine
	// uppercase alphanumerics).
	SlotL2Raw SlotKind = "l2_raw"
	// SlotI360Raw is a raw i360 vendor extract (32-hex-char suffix).
	SlotI360Raw SlotKind = "i360_raw"
	// SlotInstrument is the survey instrument document.
	SlotInstrument SlotKind = "instrument"
	// SlotMisc is everything the tables above do not claim.
	SlotMisc SlotKind = "misc"
)

// RoundSlot reports whether the kind belongs to a DataSet round.
func (k SlotKind) RoundSlot() bool {
	switch k {
	case SlotAlchemerInput, SlotBroadnetInput, SlotDataOutput, SlotColumnOutput, SlotXNamesOutput:
		return true
	}
	return false
}

// ContactSlot reports whether the kind belongs to a ContactSet. SlotMisc is
// a contact slot only when routed from inside a ContactSet upload; at the
// project level it is unroutable.
func (k SlotKind) ContactSlot() bool {
	switch k {
	case SlotCombined, SlotCells, SlotLandlines, SlotL2Raw, SlotI360Raw:
		return true
	}
	return false
}

var (
	l2Pattern   = regexp.MustCompile(`^X_[A-Z0-9]{9}`)
	i360Pattern = regexp.MustCompile(`-[a-z0-9]{32}\.csv`)
)

// substring rules evaluated in priority order before the regex rules.
var substringRules = []struct {
	needle string
	kind   SlotKind
}{
	{"SurveyExport", SlotAlchemerInput},
	{"response_data", SlotBroadnetInput},
	{"All.csv", SlotDataOutput},
	{"Colnames.csv", SlotColumnOutput},
	{"Xnames.csv", SlotXNamesOutput},
	{"CombinedContactList.csv", SlotCombined},
	{"CellPhones.csv", SlotCells},
	{"LandLines.csv", SlotLandlines},
}

// Classify maps a filename onto the slot it routes to. The function is pure
// and I/O free; upload paths consult it and then apply replace-on-conflict
// against whatever currently occupies the slot.
func Classify(filename string) SlotKind {
	for _, rule := range substringRules {
		if strings.Contains(filename, rule.needle) {
			return rule.kind
		}
	}
	if l2Pattern.MatchString(filename) {
		return SlotL2Raw
	}
	if i360Pattern.MatchString(filename) {
		return SlotI360Raw
	}
	if strings.HasSuffix(strings.ToLower(filename), ".docx") {
		return SlotInstrument
	}
	return SlotMisc
}
