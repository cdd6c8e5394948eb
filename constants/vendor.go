package constants

import (
	"strings"
)

// VendorType identifies the delivery platform an invoice was issued by.
// The value doubles as the prompt-template key for that platform.
type VendorType string

const (
	UberEats VendorType = "ubereats"
	DoorDash VendorType = "doordash"
	GrubHub  VendorType = "grubhub"
	IFood    VendorType = "ifood"
	Rappi    VendorType = "rappi"
	Other    VendorType = "other"
)

var allVendorTypes = []VendorType{
	UberEats,
	DoorDash,
	GrubHub,
	IFood,
	Rappi,
	Other,
}

func VendorTypesAsStrings() []string {
	result := make([]string, len(allVendorTypes))
	for i, vt := range allVendorTypes {
		result[i] = string(vt)
	}
	return result
}

// CanonicalizeVendor maps free-text platform labels to a VendorType.
// Returns (Other, false) when the label is unknown.
func CanonicalizeVendor(input string) (VendorType, bool) {
	if input == "" {
		return Other, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	// synonyms map
	synonyms := map[string]VendorType{
		"uber eats": UberEats,
		"uber":      UberEats,
		"door dash": DoorDash,
		"grub hub":  GrubHub,
		"ifood.com": IFood,
	}

	if vt, ok := synonyms[normalized]; ok {
		return vt, true
	}

	for _, vt := range allVendorTypes {
		if normalized == string(vt) {
			return vt, true
		}
	}

	return Other, false
}
