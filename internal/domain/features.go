package domain

// FeatureMap is the flat numeric output of the extraction pipeline and the
// sole contract with the external classifier. Keys are unique, insertion
// order is irrelevant, and the key set is stable regardless of transaction
// volume.
type FeatureMap map[string]float64

// Vector orders features into a slice following the classifier's metadata
// naming. Missing names resolve to 0.
func (f FeatureMap) Vector(names []string) []float64 {
	vec := make([]float64, len(names))
	for i, name := range names {
		vec[i] = f[name]
	}
	return vec
}

// AddressReport represents one completed extraction run for an address.
// Corresponds to the address_reports table in PostgreSQL.
type AddressReport struct {
	Address    string     `json:"address"`     // target address (lowercased)
	Features   FeatureMap `json:"features"`    // complete feature map, stable schema
	TxCount    int        `json:"tx_count"`    // sent + received transactions counted by the extractor
	ComputedAt int64      `json:"computed_at"` // extraction completion timestamp (ms)
}
