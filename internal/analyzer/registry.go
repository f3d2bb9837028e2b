package analyzer

import "fmt"

// NewExtractor creates a feature extractor based on the specified variant
func NewExtractor(variant string) (FeatureExtractor, error) {
	switch variant {
	case "extrema", "":
		return NewExtremaExtractor(), nil
	case "stride":
		return NewStrideExtractor(), nil
	default:
		return nil, fmt.Errorf("unknown feature extractor variant: %s", variant)
	}
}
