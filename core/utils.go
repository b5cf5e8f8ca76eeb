package core

// AddMetric adds two metrics, saturating at inf.
func AddMetric(a, b, inf uint32) uint32 {
	if a >= inf || b >= inf {
		return inf
	}
	return uint32(min(uint64(inf), uint64(a)+uint64(b)))
}
