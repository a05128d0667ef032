package signal

// Thresholds gate which built signals are worth emitting
type Thresholds struct {
	MinConfidence float64
	MinMomentum   float64
}

// DefaultThresholds match the run configuration defaults
func DefaultThresholds() Thresholds {
	return Thresholds{MinConfidence: 0.7, MinMomentum: 40}
}

// Accept reports whether a scored signal clears both gates
func (t Thresholds) Accept(s *Signal) bool {
	if s == nil {
		return false
	}
	return s.Confidence >= t.MinConfidence && s.Momentum >= t.MinMomentum
}
