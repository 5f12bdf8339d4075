package vesting

import "math/big"

// PerMille is the scale of VestingProgress.
const PerMille = 1000

// VestedAmount returns how much of the per-account allocation has vested at
// now. Linear after the cliff, floored, so the first unit lags wall-clock
// proportion.
func VestedAmount(s *Schedule, now uint64, eligible bool) *big.Int {
	if s == nil || !eligible || !s.IsActive || s.TotalAmount == nil {
		return new(big.Int)
	}
	elapsed, ok := elapsedAfterCliff(s, now)
	if !ok {
		return new(big.Int)
	}
	if elapsed >= s.VestingDuration {
		return new(big.Int).Set(s.TotalAmount)
	}

	vested := new(big.Int).Mul(s.TotalAmount, new(big.Int).SetUint64(elapsed))
	return vested.Quo(vested, new(big.Int).SetUint64(s.VestingDuration))
}

// VestingProgress returns schedule-wide progress in per-mille, independent
// of any account's eligibility.
func VestingProgress(s *Schedule, now uint64) uint64 {
	if s == nil || !s.IsActive || s.VestingDuration == 0 {
		return 0
	}
	elapsed, ok := elapsedAfterCliff(s, now)
	if !ok {
		return 0
	}
	if elapsed >= s.VestingDuration {
		return PerMille
	}
	progress := new(big.Int).Mul(new(big.Int).SetUint64(elapsed), big.NewInt(PerMille))
	return progress.Quo(progress, new(big.Int).SetUint64(s.VestingDuration)).Uint64()
}

// elapsedAfterCliff reports seconds past start+cliff, false while still
// before the cliff end.
func elapsedAfterCliff(s *Schedule, now uint64) (uint64, bool) {
	if now < s.StartTime {
		return 0, false
	}
	sinceStart := now - s.StartTime
	if sinceStart < s.CliffDuration {
		return 0, false
	}
	return sinceStart - s.CliffDuration, true
}
