package analytics

// Volume profile classifications
const (
	ProfileAccumulation = "accumulation"
	ProfileDistribution = "distribution"
	ProfileNeutral      = "neutral"
)

// VolumeProfile classifies the recent window as accumulation, distribution, or
// neutral. It compares recent volume against the historical average and pairs
// that with price direction and the up/down volume split. Series shorter than
// 10 points classify as neutral.
func VolumeProfile(prices, volumes []float64) string {
	if len(prices) < 10 || len(volumes) != len(prices) {
		return ProfileNeutral
	}

	recentWindow := 5
	recentVol := meanOf(volumes[len(volumes)-recentWindow:])
	histVol := meanOf(volumes[:len(volumes)-recentWindow])
	if histVol <= 0 {
		return ProfileNeutral
	}

	volRatio := recentVol / histVol

	first := prices[len(prices)-recentWindow]
	last := prices[len(prices)-1]
	if first <= 0 {
		return ProfileNeutral
	}
	priceChangePct := (last - first) / first * 100

	upVol, downVol := 0.0, 0.0
	for i := len(prices) - recentWindow; i < len(prices); i++ {
		if i == 0 {
			continue
		}
		if prices[i] > prices[i-1] {
			upVol += volumes[i]
		} else if prices[i] < prices[i-1] {
			downVol += volumes[i]
		}
	}

	// Elevated volume with rising price and buy-side dominance
	if volRatio > 1.3 && priceChangePct > 0.1 && upVol > downVol*1.2 {
		return ProfileAccumulation
	}
	// Elevated volume with falling price and sell-side dominance
	if volRatio > 1.3 && priceChangePct < -0.1 && downVol > upVol*1.2 {
		return ProfileDistribution
	}

	return ProfileNeutral
}

// RelativeVolume returns recent volume as a multiple of the historical average
// for the same series; 1.0 when the series is too short to compare.
func RelativeVolume(volumes []float64) float64 {
	if len(volumes) < 10 {
		return 1.0
	}
	recent := meanOf(volumes[len(volumes)-5:])
	hist := meanOf(volumes[:len(volumes)-5])
	if hist <= 0 {
		return 1.0
	}
	return recent / hist
}
