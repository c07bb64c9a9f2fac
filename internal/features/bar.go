package features

import "github.com/typhfeng/stk-sub000/internal/wire"

// OHLCV is one minute/hour accumulator window (spec §4.7): open is the
// first tick's price in the window, high/low are running extremes,
// vwap = Σ(p·v)/Σv falling back to open when total volume is zero.
type OHLCV struct {
	Open, High, Low, Close wire.Price
	Volume                 uint64
	turnover               float64
	haveAny                bool
}

// Reset starts a new window. seedClose is the prior window's closing
// price (0 for the very first window of a session, where there is no
// prior close); it pre-fills open/high/low/close until the window's
// first Update, which then sets open/high/low to that tick's price.
func (b *OHLCV) Reset(seedClose wire.Price) {
	b.Open, b.High, b.Low, b.Close = seedClose, seedClose, seedClose, seedClose
	b.Volume = 0
	b.turnover = 0
	b.haveAny = false
}

// Update folds one tick's (price, volume) into the window.
func (b *OHLCV) Update(price wire.Price, volume uint32) {
	if !b.haveAny {
		b.Open, b.High, b.Low = price, price, price
		b.haveAny = true
	} else {
		if price > b.High {
			b.High = price
		}
		if price < b.Low {
			b.Low = price
		}
	}
	b.Close = price
	b.Volume += uint64(volume)
	b.turnover += float64(price) * float64(volume)
}

// VWAP returns Σ(p·v)/Σv, falling back to Open when total volume is
// zero (spec §4.7).
func (b *OHLCV) VWAP() float64 {
	if b.Volume == 0 {
		return float64(b.Open)
	}
	return b.turnover / float64(b.Volume)
}
