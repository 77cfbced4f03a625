package model

// Market is one tradable symbol that passed the market filter, carrying a
// recent OHLCV window ordered oldest to newest. Downstream code treats it
// as read-only.
type Market struct {
	Symbol       string  `json:"symbol"` // e.g. "BTC/USDT"
	Volume24h    float64 `json:"volume_24h"`
	Spread       float64 `json:"spread"` // fractional, 0.0002 = 2 bps
	BasePrice    float64 `json:"base_price"`
	CurrentPrice float64 `json:"current_price"`
	OHLCV        []Bar   `json:"ohlcv"`
}

// Closes returns the close prices of the window in order.
func (m *Market) Closes() []float64 {
	out := make([]float64, len(m.OHLCV))
	for i := range m.OHLCV {
		out[i] = m.OHLCV[i].Close
	}
	return out
}

// Tail returns a copy of the market whose window holds at most the last n bars.
func (m Market) Tail(n int) Market {
	if n >= 0 && len(m.OHLCV) > n {
		m.OHLCV = m.OHLCV[len(m.OHLCV)-n:]
	}
	return m
}

// BaseAsset returns the part of the symbol before the slash ("BTC" for "BTC/USDT").
func (m *Market) BaseAsset() string {
	for i := 0; i < len(m.Symbol); i++ {
		if m.Symbol[i] == '/' {
			return m.Symbol[:i]
		}
	}
	return m.Symbol
}
