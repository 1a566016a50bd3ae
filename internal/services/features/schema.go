package features

import (
	"fmt"
	"slices"

	"FinSight/internal/domain/models"
)

// SchemaVersion identifies the feature set below. Bump it whenever names,
// order or formulas change; stored models trained on another version are rejected.
const SchemaVersion = "v1"

// Feature names in schema order.
const (
	RollingVolatility = "RollingVolatility"
	ATR               = "ATR"
	RollingMean       = "RollingMean"
	Return            = "Return"
	RSI               = "RSI"
	MACD              = "MACD"
	MACDSignal        = "MACD_Signal"
	BBWidth           = "BB_Width"
	ReturnLag1        = "Return_Lag_1"
	ReturnLag2        = "Return_Lag_2"
	ReturnLag3        = "Return_Lag_3"
	ReturnLag5        = "Return_Lag_5"
	HV10              = "HV_10"
	HV20              = "HV_20"
	HV30              = "HV_30"
)

var order = []string{
	RollingVolatility, ATR, RollingMean, Return,
	RSI, MACD, MACDSignal,
	BBWidth,
	ReturnLag1, ReturnLag2, ReturnLag3, ReturnLag5,
	HV10, HV20, HV30,
}

// Indicator windows.
const (
	volWindow       = 20
	meanWindow      = 10
	bollingerWindow = 20
	wilderPeriod    = 14
	fastSpan        = 12
	slowSpan        = 26
	signalSpan      = 9
	rsiEpsilon      = 1e-10
)

var hvWindows = [...]int{10, 20, 30}

// MinBars is the shortest history that yields one feature vector: HV_30 needs
// 30 returns, and the first return needs a previous close.
const MinBars = 31

// Names returns a copy of the schema order.
func Names() []string {
	return slices.Clone(order)
}

// Dim is the feature vector length.
func Dim() int { return len(order) }

// CheckSchema reports models.ErrSchemaMismatch when got differs from the current order.
func CheckSchema(got []string) error {
	if !slices.Equal(got, order) {
		return fmt.Errorf("%w: have %d features %v, engine %s expects %v", models.ErrSchemaMismatch, len(got), got, SchemaVersion, order)
	}
	return nil
}
