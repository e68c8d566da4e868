package services

import (
	"context"
	"log/slog"
	"math/big"
)

// Денежная арифметика леджера. Все суммы - неотрицательные int64
// в минимальных единицах; доли считаются в базисных пунктах.
const (
	// FeeBasisPoints - комиссия платформы, снимаемая при расчёте (5%).
	FeeBasisPoints int64 = 500
	// BasisPointScale - шкала базисных пунктов, 10000 = 100%.
	BasisPointScale int64 = 10000
	// NeutralOdds - коэффициент 1:1 для турнира без ставок.
	NeutralOdds int64 = 10000
)

// mulDiv возвращает floor(a*b/den) без переполнения int64.
// Все аргументы неотрицательны, den > 0.
func mulDiv(a, b, den int64) int64 {
	product := new(big.Int).Mul(big.NewInt(a), big.NewInt(b))
	product.Quo(product, big.NewInt(den))
	// Частное всегда помещается в int64: floor(a*b/den) <= max(a, b)
	// при b <= den либо не превышает исходный пул при делении долей.
	return product.Int64()
}

// feeOf - комиссия с пула: floor(totalPool × FEE_BP / 10000).
func feeOf(totalPool int64) int64 {
	return mulDiv(totalPool, FeeBasisPoints, BasisPointScale)
}

// distributableOf - пул за вычетом комиссии, делимый между победителями.
func distributableOf(totalPool int64) int64 {
	return totalPool - feeOf(totalPool)
}

func validEntrant(entrantID, entrantCount int) bool {
	return entrantID >= 1 && entrantID <= entrantCount
}

func logWarn(ctx context.Context, logger *slog.Logger, msg string, args ...any) {
	if logger != nil {
		logger.WarnContext(ctx, msg, args...)
	}
}
