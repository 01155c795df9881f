package httptransport

import (
	"strconv"

	"go.uber.org/zap"
)

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func zapNop() *zap.Logger { return zap.NewNop() }
