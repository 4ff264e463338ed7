// Copyright 2020 PingCAP, Inc. Licensed under Apache-2.0.

package export

import (
	"strings"
)

// wrapBackTicks quotes an identifier, doubling any backtick inside it.
func wrapBackTicks(identifier string) string {
	return "`" + strings.ReplaceAll(identifier, "`", "``") + "`"
}

func isPrintableLabel(label string) bool {
	return label != "" && !strings.ContainsAny(label, "\r\n")
}
