package cascadio

import (
	"go.uber.org/zap"
)

// log is a no-op unless the embedding application installs a logger.
var log = zap.NewNop()

// SetLogger installs the logger used for conversion warnings and injection
// fallback reports.
func SetLogger(l *zap.Logger) {
	if l != nil {
		log = l
	}
}
