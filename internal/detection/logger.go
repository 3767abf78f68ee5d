package detection

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// logger returns the detection sub-logger carrying module=detection. It is
// resolved on each call so it picks up the logger installed by the command.
func logger() *zerolog.Logger {
	l := log.With().Str("module", "detection").Logger()
	return &l
}
